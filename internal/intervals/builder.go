// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package intervals

import (
	"strconv"

	"github.com/hdc-arizona/traveler-integrated/pkg/schema"
)

const MissingPrimitiveName = "(primitive name missing)"

// BuildStats counts the recoverable oddities of one builder run.
type BuildStats struct {
	Intervals           int
	MissingPrimitives   int
	MismatchedIntervals int
	OrphanLeaves        int
	TrailingEnters      int
	LocationMismatches  int
}

// Progress is called every 2500 built intervals so ingest can flush its log
// and yield to the scheduler.
type Progress func(count int)

// Combine pairs each location's sorted ENTER/LEAVE events into intervals.
// Nested enters synthesize a dummy LEAVE for the interrupted interval at
// newEnter-1; after an interval closes, the interrupted parent's ENTER is
// nudged to leave+1 so its remaining time starts strictly after the child.
// locations fixes the iteration order so interval ids are deterministic.
func Combine(eventsByLocation map[string][]*schema.Event, locations []string, warn func(format string, v ...interface{}), progress Progress) ([]*schema.Interval, *schema.Domain, BuildStats) {
	var stats BuildStats
	var domain *schema.Domain
	result := []*schema.Interval{}

	for _, loc := range locations {
		var stack []*schema.Event
		for _, event := range eventsByLocation[loc] {
			var iv *schema.Interval
			id := strconv.Itoa(stats.Intervals)
			switch event.Type {
			case "ENTER":
				if len(stack) > 0 {
					top := stack[len(stack)-1]
					dummy := cloneEvent(top)
					dummy.Type = "LEAVE"
					dummy.Timestamp = event.Timestamp - 1
					dummy.Metrics = cloneMetrics(event.Metrics)
					iv = merge(top, dummy, id, warn, &stats)
				}
				stack = append(stack, event)
			case "LEAVE":
				if len(stack) == 0 {
					warn("omitting LEAVE event without a prior ENTER event (%s)", event.Primitive)
					stats.OrphanLeaves++
					continue
				}
				enter := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				iv = merge(enter, event, id, warn, &stats)
				if len(stack) > 0 {
					stack[len(stack)-1].Timestamp = event.Timestamp + 1
				}
			}
			if iv == nil {
				continue
			}
			result = append(result, iv)
			if domain == nil {
				domain = &schema.Domain{Lo: iv.Enter.Timestamp, Hi: iv.Leave.Timestamp}
			} else {
				if iv.Enter.Timestamp < domain.Lo {
					domain.Lo = iv.Enter.Timestamp
				}
				if iv.Leave.Timestamp > domain.Hi {
					domain.Hi = iv.Leave.Timestamp
				}
			}
			stats.Intervals++
			if progress != nil && stats.Intervals%2500 == 0 {
				progress(stats.Intervals)
			}
		}
		if len(stack) > 0 {
			warn("omitting trailing ENTER event (%s)", stack[len(stack)-1].Primitive)
			stats.TrailingEnters++
		}
	}
	return result, domain, stats
}

// merge combines one ENTER and one LEAVE event into an interval, applying the
// attribute rule: keys present on only one side stay in that side's endpoint;
// keys equal on both sides are lifted to the interval; differing values stay
// per-side.
func merge(enter, leave *schema.Event, id string, warn func(format string, v ...interface{}), stats *BuildStats) *schema.Interval {
	iv := &schema.Interval{
		ID:       id,
		Enter:    schema.Endpoint{Timestamp: enter.Timestamp, Metrics: enter.Metrics, Attrs: map[string]schema.Value{}},
		Leave:    schema.Endpoint{Timestamp: leave.Timestamp, Metrics: leave.Metrics, Attrs: map[string]schema.Value{}},
		Attrs:    map[string]schema.Value{},
		Children: []string{},
	}

	iv.Enter.Attrs["Event"] = schema.StringValue(enter.Type)
	iv.Leave.Attrs["Event"] = schema.StringValue(leave.Type)

	if enter.Location == leave.Location {
		iv.Location = enter.Location
	} else {
		warn("ENTER and LEAVE have different locations (%s / %s)", enter.Location, leave.Location)
		stats.LocationMismatches++
		iv.Location = enter.Location
		iv.Enter.Attrs["Location"] = schema.StringValue(enter.Location)
		iv.Leave.Attrs["Location"] = schema.StringValue(leave.Location)
	}

	switch {
	case enter.Primitive != "" && enter.Primitive == leave.Primitive:
		iv.Primitive = enter.Primitive
	case enter.Primitive == "" && leave.Primitive == "":
		iv.Primitive = MissingPrimitiveName
		stats.MissingPrimitives++
	case enter.Primitive == "" || leave.Primitive == "":
		// Only one side named a primitive; it stays on that endpoint.
		iv.Primitive = MissingPrimitiveName
		stats.MissingPrimitives++
		if enter.Primitive != "" {
			iv.Enter.Attrs["Primitive"] = schema.StringValue(enter.Primitive)
		} else {
			iv.Leave.Attrs["Primitive"] = schema.StringValue(leave.Primitive)
		}
	default:
		// Disagreement: the ENTER name wins.
		iv.Primitive = enter.Primitive
		stats.MismatchedIntervals++
		iv.Enter.Attrs["Primitive"] = schema.StringValue(enter.Primitive)
		iv.Leave.Attrs["Primitive"] = schema.StringValue(leave.Primitive)
	}

	for key, ev := range enter.Attrs {
		if lv, ok := leave.Attrs[key]; ok {
			if ev.Equal(lv) {
				iv.Attrs[key] = ev
			} else {
				iv.Enter.Attrs[key] = ev
				iv.Leave.Attrs[key] = lv
			}
		} else {
			iv.Enter.Attrs[key] = ev
		}
	}
	for key, lv := range leave.Attrs {
		if _, ok := enter.Attrs[key]; !ok {
			iv.Leave.Attrs[key] = lv
		}
	}
	return iv
}

func cloneEvent(e *schema.Event) *schema.Event {
	clone := *e
	clone.Metrics = cloneMetrics(e.Metrics)
	clone.Attrs = make(map[string]schema.Value, len(e.Attrs))
	for k, v := range e.Attrs {
		clone.Attrs[k] = v
	}
	return &clone
}

func cloneMetrics(m map[string]float64) map[string]float64 {
	clone := make(map[string]float64, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

// BuildIndex keys every interval by [enter, leave+1) and builds the overlap
// index over them.
func BuildIndex(ivs []*schema.Interval) *Tree {
	keys := make([]Entry, len(ivs))
	for i, iv := range ivs {
		keys[i] = Entry{Lo: iv.Enter.Timestamp, Hi: iv.Leave.Timestamp + 1, ID: i}
	}
	return Build(keys)
}
