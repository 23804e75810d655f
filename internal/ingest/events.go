// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/facette/natsort"
	"github.com/hdc-arizona/traveler-integrated/internal/datastore"
	"github.com/hdc-arizona/traveler-integrated/pkg/schema"
)

// Line grammar of the textual event dump.
var (
	eventLineParser   = regexp.MustCompile(`^((?:ENTER)|(?:LEAVE))\s+(\d+)\s+(\d+)\s+(.*)$`)
	attrParser        = regexp.MustCompile(`(Region): "([^"]*)"`)
	addAttrLineParser = regexp.MustCompile(`^\s+ADDITIONAL ATTRIBUTES: (.*)$`)
	addAttrSplitter   = regexp.MustCompile(`\), \(`)
	addAttrParser     = regexp.MustCompile(`^\(?"([^"]*)" <\d+>; [^;]*; ([^\)]*)`)
	metricLineParser  = regexp.MustCompile(`^METRIC\s+(\d+)\s+(\d+)\s+Metric:[\s\d,]+Values?: \("([^"]*)" <\d+>; [^;]*; ([^\)]*)`)
	// Usually the value token is just a number, but input like
	// "DOUBLE <2>; 1234.0000" appears too; we want the last number.
	numberToken = regexp.MustCompile(`[0-9.]+`)
)

// RawTrace is the output of one streaming parse: ordered per-location event
// lists plus the parse counters the ingest log reports.
type RawTrace struct {
	EventsByLocation map[string][]*schema.Event
	Locations        []string

	NumEvents                 int
	NewPrimitives             int
	SeenPrimitives            int
	IncludedMetrics           int
	SkippedMetricsNoPrior     int
	SkippedMetricsForMismatch int
	UnsupportedSkippedLines   int
	BadAddAttrLines           int
}

// ParseEvents converts the textual event dump into per-location event lists
// sorted by timestamp (stable for duplicates). PAPI metric lines attach to
// the event currently being parsed iff location and timestamp match exactly;
// other metrics become proc metric samples on the dataset. Every 2500 events
// the parser checks for cancellation and flushes a progress dot.
func ParseEvents(ctx context.Context, r io.Reader, ds *datastore.Dataset, logger Logger) (*RawTrace, error) {
	raw := &RawTrace{EventsByLocation: map[string][]*schema.Event{}}
	var currentEvent *schema.Event

	logger.Log("Parsing events (.=2500 events)")

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		eventLineMatch := eventLineParser.FindStringSubmatch(line)
		addAttrLineMatch := addAttrLineParser.FindStringSubmatch(line)
		metricLineMatch := metricLineParser.FindStringSubmatch(line)

		if currentEvent == nil && eventLineMatch == nil && metricLineMatch == nil {
			// This is a blank / header line
			continue
		}

		if metricLineMatch != nil {
			loc := metricLineMatch[1]
			timestamp, err := strconv.ParseInt(metricLineMatch[2], 10, 64)
			if err != nil {
				return nil, err
			}
			metricType := metricLineMatch[3]
			valueTokens := numberToken.FindAllString(metricLineMatch[4], -1)
			if len(valueTokens) == 0 {
				raw.UnsupportedSkippedLines++
				continue
			}
			value, err := strconv.ParseFloat(valueTokens[len(valueTokens)-1], 64)
			if err != nil {
				return nil, err
			}

			if strings.HasPrefix(metricType, "PAPI") {
				if currentEvent == nil {
					raw.SkippedMetricsNoPrior++
				} else if currentEvent.Timestamp != timestamp || currentEvent.Location != loc {
					raw.SkippedMetricsForMismatch++
				} else {
					raw.IncludedMetrics++
					currentEvent.Metrics[metricType] = value
				}
				ds.NotePAPIMetric(metricType)
			} else {
				// meminfo / status / io metrics keep their own series
				ds.AddProcMetric(metricType, timestamp, value)
			}
		} else if eventLineMatch != nil {
			// This is the beginning of a new event; process the previous one
			if currentEvent != nil {
				raw.processEvent(ds, currentEvent)
				if raw.NumEvents%2500 == 0 {
					if err := ctx.Err(); err != nil {
						return nil, err
					}
					logger.Log(".")
				}
				if raw.NumEvents%100000 == 0 {
					logger.Log(fmt.Sprintf("processed %d events", raw.NumEvents))
				}
			}
			timestamp, err := strconv.ParseInt(eventLineMatch[3], 10, 64)
			if err != nil {
				return nil, err
			}
			currentEvent = &schema.Event{
				Type:      eventLineMatch[1],
				Location:  eventLineMatch[2],
				Timestamp: timestamp,
				Metrics:   map[string]float64{},
				Attrs:     map[string]schema.Value{},
			}
			for _, attrMatch := range attrParser.FindAllStringSubmatch(eventLineMatch[4], -1) {
				currentEvent.Attrs[attrMatch[1]] = schema.StringValue(attrMatch[2])
			}
		} else if currentEvent != nil && addAttrLineMatch != nil {
			// This line contains additional event attributes
			for _, attrStr := range addAttrSplitter.Split(addAttrLineMatch[1], -1) {
				attr := addAttrParser.FindStringSubmatch(attrStr)
				if attr == nil {
					raw.BadAddAttrLines++
					logger.Log(fmt.Sprintf("WARNING: omitting data from bad ADDITIONAL ATTRIBUTES line:\n%s", line))
					continue
				}
				currentEvent.Attrs[attr[1]] = schema.ParseValue(attr[2])
			}
		} else {
			// This is a line that we aren't capturing (yet), e.g. MPI_SEND
			raw.UnsupportedSkippedLines++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	// The last event will never have had a chance to be processed:
	if currentEvent != nil {
		raw.processEvent(ds, currentEvent)
	}

	for loc, events := range raw.EventsByLocation {
		sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp < events[j].Timestamp })
		raw.EventsByLocation[loc] = events
		raw.Locations = append(raw.Locations, loc)
	}
	natsort.Sort(raw.Locations)
	ds.Info.LocationNames = raw.Locations

	logger.Log(fmt.Sprintf("Finished processing %d events", raw.NumEvents))
	logger.Log(fmt.Sprintf("New primitives: %d, References to existing primitives: %d", raw.NewPrimitives, raw.SeenPrimitives))
	logger.Log(fmt.Sprintf("Metrics included: %d; skipped for no prior ENTER: %d; skipped for mismatch: %d", raw.IncludedMetrics, raw.SkippedMetricsNoPrior, raw.SkippedMetricsForMismatch))
	logger.Log(fmt.Sprintf("Additional attribute lines skipped: %d", raw.BadAddAttrLines))
	logger.Log(fmt.Sprintf("Lines skipped because they are not yet supported: %d", raw.UnsupportedSkippedLines))
	return raw, nil
}

// processEvent resolves the event's primitive from its Region attribute and
// files the event into its location's list.
func (raw *RawTrace) processEvent(ds *datastore.Dataset, event *schema.Event) {
	if region, ok := event.Attrs["Region"]; ok {
		primitiveName := strings.ReplaceAll(region.String(), "::eval", "")
		event.Primitive = primitiveName
		delete(event.Attrs, "Region")
		prim, wasNew := ds.ProcessPrimitive(primitiveName, "otf2")
		if wasNew {
			raw.NewPrimitives++
		} else {
			raw.SeenPrimitives++
		}
		if ds.DebugSources() {
			prim.EventCount++
		}
	}
	raw.EventsByLocation[event.Location] = append(raw.EventsByLocation[event.Location], event)
	raw.NumEvents++
}
