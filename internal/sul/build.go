// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package sul

import (
	"sort"

	"github.com/hdc-arizona/traveler-integrated/pkg/schema"
)

// DummyLocation carries series that have no real location: interval-duration
// histograms and aggregated lane utilizations.
const DummyLocation = "1"

// AllPrimitives keys the duration histogram spanning every primitive.
const AllPrimitives = "all_primitives"

// Bundle groups the derived utilization indexes of one dataset.
type Bundle struct {
	Intervals          *List            `json:"intervals"`
	Primitives         map[string]*List `json:"primitives"`
	Metrics            map[string]*List `json:"metrics"`
	IntervalHistograms map[string]*List `json:"intervalHistograms"`
}

type metricState struct {
	timestamp int64
	value     float64
}

// Progress is called every 2500 indexed intervals.
type Progress func(count int)

// Build derives the utilization indexes from the interval arena in one pass,
// then finalizes every list. The returned duration domains record, per
// primitive, the smallest and largest observed invocation duration.
func Build(ivs []*schema.Interval, allLocations []string, progress Progress) (*Bundle, map[string]schema.Domain) {
	b := &Bundle{
		Intervals:          NewCounterList(),
		Primitives:         map[string]*List{},
		Metrics:            map[string]*List{},
		IntervalHistograms: map[string]*List{},
	}
	durationCounts := map[string]map[int64]int64{}
	preMetric := map[string]metricState{}

	for count, iv := range ivs {
		loc := iv.Location
		prim := iv.Primitive

		enterPt := CriticalPoint{Index: iv.Enter.Timestamp, Counter: 1, Delta: 1, Primitive: prim}
		leavePt := CriticalPoint{Index: iv.Leave.Timestamp, Counter: -1, Delta: -1, Enter: iv.Enter.Timestamp, Primitive: prim}

		b.Intervals.Add(loc, enterPt)
		b.Intervals.Add(loc, leavePt)

		perPrim, ok := b.Primitives[prim]
		if !ok {
			perPrim = NewCounterList()
			b.Primitives[prim] = perPrim
		}
		perPrim.Add(loc, enterPt)
		perPrim.Add(loc, leavePt)

		addMetricSamples(b, preMetric, loc, iv.Enter)
		addMetricSamples(b, preMetric, loc, iv.Leave)

		duration := iv.Duration()
		for _, key := range []string{prim, AllPrimitives} {
			counts, ok := durationCounts[key]
			if !ok {
				counts = map[int64]int64{}
				durationCounts[key] = counts
			}
			counts[duration]++
		}

		if progress != nil && (count+1)%2500 == 0 {
			progress(count + 1)
		}
	}

	b.Intervals.Finalize(allLocations)
	for _, list := range b.Primitives {
		list.Finalize(allLocations)
	}
	for _, list := range b.Metrics {
		list.Finalize(nil)
	}

	durationDomains := make(map[string]schema.Domain, len(durationCounts))
	for prim, counts := range durationCounts {
		hist := NewRateList(true)
		durations := make([]int64, 0, len(counts))
		for d := range counts {
			durations = append(durations, d)
		}
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
		for _, d := range durations {
			hist.Add(DummyLocation, CriticalPoint{Index: d, Util: float64(counts[d])})
		}
		hist.Finalize([]string{DummyLocation})
		b.IntervalHistograms[prim] = hist
		durationDomains[prim] = schema.Domain{Lo: durations[0], Hi: durations[len(durations)-1]}
	}
	return b, durationDomains
}

// addMetricSamples converts one endpoint's PAPI samples into instantaneous
// rates against the previous sample of the same metric on the same location.
func addMetricSamples(b *Bundle, preMetric map[string]metricState, location string, ep schema.Endpoint) {
	for name, value := range ep.Metrics {
		key := name + "\x00" + location
		pre, seen := preMetric[key]
		if _, ok := b.Metrics[name]; !ok {
			b.Metrics[name] = NewRateList(false)
		}
		rate := 0.0
		if seen && ep.Timestamp != pre.timestamp {
			rate = (value - pre.value) / float64(ep.Timestamp-pre.timestamp)
		} else if !seen && ep.Timestamp != 0 {
			rate = value / float64(ep.Timestamp)
		}
		b.Metrics[name].Add(location, CriticalPoint{Index: ep.Timestamp, Util: rate})
		preMetric[key] = metricState{timestamp: ep.Timestamp, value: value}
	}
}

// ObservedPrimitives reports which primitives actually produced intervals,
// for the post-index discrepancy report.
func (b *Bundle) ObservedPrimitives() []string {
	names := make([]string, 0, len(b.IntervalHistograms))
	for name := range b.IntervalHistograms {
		if name != AllPrimitives {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
