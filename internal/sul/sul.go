// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sul implements the sparse utilization list: an ordered array of
// critical points per location that compactly represents either concurrency
// (counter mode) or an instantaneous/cumulative scalar (rate mode), and
// answers histogram queries over arbitrary time windows in O(log n) per bin.
package sul

import (
	"fmt"
	"sort"

	"github.com/facette/natsort"
	"github.com/hdc-arizona/traveler-integrated/internal/util"
)

// CriticalPoint is one entry of a location's series.
//
// In counter mode a point starts as a +1/-1 edge; Finalize turns Counter into
// the running concurrency and Util into the cumulative area under the counter
// step function. Delta keeps the original edge sign so primitive scans can
// still recognize leave points, and leave points remember their matching
// enter timestamp.
type CriticalPoint struct {
	Index     int64   `json:"index"`
	Counter   int64   `json:"counter"`
	Util      float64 `json:"util"`
	Delta     int8    `json:"delta,omitempty"`
	Enter     int64   `json:"enter,omitempty"`
	Primitive string  `json:"primitive,omitempty"`
}

// List is one sparse utilization list. Counter mode is chosen at
// construction; rate-mode lists may additionally be cumulative (util values
// prefix-summed on finalize).
type List struct {
	CounterMode bool                       `json:"counterMode"`
	Cumulative  bool                       `json:"cumulative"`
	Locations   map[string][]CriticalPoint `json:"locations"`
}

func NewCounterList() *List {
	return &List{CounterMode: true, Locations: map[string][]CriticalPoint{}}
}

func NewRateList(cumulative bool) *List {
	return &List{Cumulative: cumulative, Locations: map[string][]CriticalPoint{}}
}

func (l *List) Add(location string, cp CriticalPoint) {
	l.Locations[location] = append(l.Locations[location], cp)
}

// LocationNames returns the list's locations in natural order.
func (l *List) LocationNames() []string {
	names := make([]string, 0, len(l.Locations))
	for loc := range l.Locations {
		names = append(names, loc)
	}
	natsort.Sort(names)
	return names
}

// Finalize sorts every location by index and fixes up counters and utils.
// Counter mode: prefix-sum the edges into running concurrency, then
// accumulate util as the area under the step function. Rate mode: optionally
// prefix-sum util. allLocations additionally materializes empty series so
// later queries need no existence checks.
func (l *List) Finalize(allLocations []string) {
	for _, loc := range allLocations {
		if _, ok := l.Locations[loc]; !ok {
			l.Locations[loc] = []CriticalPoint{}
		}
	}
	for loc, points := range l.Locations {
		sort.SliceStable(points, func(i, j int) bool { return points[i].Index < points[j].Index })
		if l.CounterMode {
			counter := int64(0)
			for i := range points {
				counter += points[i].Counter
				points[i].Counter = counter
				if i == 0 {
					points[i].Util = currentUtil(points[i].Index, nil)
				} else {
					points[i].Util = currentUtil(points[i].Index, &points[i-1])
				}
			}
		} else if l.Cumulative {
			for i := 1; i < len(points); i++ {
				points[i].Util += points[i-1].Util
			}
		}
		l.Locations[loc] = points
	}
}

// currentUtil extends the cumulative area from the prior critical point to
// index. A nil prior acts as {index: 0, counter: 0, util: 0}.
func currentUtil(index int64, prior *CriticalPoint) float64 {
	if prior == nil {
		return 0
	}
	return prior.Util + float64(index-prior.Index)*float64(prior.Counter)
}

// priorAt returns the position of the greatest point index <= x, or -1.
func priorAt(points []CriticalPoint, x int64) int {
	lo, hi := 0, len(points)
	for lo < hi {
		mid := (lo + hi) / 2
		if points[mid].Index <= x {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1
}

// sampleAt synthesizes the critical point at an arbitrary timestamp.
func sampleAt(points []CriticalPoint, x int64) CriticalPoint {
	i := priorAt(points, x)
	if i < 0 {
		return CriticalPoint{Index: x}
	}
	return CriticalPoint{
		Index:   x,
		Counter: points[i].Counter,
		Util:    currentUtil(x, &points[i]),
	}
}

// binEdges partitions [begin, end] into bins equal segments; the result has
// bins+1 entries with the last pinned to end.
func binEdges(bins int, begin, end int64) []int64 {
	rangePerBin := float64(end-begin) / float64(bins)
	edges := make([]int64, bins+1)
	for i := 0; i < bins; i++ {
		edges[i] = begin + int64(float64(i)*rangePerBin)
	}
	edges[bins] = end
	return edges
}

// UtilizationForLocation computes one location's histogram over [begin, end].
// In counter mode each bin holds the average concurrency over the bin;
// otherwise each bin holds the util value sampled at the bin's right edge.
func (l *List) UtilizationForLocation(bins int, begin, end int64, location string) []float64 {
	points := l.Locations[location]
	edges := binEdges(bins, begin, end)

	result := make([]float64, bins)
	prev := sampleAt(points, edges[0])
	for i := 1; i <= bins; i++ {
		current := sampleAt(points, edges[i])
		if l.CounterMode {
			if width := current.Index - prev.Index; width > 0 {
				result[i-1] = (current.Util - prev.Util) / float64(width)
			}
		} else {
			result[i-1] = current.Util
		}
		prev = current
	}
	return result
}

// UtilizationHistogram sums the per-location histograms bin-wise over all
// locations.
func (l *List) UtilizationHistogram(bins int, begin, end int64) []float64 {
	result := make([]float64, bins)
	for loc := range l.Locations {
		forLoc := l.UtilizationForLocation(bins, begin, end, loc)
		for i := range result {
			result[i] += forLoc[i]
		}
	}
	return result
}

// MetricSummary aggregates a rate-mode list across locations per bin.
type MetricSummary struct {
	Min     []float64 `json:"min"`
	Max     []float64 `json:"max"`
	Average []float64 `json:"average"`
	Std     []float64 `json:"std"`
}

// MetricHistogram aggregates all locations into per-bin min/max/average/std
// (population formula).
func (l *List) MetricHistogram(bins int, begin, end int64) *MetricSummary {
	locs := l.LocationNames()
	perLoc := make([][]float64, 0, len(locs))
	for _, loc := range locs {
		perLoc = append(perLoc, l.UtilizationForLocation(bins, begin, end, loc))
	}

	summary := &MetricSummary{
		Min:     make([]float64, bins),
		Max:     make([]float64, bins),
		Average: make([]float64, bins),
		Std:     make([]float64, bins),
	}
	column := make([]float64, len(perLoc))
	for i := 0; i < bins; i++ {
		for j := range perLoc {
			column[j] = perLoc[j][i]
		}
		if len(column) == 0 {
			continue
		}
		mn, mx := column[0], column[0]
		for _, v := range column {
			mn = util.Min(mn, v)
			mx = util.Max(mx, v)
		}
		avg, _ := util.Mean(column)
		std, _ := util.Std(column)
		summary.Min[i] = mn
		summary.Max[i] = mx
		summary.Average[i] = avg
		summary.Std[i] = std
	}
	return summary
}

// UtilizationForPrimitive builds the 2D time-by-duration matrix for one
// primitive. Row i covers the window ending at the i-th bin edge; the column
// is the interval's duration bucket. The scan walks each location's critical
// points once with a monotonic cursor; rows start at 1, matching the
// historical behavior of leaving row 0 empty.
func (l *List) UtilizationForPrimitive(bins int, begin, end int64, primitive string, durationBegin, durationEnd int64, durationBins int) ([][]float64, error) {
	matrix := make([][]float64, bins)
	for i := range matrix {
		matrix[i] = make([]float64, durationBins+1)
	}
	durationBinSize := float64(durationEnd-durationBegin) / float64(durationBins)
	edges := binEdges(bins, begin, end)

	for loc, points := range l.Locations {
		cursor := 0
		for i := 1; i < bins; i++ {
			crit := edges[i]
			for cursor < len(points) && points[cursor].Index <= crit {
				p := points[cursor]
				cursor++
				if p.Delta != -1 || p.Primitive != primitive || p.Index < begin || p.Enter > end {
					continue
				}
				overlap := util.Min(p.Index, crit) - util.Max(p.Enter, begin)
				if overlap < 0 {
					return nil, fmt.Errorf("negative utilization %d for primitive %s at location %s", overlap, primitive, loc)
				}
				bucket := 0
				if durationBinSize > 0 {
					bucket = int(float64(p.Index-p.Enter-durationBegin) / durationBinSize)
				}
				if bucket < 0 {
					bucket = 0
				}
				if bucket > durationBins {
					bucket = durationBins
				}
				matrix[i][bucket] += float64(overlap)
			}
		}
	}
	return matrix, nil
}

// IntervalHistogram bins a cumulative duration-count list: each bin holds the
// number of intervals whose duration falls inside it.
func (l *List) IntervalHistogram(bins int, begin, end int64) []float64 {
	result := make([]float64, bins)
	for loc := range l.Locations {
		points := l.Locations[loc]
		edges := binEdges(bins, begin, end)
		// Sample just left of begin so a duration sitting exactly on the
		// lower edge still counts into bin 0.
		prev := sampleAt(points, edges[0]-1)
		for i := 1; i <= bins; i++ {
			current := sampleAt(points, edges[i])
			result[i-1] += current.Util - prev.Util
			prev = current
		}
	}
	return result
}
