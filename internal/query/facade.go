// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package query composes the per-dataset indexes into the externally
// observable query operations. Everything here is read-only and synchronous;
// streaming happens at the API layer through visitor callbacks.
package query

import (
	"encoding/json"
	"fmt"

	"github.com/hdc-arizona/traveler-integrated/internal/datastore"
	"github.com/hdc-arizona/traveler-integrated/internal/deptree"
	"github.com/hdc-arizona/traveler-integrated/internal/intervals"
	"github.com/hdc-arizona/traveler-integrated/internal/sul"
	"github.com/hdc-arizona/traveler-integrated/pkg/schema"
)

// ErrNoData marks queries against indexes the dataset does not have.
var ErrNoData = datastore.ErrNotFound

type Facade struct {
	ds *datastore.Dataset
}

func New(ds *datastore.Dataset) *Facade {
	return &Facade{ds: ds}
}

// DefaultRange substitutes the dataset's interval domain for unset bounds.
func (f *Facade) DefaultRange(begin, end *int64) (int64, int64) {
	domain := f.ds.Info.IntervalDomain
	lo, hi := int64(0), int64(0)
	if domain != nil {
		lo, hi = domain.Lo, domain.Hi
	}
	if begin != nil {
		lo = *begin
	}
	if end != nil {
		hi = *end
	}
	return lo, hi
}

// IntervalFilter restricts a listIntervals stream.
type IntervalFilter struct {
	Location    string
	Primitive   string
	Guid        string
	MinDuration *int64
	MaxDuration *int64
}

func (flt *IntervalFilter) match(iv *schema.Interval) bool {
	if flt.Location != "" && iv.Location != flt.Location {
		return false
	}
	if flt.Primitive != "" && iv.Primitive != flt.Primitive {
		return false
	}
	if flt.Guid != "" {
		guid, ok := iv.GUID()
		if !ok || guid != flt.Guid {
			return false
		}
	}
	if flt.MinDuration != nil || flt.MaxDuration != nil {
		length := iv.Duration()
		if flt.MinDuration != nil && length < *flt.MinDuration {
			return false
		}
		if flt.MaxDuration != nil && length > *flt.MaxDuration {
			return false
		}
	}
	return true
}

// ListIntervals streams the intervals overlapping [begin, end] that pass the
// filter, in index iteration order. Returning false stops the stream.
func (f *Facade) ListIntervals(begin, end int64, flt IntervalFilter, visit func(*schema.Interval) bool) error {
	if f.ds.Index == nil {
		return ErrNoData
	}
	f.ds.Index.IterOverlap(begin, end, func(e intervals.Entry) bool {
		iv := f.ds.Intervals[e.ID]
		if !flt.match(iv) {
			return true
		}
		return visit(iv)
	})
	return nil
}

// GetInterval resolves one interval id, or nil.
func (f *Facade) GetInterval(id string) *schema.Interval {
	return f.ds.IntervalByID(id)
}

// TraceNode is one emitted entry of an interval trace. Boundary nodes carry
// just enough to draw lines beyond the window. A node carries either the
// parent field (null for roots) or the child field, never both.
type TraceNode struct {
	Enter          int64
	Leave          int64
	Location       string
	Parent         *string
	Child          *string
	HasParentField bool
}

func (n TraceNode) MarshalJSON() ([]byte, error) {
	obj := map[string]interface{}{
		"enter":    n.Enter,
		"leave":    n.Leave,
		"location": n.Location,
	}
	if n.HasParentField {
		if n.Parent != nil {
			obj["parent"] = *n.Parent
		} else {
			obj["parent"] = nil
		}
	} else if n.Child != nil {
		obj["child"] = *n.Child
	}
	return json.Marshal(obj)
}

// TraceEntry pairs an interval id with its trace node, preserving emission
// order for streaming.
type TraceEntry struct {
	ID   string
	Node TraceNode
}

// TraceResult holds both directions of an interval trace. The target
// interval appears on both sides when it intersects the window.
type TraceResult struct {
	Ancestors   []TraceEntry
	Descendants []TraceEntry
}

func formatParent(iv *schema.Interval) TraceNode {
	node := TraceNode{
		Enter:          iv.Enter.Timestamp,
		Leave:          iv.Leave.Timestamp,
		Location:       iv.Location,
		HasParentField: true,
	}
	if iv.Parent != "" {
		parent := iv.Parent
		node.Parent = &parent
	}
	return node
}

func formatChild(iv *schema.Interval, childID string) TraceNode {
	return TraceNode{
		Enter:    iv.Enter.Timestamp,
		Leave:    iv.Leave.Timestamp,
		Location: iv.Location,
		Child:    &childID,
	}
}

// IntervalTrace walks the target's ancestor chain backward through the
// window and BFSes its descendants forward, clipping both directions to
// [begin, end] but keeping one offscreen boundary node per side.
func (f *Facade) IntervalTrace(intervalID string, begin, end int64) (*TraceResult, error) {
	target := f.ds.IntervalByID(intervalID)
	if target == nil {
		return nil, ErrNoData
	}
	result := &TraceResult{}

	// First phase: from the target, rewind until we encounter an interval in
	// the queried range (or we run out of intervals)
	var last *schema.Interval
	current := target
	for current != nil && current.Parent != "" && current.Enter.Timestamp > end {
		last = current
		current = f.ds.IntervalByID(current.Parent)
	}

	// Second phase: if we had to rewind, include the last skipped interval to
	// enable drawing offscreen lines to the right
	if current != target && last != nil {
		result.Ancestors = append(result.Ancestors, TraceEntry{ID: last.ID, Node: formatParent(last)})
	}

	// Third phase: include intervals until we encounter one beyond the
	// queried range (or we run out)
	for current != nil && current.Leave.Timestamp >= begin {
		var node TraceNode
		if last != nil {
			node = formatChild(current, last.ID)
		} else {
			node = formatParent(current)
		}
		result.Ancestors = append(result.Ancestors, TraceEntry{ID: current.ID, Node: node})
		last = current
		if current.Parent == "" {
			current = nil
		} else {
			current = f.ds.IntervalByID(current.Parent)
		}
	}

	// Fourth phase: if the walk stopped at a still-existing parent that is
	// offscreen-left, include it to enable drawing a line offscreen
	if current != nil {
		var node TraceNode
		if last != nil {
			node = formatChild(current, last.ID)
		} else {
			node = formatParent(current)
		}
		result.Ancestors = append(result.Ancestors, TraceEntry{ID: current.ID, Node: node})
	}

	// Descendants: breadth-first over children, parents before children
	queue := []string{intervalID}
	queued := map[string]bool{intervalID: true}
	for len(queue) > 0 {
		iv := f.ds.IntervalByID(queue[0])
		queue = queue[1:]
		if iv == nil {
			continue
		}

		emit := iv.Leave.Timestamp >= begin
		if !emit {
			for _, childID := range iv.Children {
				if child := f.ds.IntervalByID(childID); child != nil && child.Enter.Timestamp >= begin {
					emit = true
					break
				}
			}
		}
		if emit {
			result.Descendants = append(result.Descendants, TraceEntry{ID: iv.ID, Node: formatParent(iv)})
		}

		// Only follow children while this interval ends before the queried
		// range does
		if iv.Leave.Timestamp <= end {
			for _, childID := range iv.Children {
				if !queued[childID] {
					queued[childID] = true
					queue = append(queue, childID)
				}
			}
		}
	}
	return result, nil
}

// UtilizationHistogram routes to the right utilization list: a primitive's
// duration histogram, a union over listed locations, or the summed histogram
// over every location.
func (f *Facade) UtilizationHistogram(bins int, begin, end int64, locations []string, primitive string) ([]float64, error) {
	if f.ds.Suls == nil {
		return nil, ErrNoData
	}
	if primitive != "" && len(locations) > 0 {
		return nil, fmt.Errorf("histograms filtered by both location and primitive are not supported")
	}
	if primitive != "" {
		hist, ok := f.ds.Suls.IntervalHistograms[primitive]
		if !ok {
			return nil, ErrNoData
		}
		return hist.IntervalHistogram(bins, begin, end), nil
	}
	list := f.ds.Suls.Intervals
	if len(locations) == 0 {
		return list.UtilizationHistogram(bins, begin, end), nil
	}
	result := make([]float64, bins)
	for _, loc := range locations {
		forLoc := list.UtilizationForLocation(bins, begin, end, loc)
		for i := range result {
			result[i] += forLoc[i]
		}
	}
	return result, nil
}

// MetricSeries returns one location's per-bin rates for a metric.
func (f *Facade) MetricSeries(metric string, bins int, begin, end int64, location string) ([]float64, error) {
	list, err := f.metricList(metric)
	if err != nil {
		return nil, err
	}
	return list.UtilizationForLocation(bins, begin, end, location), nil
}

// MetricSummary aggregates a metric's rates across locations per bin.
func (f *Facade) MetricSummary(metric string, bins int, begin, end int64) (*sul.MetricSummary, error) {
	list, err := f.metricList(metric)
	if err != nil {
		return nil, err
	}
	return list.MetricHistogram(bins, begin, end), nil
}

func (f *Facade) metricList(metric string) (*sul.List, error) {
	if f.ds.Suls == nil {
		return nil, ErrNoData
	}
	list, ok := f.ds.Suls.Metrics[metric]
	if !ok {
		return nil, ErrNoData
	}
	return list, nil
}

// PrimitiveUtilization builds the time-by-duration matrix for one primitive,
// bucketing durations over the primitive's own observed duration domain.
func (f *Facade) PrimitiveUtilization(primitive string, bins int, begin, end int64, durationBins int) ([][]float64, error) {
	if f.ds.Suls == nil {
		return nil, ErrNoData
	}
	domain, ok := f.ds.Info.IntervalDurationDomain[primitive]
	if !ok {
		return nil, ErrNoData
	}
	return f.ds.Suls.Intervals.UtilizationForPrimitive(bins, begin, end, primitive, domain.Lo, domain.Hi, durationBins)
}

// TraceForwardRecord is one block occurrence emitted by primitiveTraceForward.
type TraceForwardRecord struct {
	StartTime int64     `json:"startTime"`
	EndTime   int64     `json:"endTime"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Util      []float64 `json:"util"`
}

// PrimitiveTraceForward locates a dependency-tree node and emits one record
// per distinct block occupying each of its lanes within [begin, end]. Each
// record's util is the block's inner utilization histogram over the snapped
// sub-range.
func (f *Facade) PrimitiveTraceForward(nodeID string, bins int, begin, end int64, locations []string) ([]TraceForwardRecord, error) {
	if f.ds.DepTree == nil {
		return nil, ErrNoData
	}
	node := deptree.FindNode(f.ds.DepTree, nodeID)
	if node == nil {
		if f.ds.DepTree.NodeID == nodeID {
			node = f.ds.DepTree
		} else {
			return nil, ErrNoData
		}
	}

	records := []TraceForwardRecord{}
	for _, lane := range node.AggregatedUtil.LocationNames() {
		values := node.AggregatedUtil.UtilizationForLocation(bins, begin, end, lane)
		prev := 0.0
		for _, v := range values {
			if v == prev || v == 0 {
				prev = v
				continue
			}
			prev = v
			idx := int(v) - 1
			if idx < 0 || idx >= len(node.AggregatedBlocks) {
				continue
			}
			block := node.AggregatedBlocks[idx]
			lo, hi := block.StartTime, block.EndTime
			if lo < begin {
				lo = begin
			}
			if hi > end {
				hi = end
			}
			if hi <= lo {
				continue
			}
			util := blockUtil(block, bins, lo, hi, locations)
			records = append(records, TraceForwardRecord{
				StartTime: block.StartTime,
				EndTime:   block.EndTime,
				Name:      block.FirstPrimitiveName,
				Location:  lane,
				Util:      util,
			})
		}
	}
	return records, nil
}

func blockUtil(block *deptree.AggregatedBlock, bins int, begin, end int64, locations []string) []float64 {
	if len(locations) == 0 {
		return block.Utilization.UtilizationHistogram(bins, begin, end)
	}
	result := make([]float64, bins)
	for _, loc := range locations {
		if _, ok := block.Utilization.Locations[loc]; !ok {
			continue
		}
		forLoc := block.Utilization.UtilizationForLocation(bins, begin, end, loc)
		for i := range result {
			result[i] += forLoc[i]
		}
	}
	return result
}

// DependencyTree serializes the tree shape.
func (f *Facade) DependencyTree() (*deptree.Summary, error) {
	if f.ds.DepTree == nil {
		return nil, ErrNoData
	}
	return f.ds.DepTree.GetTheTree(), nil
}
