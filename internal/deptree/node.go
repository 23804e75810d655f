// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package deptree builds the hierarchical primitive roll-up of a trace: the
// interval forest grouped by primitive name, with aggregated blocks that
// represent one logical occurrence of a primitive across its whole sub-tree.
package deptree

import (
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hdc-arizona/traveler-integrated/internal/sul"
	"github.com/hdc-arizona/traveler-integrated/pkg/schema"
)

const rootName = "root"

// Span is one interval's time extent, the only part the tree keeps.
type Span struct {
	Enter int64 `json:"enter"`
	Leave int64 `json:"leave"`
}

// AggregatedBlock is a contiguous run of time representing one logical
// occurrence of a primitive across its sub-tree.
type AggregatedBlock struct {
	StartTime          int64     `json:"startTime"`
	EndTime            int64     `json:"endTime"`
	FirstPrimitiveName string    `json:"firstPrimitiveName"`
	Utilization        *sul.List `json:"utilization"`
	AllLocations       []string  `json:"allLocations"`
	IsFinalized        bool      `json:"isFinalized"`
}

// Node is one dependency-tree node. Nodes with the same name at the same
// level are merged: children merge recursively by name, block and interval
// lists concatenate, and prefixes are added only when not already present.
type Node struct {
	NodeID           string             `json:"nodeId"`
	Name             string             `json:"name"`
	PrefixList       []string           `json:"prefixList"`
	Children         []*Node            `json:"children"`
	IntervalList     []Span             `json:"intervalList"`
	AggregatedBlocks []*AggregatedBlock `json:"aggregatedBlockList"`
	AggregatedUtil   *sul.List          `json:"aggregatedUtil"`
}

func NewNode() *Node {
	return &Node{
		NodeID:         uuid.NewString(),
		Name:           rootName,
		PrefixList:     []string{},
		Children:       []*Node{},
		IntervalList:   []Span{},
		AggregatedUtil: sul.NewRateList(false),
	}
}

// splitPrefix splits a primitive name after its second '/' separator. Names
// with fewer separators keep their full text and an empty prefix.
func splitPrefix(primitive string) (prefix, name string) {
	delimiter := "/"
	start := strings.Index(primitive, delimiter)
	if start >= 0 {
		next := strings.Index(primitive[start+len(delimiter):], delimiter)
		if next >= 0 {
			start = start + len(delimiter) + next
		} else {
			start = -1
		}
	}
	return primitive[:start+1], primitive[start+1:]
}

func (n *Node) SetName(primitive string) {
	prefix, name := splitPrefix(primitive)
	n.Name = name
	n.PrefixList = append(n.PrefixList, prefix)
}

// AddChild inserts child, merging it into an existing child of the same name
// instead of appending a duplicate.
func (n *Node) AddChild(child *Node) {
	for _, mine := range n.Children {
		if mine.Name == child.Name {
			for _, sub := range child.Children {
				mine.AddChild(sub)
			}
			for _, pre := range child.PrefixList {
				if !containsString(mine.PrefixList, pre) {
					mine.PrefixList = append(mine.PrefixList, pre)
				}
			}
			mine.AggregatedBlocks = append(mine.AggregatedBlocks, child.AggregatedBlocks...)
			mine.IntervalList = append(mine.IntervalList, child.IntervalList...)
			return
		}
	}
	n.Children = append(n.Children, child)
}

func containsString(items []string, s string) bool {
	for _, v := range items {
		if v == s {
			return true
		}
	}
	return false
}

// AddIntervalToAggregatedList opens a block for one interval: it spans at
// minimum [enter, leave], extended rightward to the latest end time found in
// any child's blocks, and its utilization starts from a deep copy of the
// union of all children blocks' critical points plus the interval's own
// +1/-1 pair.
func (n *Node) AddIntervalToAggregatedList(iv *schema.Interval) {
	startTime := iv.Enter.Timestamp
	endTime := iv.Leave.Timestamp

	block := &AggregatedBlock{
		StartTime:          startTime,
		EndTime:            endTime,
		FirstPrimitiveName: iv.Primitive,
		Utilization:        sul.NewCounterList(),
		AllLocations:       []string{iv.Location},
	}
	n.IntervalList = append(n.IntervalList, Span{Enter: startTime, Leave: endTime})

	maxTime := endTime
	for _, child := range n.Children {
		for _, childBlock := range child.AggregatedBlocks {
			if childBlock.EndTime > maxTime {
				maxTime = childBlock.EndTime
			}
			for location, points := range childBlock.Utilization.Locations {
				copied := make([]sul.CriticalPoint, len(points))
				copy(copied, points)
				block.Utilization.Locations[location] = append(block.Utilization.Locations[location], copied...)
				if !containsString(block.AllLocations, location) {
					block.AllLocations = append(block.AllLocations, location)
				}
			}
		}
	}
	block.EndTime = maxTime

	block.Utilization.Add(iv.Location, sul.CriticalPoint{Index: startTime, Counter: 1, Delta: 1, Primitive: iv.Primitive})
	block.Utilization.Add(iv.Location, sul.CriticalPoint{Index: endTime, Counter: -1, Delta: -1, Enter: startTime, Primitive: iv.Primitive})
	n.AggregatedBlocks = append(n.AggregatedBlocks, block)
}

// Finalize runs post-order over the tree: blocks sort by start time, a
// greedy sweep packs them onto lanes (synthetic "dummy locations"), and the
// node's aggregated util encodes, per lane, which block occupies it (value
// blockIndex+1, 0 meaning empty). Block utilizations finalize on first
// encounter; the root sees every child block, hence the idempotence flag.
func (n *Node) Finalize() {
	if len(n.AggregatedBlocks) > 0 {
		blocks := n.AggregatedBlocks
		sortBlocksByStart(blocks)

		locationEndTime := map[string]int64{}
		nextLane := 1
		minAmong := laneSlot{time: blocks[0].StartTime + 1, location: sul.DummyLocation}
		allLanes := []string{}

		for ind, block := range blocks {
			if !block.IsFinalized {
				block.Utilization.Finalize(block.AllLocations)
				block.IsFinalized = true
			}

			if minAmong.time < block.StartTime {
				lane := minAmong.location
				n.AggregatedUtil.Add(lane, sul.CriticalPoint{Index: block.StartTime, Util: float64(ind + 1)})
				n.AggregatedUtil.Add(lane, sul.CriticalPoint{Index: block.EndTime, Util: float64(ind + 1)})
				locationEndTime[lane] = block.EndTime
			} else {
				lane := strconv.Itoa(nextLane)
				n.AggregatedUtil.Add(lane, sul.CriticalPoint{Index: block.StartTime, Util: float64(ind + 1)})
				n.AggregatedUtil.Add(lane, sul.CriticalPoint{Index: block.EndTime, Util: float64(ind + 1)})
				locationEndTime[lane] = block.EndTime
				allLanes = append(allLanes, lane)
				nextLane++
			}
			minAmong = minLane(locationEndTime)
		}
		n.AggregatedUtil.Finalize(allLanes)
	}

	for _, child := range n.Children {
		child.Finalize()
	}
}

type laneSlot struct {
	time     int64
	location string
}

func minLane(locationEndTime map[string]int64) laneSlot {
	first := true
	var m laneSlot
	for lane, end := range locationEndTime {
		if first || m.time > end {
			m = laneSlot{time: end, location: lane}
			first = false
		}
	}
	return m
}

func sortBlocksByStart(blocks []*AggregatedBlock) {
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].StartTime < blocks[j].StartTime })
}

// Summary is the serialized tree shape returned by getDependencyTree.
type Summary struct {
	NodeID     string     `json:"nodeId"`
	Name       string     `json:"name"`
	PrefixList []string   `json:"prefixList"`
	TotalUtil  int64      `json:"totalUtil"`
	Children   []*Summary `json:"children"`
}

// GetTheTree summarizes the node recursively; totalUtil sums the raw
// interval extents.
func (n *Node) GetTheTree() *Summary {
	s := &Summary{
		NodeID:     n.NodeID,
		Name:       n.Name,
		PrefixList: n.PrefixList,
		Children:   []*Summary{},
	}
	for _, span := range n.IntervalList {
		s.TotalUtil += span.Leave - span.Enter
	}
	for _, child := range n.Children {
		s.Children = append(s.Children, child.GetTheTree())
	}
	return s
}

// FindNode locates a node by id among the descendants of n.
func FindNode(n *Node, nodeID string) *Node {
	for _, child := range n.Children {
		if child.NodeID == nodeID {
			return child
		}
		if found := FindNode(child, nodeID); found != nil {
			return found
		}
	}
	return nil
}
