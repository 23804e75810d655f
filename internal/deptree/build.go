// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package deptree

import (
	"strings"

	"github.com/hdc-arizona/traveler-integrated/pkg/schema"
)

// IncludeFilter decides which primitives participate in the tree. Two
// interpretations of the original inclusion rule survive in the wild, so the
// choice is a configuration flag.
type IncludeFilter int

const (
	// FilterAPEXMain includes everything except names containing "APEX MAIN".
	FilterAPEXMain IncludeFilter = iota
	// FilterFlagged includes only names carrying a '$' position marker.
	FilterFlagged
)

func (f IncludeFilter) Include(primitive string) bool {
	if f == FilterFlagged {
		return strings.Contains(primitive, "$")
	}
	return !strings.Contains(primitive, "APEX MAIN")
}

// Progress is called every 2500 processed roots.
type Progress func(count int)

// Build constructs the dependency tree from the linked interval forest.
// Roots group by primitive name in id order; each root expands recursively
// into nodes that merge by name, and the finished tree finalizes block lanes
// bottom-up. Returns nil when no root passes the filter.
func Build(ivs []*schema.Interval, byID func(id string) *schema.Interval, filter IncludeFilter, progress Progress) *Node {
	primitiveOrder := []string{}
	primitiveRoots := map[string][]*schema.Interval{}
	for _, iv := range ivs {
		if iv.Parent != "" || !filter.Include(iv.Primitive) {
			continue
		}
		if _, ok := primitiveRoots[iv.Primitive]; !ok {
			primitiveOrder = append(primitiveOrder, iv.Primitive)
		}
		primitiveRoots[iv.Primitive] = append(primitiveRoots[iv.Primitive], iv)
	}

	var root *Node
	count := 0
	for _, prim := range primitiveOrder {
		for _, iv := range primitiveRoots[prim] {
			node := NewNode()
			child := expand(iv, byID, filter)
			node.AddChild(child)
			node.AggregatedBlocks = append(node.AggregatedBlocks, child.AggregatedBlocks...)
			node.IntervalList = append(node.IntervalList, child.IntervalList...)

			if root == nil {
				root = node
			} else {
				mergeTrees(root, node)
			}
			count++
			if progress != nil && count%2500 == 0 {
				progress(count)
			}
		}
	}

	if root != nil {
		root.Finalize()
	}
	return root
}

// expand builds the node for one interval: children first, so the block this
// interval opens can absorb their aggregated extents.
func expand(iv *schema.Interval, byID func(id string) *schema.Interval, filter IncludeFilter) *Node {
	node := NewNode()
	node.SetName(iv.Primitive)
	for _, childID := range iv.Children {
		child := byID(childID)
		if child == nil || !filter.Include(child.Primitive) {
			continue
		}
		node.AddChild(expand(child, byID, filter))
	}
	node.AddIntervalToAggregatedList(iv)
	return node
}

func mergeTrees(dst, src *Node) {
	if dst.Name != src.Name {
		return
	}
	for _, child := range src.Children {
		dst.AddChild(child)
	}
	dst.IntervalList = append(dst.IntervalList, src.IntervalList...)
	dst.AggregatedBlocks = append(dst.AggregatedBlocks, src.AggregatedBlocks...)
}
