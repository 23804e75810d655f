// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package deptree

import (
	"testing"

	"github.com/hdc-arizona/traveler-integrated/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func span(id, location, primitive string, enter, leave int64, parent string, children ...string) *schema.Interval {
	return &schema.Interval{
		ID:        id,
		Location:  location,
		Primitive: primitive,
		Enter:     schema.Endpoint{Timestamp: enter},
		Leave:     schema.Endpoint{Timestamp: leave},
		Parent:    parent,
		Children:  children,
	}
}

func byIDFunc(ivs []*schema.Interval) func(string) *schema.Interval {
	index := map[string]*schema.Interval{}
	for _, iv := range ivs {
		index[iv.ID] = iv
	}
	return func(id string) *schema.Interval { return index[id] }
}

func TestSplitPrefix(t *testing.T) {
	prefix, name := splitPrefix("/phylanx$0/function$0$cannon/0$49$0")
	assert.Equal(t, "/phylanx$0/", prefix)
	assert.Equal(t, "function$0$cannon/0$49$0", name)

	prefix, name = splitPrefix("plain")
	assert.Equal(t, "", prefix)
	assert.Equal(t, "plain", name)
}

func TestBuildMergesSiblingsByName(t *testing.T) {
	// Two root invocations of the same primitive, each with one child of the
	// same name: the merged tree has one child node whose interval list is
	// the concatenation.
	ivs := []*schema.Interval{
		span("0", "1", "P", 0, 100, "", "1"),
		span("1", "1", "Q", 10, 50, "0"),
		span("2", "1", "P", 200, 300, "", "3"),
		span("3", "1", "Q", 210, 250, "2"),
	}
	root := Build(ivs, byIDFunc(ivs), FilterAPEXMain, nil)
	require.NotNil(t, root)

	require.Len(t, root.Children, 1)
	p := root.Children[0]
	assert.Equal(t, "P", p.Name)
	assert.Len(t, p.IntervalList, 2)

	require.Len(t, p.Children, 1)
	q := p.Children[0]
	assert.Equal(t, "Q", q.Name)
	assert.Len(t, q.IntervalList, 2)
	assert.Len(t, q.AggregatedBlocks, 2)
}

func TestBuildAppliesFilter(t *testing.T) {
	ivs := []*schema.Interval{
		span("0", "1", "APEX MAIN", 0, 1000, "", "1"),
		span("1", "1", "work", 10, 900, "0"),
	}
	root := Build(ivs, byIDFunc(ivs), FilterAPEXMain, nil)
	// APEX MAIN roots are excluded; its child is not a root, so no tree.
	require.Nil(t, root)

	flagged := []*schema.Interval{
		span("0", "1", "a$1$2", 0, 100, ""),
		span("1", "1", "plain", 0, 100, ""),
	}
	root = Build(flagged, byIDFunc(flagged), FilterFlagged, nil)
	require.NotNil(t, root)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "a$1$2", root.Children[0].Name)
}

func TestAggregatedBlockExtension(t *testing.T) {
	// A child block ending after its parent's leave extends the parent block
	// rightward.
	ivs := []*schema.Interval{
		span("0", "1", "P", 0, 100, "", "1"),
		span("1", "2", "Q", 50, 250, "0"),
	}
	root := Build(ivs, byIDFunc(ivs), FilterAPEXMain, nil)
	require.NotNil(t, root)
	p := root.Children[0]
	require.Len(t, p.AggregatedBlocks, 1)

	block := p.AggregatedBlocks[0]
	assert.Equal(t, int64(0), block.StartTime)
	assert.Equal(t, int64(250), block.EndTime)
	assert.ElementsMatch(t, []string{"1", "2"}, block.AllLocations)
	assert.True(t, block.IsFinalized)
}

func TestFinalizeAssignsLanes(t *testing.T) {
	// Two overlapping root invocations need two lanes; a third that starts
	// after the first ends reuses a lane.
	ivs := []*schema.Interval{
		span("0", "1", "P", 0, 100, ""),
		span("1", "2", "P", 50, 150, ""),
		span("2", "1", "P", 120, 200, ""),
	}
	root := Build(ivs, byIDFunc(ivs), FilterAPEXMain, nil)
	require.NotNil(t, root)
	p := root.Children[0]

	lanes := p.AggregatedUtil.LocationNames()
	assert.Len(t, lanes, 2)

	// The lane utilization encodes which block occupies it (index+1).
	values := p.AggregatedUtil.UtilizationForLocation(4, 0, 200, lanes[0])
	nonZero := 0
	for _, v := range values {
		if v != 0 {
			nonZero++
		}
	}
	assert.NotZero(t, nonZero)
}

func TestGetTheTree(t *testing.T) {
	ivs := []*schema.Interval{
		span("0", "1", "P", 0, 100, "", "1"),
		span("1", "1", "Q", 10, 50, "0"),
	}
	root := Build(ivs, byIDFunc(ivs), FilterAPEXMain, nil)
	require.NotNil(t, root)

	summary := root.GetTheTree()
	assert.Equal(t, "root", summary.Name)
	require.Len(t, summary.Children, 1)
	assert.Equal(t, "P", summary.Children[0].Name)
	assert.Equal(t, int64(100), summary.Children[0].TotalUtil)
	require.Len(t, summary.Children[0].Children, 1)
	assert.Equal(t, int64(40), summary.Children[0].Children[0].TotalUtil)

	found := FindNode(root, summary.Children[0].NodeID)
	require.NotNil(t, found)
	assert.Equal(t, "P", found.Name)
}
