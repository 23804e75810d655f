// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package intervals

import (
	"testing"

	"github.com/hdc-arizona/traveler-integrated/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guidInterval(id, location, primitive string, enter, leave int64, guid, parentGuid string) *schema.Interval {
	iv := &schema.Interval{
		ID:        id,
		Location:  location,
		Primitive: primitive,
		Enter:     schema.Endpoint{Timestamp: enter},
		Leave:     schema.Endpoint{Timestamp: leave},
		Attrs:     map[string]schema.Value{},
	}
	if guid != "" {
		iv.Attrs["GUID"] = schema.StringValue(guid)
	}
	if parentGuid != "" {
		iv.Attrs["Parent GUID"] = schema.StringValue(parentGuid)
	}
	return iv
}

func TestLinkConnectsParentAndChild(t *testing.T) {
	// P spawns C on another location; C finishes first.
	p := guidInterval("0", "1", "P", 100, 400, "g1", "0")
	c := guidInterval("1", "2", "C", 200, 300, "g2", "g1")
	ivs := []*schema.Interval{p, c}
	tree := BuildIndex(ivs)

	links := [][2]string{}
	stats := Link(ivs, tree, func(parentPrim, childPrim string) bool {
		links = append(links, [2]string{parentPrim, childPrim})
		return true
	}, nil)

	assert.Equal(t, 1, stats.Linked)
	assert.Equal(t, "0", c.Parent)
	assert.Equal(t, []string{"1"}, p.Children)
	require.Len(t, links, 1)
	assert.Equal(t, [2]string{"P", "C"}, links[0])
}

func TestLinkPicksMostRecentEligibleParent(t *testing.T) {
	// Two invocations share the parent guid; the child belongs to the later
	// one that still entered before it.
	p1 := guidInterval("0", "1", "P", 0, 100, "g1", "")
	p2 := guidInterval("1", "1", "P", 150, 500, "g1", "")
	c := guidInterval("2", "2", "C", 200, 300, "g2", "g1")
	ivs := []*schema.Interval{p1, p2, c}
	tree := BuildIndex(ivs)

	Link(ivs, tree, func(string, string) bool { return true }, nil)
	assert.Equal(t, "1", c.Parent)
	assert.Empty(t, p1.Children)
	assert.Equal(t, []string{"2"}, p2.Children)
}

func TestLinkSkipsParentsEnteringLater(t *testing.T) {
	p := guidInterval("0", "1", "P", 250, 400, "g1", "")
	c := guidInterval("1", "2", "C", 200, 300, "g2", "g1")
	ivs := []*schema.Interval{p, c}
	tree := BuildIndex(ivs)

	stats := Link(ivs, tree, func(string, string) bool { return true }, nil)
	assert.Empty(t, c.Parent)
	assert.Empty(t, p.Children)
	assert.NotZero(t, stats.MissingGuids)
}

func TestLinkWithoutGuidsLeavesRoots(t *testing.T) {
	a := guidInterval("0", "1", "A", 0, 100, "", "")
	ivs := []*schema.Interval{a}
	tree := BuildIndex(ivs)

	stats := Link(ivs, tree, func(string, string) bool { return true }, nil)
	assert.Empty(t, a.Parent)
	assert.Equal(t, 0, stats.Linked)
	assert.Equal(t, 2, stats.MissingGuids)
}
