// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package intervals

import (
	"fmt"
	"testing"

	"github.com/hdc-arizona/traveler-integrated/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(eventType, location string, timestamp int64, primitive string) *schema.Event {
	return &schema.Event{
		Type:      eventType,
		Location:  location,
		Timestamp: timestamp,
		Primitive: primitive,
		Metrics:   map[string]float64{},
		Attrs:     map[string]schema.Value{},
	}
}

func discardWarn(format string, v ...interface{}) {}

func TestCombineNestedEvents(t *testing.T) {
	events := map[string][]*schema.Event{
		"1": {
			event("ENTER", "1", 100, "A"),
			event("ENTER", "1", 150, "B"),
			event("LEAVE", "1", 200, "B"),
			event("LEAVE", "1", 300, "A"),
		},
	}
	ivs, domain, stats := Combine(events, []string{"1"}, discardWarn, nil)

	// The nested ENTER synthesizes a LEAVE for A at 149, and A's remainder
	// picks up at 201 after B closes.
	require.Len(t, ivs, 3)
	assert.Equal(t, 3, stats.Intervals)
	require.NotNil(t, domain)
	assert.Equal(t, schema.Domain{Lo: 100, Hi: 300}, *domain)

	assert.Equal(t, "A", ivs[0].Primitive)
	assert.Equal(t, int64(100), ivs[0].Enter.Timestamp)
	assert.Equal(t, int64(149), ivs[0].Leave.Timestamp)

	assert.Equal(t, "B", ivs[1].Primitive)
	assert.Equal(t, int64(150), ivs[1].Enter.Timestamp)
	assert.Equal(t, int64(200), ivs[1].Leave.Timestamp)

	assert.Equal(t, "A", ivs[2].Primitive)
	assert.Equal(t, int64(201), ivs[2].Enter.Timestamp)
	assert.Equal(t, int64(300), ivs[2].Leave.Timestamp)

	// Interval ids are dense string-encoded integers.
	for i, iv := range ivs {
		assert.Equal(t, fmt.Sprintf("%d", i), iv.ID)
		assert.LessOrEqual(t, iv.Enter.Timestamp, iv.Leave.Timestamp)
	}
}

func TestCombineOrphanLeave(t *testing.T) {
	events := map[string][]*schema.Event{
		"1": {
			event("LEAVE", "1", 100, "X"),
			event("ENTER", "1", 200, "Y"),
			event("LEAVE", "1", 300, "Y"),
		},
	}
	warnings := 0
	warn := func(format string, v ...interface{}) { warnings++ }
	ivs, domain, stats := Combine(events, []string{"1"}, warn, nil)

	require.Len(t, ivs, 1)
	assert.Equal(t, "Y", ivs[0].Primitive)
	assert.Equal(t, schema.Domain{Lo: 200, Hi: 300}, *domain)
	assert.Equal(t, 1, stats.OrphanLeaves)
	assert.Equal(t, 1, warnings)
}

func TestCombineTrailingEnter(t *testing.T) {
	events := map[string][]*schema.Event{
		"1": {
			event("ENTER", "1", 100, "X"),
		},
	}
	ivs, domain, stats := Combine(events, []string{"1"}, discardWarn, nil)
	assert.Empty(t, ivs)
	assert.Nil(t, domain)
	assert.Equal(t, 1, stats.TrailingEnters)
}

func TestCombineAttributeMerging(t *testing.T) {
	enter := event("ENTER", "1", 100, "A")
	enter.Attrs["GUID"] = schema.StringValue("g1")
	enter.Attrs["onlyEnter"] = schema.IntValue(7)
	enter.Attrs["differs"] = schema.StringValue("a")
	leave := event("LEAVE", "1", 200, "A")
	leave.Attrs["GUID"] = schema.StringValue("g1")
	leave.Attrs["onlyLeave"] = schema.IntValue(8)
	leave.Attrs["differs"] = schema.StringValue("b")

	ivs, _, _ := Combine(map[string][]*schema.Event{"1": {enter, leave}}, []string{"1"}, discardWarn, nil)
	require.Len(t, ivs, 1)
	iv := ivs[0]

	// Equal on both sides: lifted. One-sided: stays on its endpoint.
	// Differing: stays per-side.
	assert.Equal(t, schema.StringValue("g1"), iv.Attrs["GUID"])
	assert.Equal(t, schema.IntValue(7), iv.Enter.Attrs["onlyEnter"])
	assert.Equal(t, schema.IntValue(8), iv.Leave.Attrs["onlyLeave"])
	assert.Equal(t, schema.StringValue("a"), iv.Enter.Attrs["differs"])
	assert.Equal(t, schema.StringValue("b"), iv.Leave.Attrs["differs"])

	guid, ok := iv.GUID()
	require.True(t, ok)
	assert.Equal(t, "g1", guid)
}

func TestCombinePrimitiveCoherence(t *testing.T) {
	// Disagreement: the ENTER name wins and the mismatch is counted.
	enter := event("ENTER", "1", 100, "A")
	leave := event("LEAVE", "1", 200, "B")
	ivs, _, stats := Combine(map[string][]*schema.Event{"1": {enter, leave}}, []string{"1"}, discardWarn, nil)
	require.Len(t, ivs, 1)
	assert.Equal(t, "A", ivs[0].Primitive)
	assert.Equal(t, 1, stats.MismatchedIntervals)

	// Neither side: the placeholder name is assigned.
	ivs, _, stats = Combine(map[string][]*schema.Event{"1": {
		event("ENTER", "1", 100, ""),
		event("LEAVE", "1", 200, ""),
	}}, []string{"1"}, discardWarn, nil)
	require.Len(t, ivs, 1)
	assert.Equal(t, MissingPrimitiveName, ivs[0].Primitive)
	assert.Equal(t, 1, stats.MissingPrimitives)
}
