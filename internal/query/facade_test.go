// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package query

import (
	"testing"

	"github.com/hdc-arizona/traveler-integrated/internal/datastore"
	"github.com/hdc-arizona/traveler-integrated/internal/deptree"
	"github.com/hdc-arizona/traveler-integrated/internal/intervals"
	"github.com/hdc-arizona/traveler-integrated/internal/sul"
	"github.com/hdc-arizona/traveler-integrated/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linkedDataset ingests a small guid-linked trace: P (loc 1, 100..400)
// spawns C (loc 2, 200..300).
func linkedDataset(t *testing.T) *datastore.Dataset {
	t.Helper()
	store, err := datastore.NewStore(t.TempDir(), false)
	require.NoError(t, err)
	ds, err := store.Create()
	require.NoError(t, err)

	p := &schema.Interval{
		ID: "0", Location: "1", Primitive: "P",
		Enter: schema.Endpoint{Timestamp: 100},
		Leave: schema.Endpoint{Timestamp: 400},
		Attrs: map[string]schema.Value{
			"GUID":        schema.StringValue("g1"),
			"Parent GUID": schema.StringValue("0"),
		},
	}
	c := &schema.Interval{
		ID: "1", Location: "2", Primitive: "C",
		Enter: schema.Endpoint{Timestamp: 200},
		Leave: schema.Endpoint{Timestamp: 300},
		Attrs: map[string]schema.Value{
			"GUID":        schema.StringValue("g2"),
			"Parent GUID": schema.StringValue("g1"),
		},
	}
	ds.Intervals = []*schema.Interval{p, c}
	ds.Index = intervals.BuildIndex(ds.Intervals)
	intervals.Link(ds.Intervals, ds.Index, func(parentPrim, childPrim string) bool {
		_, wasNew := ds.AddPrimitiveChild(parentPrim, childPrim, "otf2")
		return wasNew
	}, nil)
	ds.Info.IntervalDomain = &schema.Domain{Lo: 100, Hi: 400}
	bundle, durations := sul.Build(ds.Intervals, []string{"1", "2"}, nil)
	ds.Suls = bundle
	ds.Info.IntervalDurationDomain = durations
	ds.DepTree = deptree.Build(ds.Intervals, ds.IntervalByID, deptree.FilterAPEXMain, nil)
	return ds
}

func TestListIntervalsFilters(t *testing.T) {
	ds := linkedDataset(t)
	q := New(ds)

	collect := func(flt IntervalFilter) []string {
		ids := []string{}
		err := q.ListIntervals(100, 400, flt, func(iv *schema.Interval) bool {
			ids = append(ids, iv.ID)
			return true
		})
		require.NoError(t, err)
		return ids
	}

	assert.Equal(t, []string{"0", "1"}, collect(IntervalFilter{}))
	assert.Equal(t, []string{"1"}, collect(IntervalFilter{Location: "2"}))
	assert.Equal(t, []string{"0"}, collect(IntervalFilter{Primitive: "P"}))
	assert.Equal(t, []string{"1"}, collect(IntervalFilter{Guid: "g2"}))

	min := int64(200)
	assert.Equal(t, []string{"0"}, collect(IntervalFilter{MinDuration: &min}))
	max := int64(150)
	assert.Equal(t, []string{"1"}, collect(IntervalFilter{MaxDuration: &max}))
}

func TestIntervalTraceWindowClip(t *testing.T) {
	ds := linkedDataset(t)
	q := New(ds)

	// The whole domain: C and its ancestor P on the ancestors side, target
	// then parent; descendants contain just C.
	trace, err := q.IntervalTrace("1", 100, 400)
	require.NoError(t, err)
	require.Len(t, trace.Ancestors, 2)
	assert.Equal(t, "1", trace.Ancestors[0].ID)
	assert.True(t, trace.Ancestors[0].Node.HasParentField)
	assert.Equal(t, "0", *trace.Ancestors[0].Node.Parent)
	assert.Equal(t, "0", trace.Ancestors[1].ID)
	assert.Equal(t, "1", *trace.Ancestors[1].Node.Child)

	// A narrow window inside C: P is offscreen but still emitted as a
	// boundary node carrying the child link.
	trace, err = q.IntervalTrace("1", 250, 260)
	require.NoError(t, err)
	require.Len(t, trace.Ancestors, 2)
	assert.Equal(t, "1", trace.Ancestors[0].ID)
	assert.Equal(t, "0", trace.Ancestors[1].ID)
	require.NotNil(t, trace.Ancestors[1].Node.Child)
	assert.Equal(t, "1", *trace.Ancestors[1].Node.Child)
	assert.Equal(t, int64(100), trace.Ancestors[1].Node.Enter)
	assert.Equal(t, "1", trace.Ancestors[1].Node.Location)
}

func TestIntervalTraceDescendantsClosure(t *testing.T) {
	ds := linkedDataset(t)
	q := New(ds)

	trace, err := q.IntervalTrace("0", 100, 400)
	require.NoError(t, err)

	ids := []string{}
	for _, entry := range trace.Descendants {
		ids = append(ids, entry.ID)
	}
	// The transitive closure of children rooted at the target.
	assert.Equal(t, []string{"0", "1"}, ids)
}

func TestUtilizationHistogramRouting(t *testing.T) {
	ds := linkedDataset(t)
	q := New(ds)

	// Summed over locations: P covers [100, 400], C adds [200, 300].
	data, err := q.UtilizationHistogram(3, 100, 400, nil, "")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0, 2.0, 1.0}, data)

	// Restricted to C's location.
	data, err = q.UtilizationHistogram(3, 100, 400, []string{"2"}, "")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.0, 1.0, 0.0}, data)

	// A primitive routes to its duration histogram.
	data, err = q.UtilizationHistogram(1, 100, 100, nil, "C")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0}, data)

	_, err = q.UtilizationHistogram(1, 0, 1, nil, "unknown")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = q.UtilizationHistogram(1, 0, 1, []string{"1"}, "P")
	assert.Error(t, err)
}

func TestPrimitiveTraceForward(t *testing.T) {
	ds := linkedDataset(t)
	q := New(ds)

	summary, err := q.DependencyTree()
	require.NoError(t, err)
	require.Len(t, summary.Children, 1)
	nodeID := summary.Children[0].NodeID

	records, err := q.PrimitiveTraceForward(nodeID, 10, 100, 400, nil)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, "P", records[0].Name)
	assert.Equal(t, int64(100), records[0].StartTime)
	assert.Equal(t, int64(400), records[0].EndTime)
	assert.Len(t, records[0].Util, 10)

	_, err = q.PrimitiveTraceForward("nope", 10, 100, 400, nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestGetInterval(t *testing.T) {
	ds := linkedDataset(t)
	q := New(ds)
	require.NotNil(t, q.GetInterval("0"))
	assert.Nil(t, q.GetInterval("42"))
	assert.Nil(t, q.GetInterval("bogus"))
}
