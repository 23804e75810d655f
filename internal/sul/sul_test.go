// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package sul

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterListWithNesting() *List {
	// Two overlapping intervals on one location: [100, 300] and [150, 200].
	l := NewCounterList()
	l.Add("1", CriticalPoint{Index: 100, Counter: 1, Delta: 1, Primitive: "A"})
	l.Add("1", CriticalPoint{Index: 300, Counter: -1, Delta: -1, Enter: 100, Primitive: "A"})
	l.Add("1", CriticalPoint{Index: 150, Counter: 1, Delta: 1, Primitive: "B"})
	l.Add("1", CriticalPoint{Index: 200, Counter: -1, Delta: -1, Enter: 150, Primitive: "B"})
	l.Finalize([]string{"1"})
	return l
}

func TestFinalizeCounterMode(t *testing.T) {
	l := counterListWithNesting()
	points := l.Locations["1"]
	require.Len(t, points, 4)

	assert.Equal(t, []int64{100, 150, 200, 300}, []int64{points[0].Index, points[1].Index, points[2].Index, points[3].Index})
	assert.Equal(t, []int64{1, 2, 1, 0}, []int64{points[0].Counter, points[1].Counter, points[2].Counter, points[3].Counter})
	assert.Equal(t, []float64{0, 50, 150, 250}, []float64{points[0].Util, points[1].Util, points[2].Util, points[3].Util})

	// util differences are the area of the counter step function, and
	// concurrency returns to zero over the full domain.
	for i := 1; i < len(points); i++ {
		expected := points[i-1].Util + float64(points[i].Index-points[i-1].Index)*float64(points[i-1].Counter)
		assert.Equal(t, expected, points[i].Util)
	}
	assert.Equal(t, int64(0), points[len(points)-1].Counter)
}

func TestUtilizationForLocation(t *testing.T) {
	l := counterListWithNesting()

	// Average concurrency per bin: [100, 200) covers one interval plus the
	// nested one, [200, 300) just the outer one.
	histogram := l.UtilizationForLocation(2, 100, 300, "1")
	assert.Equal(t, []float64{1.5, 1.0}, histogram)

	// One bin over the whole domain: total busy time / total time.
	whole := l.UtilizationForLocation(1, 100, 300, "1")
	assert.Equal(t, []float64{1.25}, whole)
}

func TestUtilizationHistogramSumsLocations(t *testing.T) {
	l := NewCounterList()
	l.Add("1", CriticalPoint{Index: 0, Counter: 1, Delta: 1})
	l.Add("1", CriticalPoint{Index: 100, Counter: -1, Delta: -1})
	l.Add("2", CriticalPoint{Index: 0, Counter: 1, Delta: 1})
	l.Add("2", CriticalPoint{Index: 50, Counter: -1, Delta: -1, Enter: 0})
	l.Finalize([]string{"1", "2"})

	histogram := l.UtilizationHistogram(2, 0, 100)
	assert.Equal(t, []float64{2.0, 1.0}, histogram)
}

func TestMetricHistogramSummary(t *testing.T) {
	// Metric M sampled t=0,v=0; t=10,v=10; t=20,v=30 on loc 1 and
	// t=0,v=0; t=10,v=5; t=20,v=15 on loc 2, as instantaneous rates.
	l := NewRateList(false)
	l.Add("1", CriticalPoint{Index: 0, Util: 0})
	l.Add("1", CriticalPoint{Index: 10, Util: 1.0})
	l.Add("1", CriticalPoint{Index: 20, Util: 2.0})
	l.Add("2", CriticalPoint{Index: 0, Util: 0})
	l.Add("2", CriticalPoint{Index: 10, Util: 0.5})
	l.Add("2", CriticalPoint{Index: 20, Util: 1.0})
	l.Finalize(nil)

	assert.Equal(t, []float64{1.0, 2.0}, l.UtilizationForLocation(2, 0, 20, "1"))
	assert.Equal(t, []float64{0.5, 1.0}, l.UtilizationForLocation(2, 0, 20, "2"))

	summary := l.MetricHistogram(2, 0, 20)
	assert.Equal(t, []float64{0.5, 1.0}, summary.Min)
	assert.Equal(t, []float64{1.0, 2.0}, summary.Max)
	assert.Equal(t, []float64{0.75, 1.5}, summary.Average)
	assert.InDelta(t, 0.25, summary.Std[0], 1e-9)
	assert.InDelta(t, 0.5, summary.Std[1], 1e-9)
}

func TestUtilizationForPrimitive(t *testing.T) {
	// Two invocations of Q with durations 10 and 40.
	l := NewCounterList()
	l.Add("1", CriticalPoint{Index: 0, Counter: 1, Delta: 1, Primitive: "Q"})
	l.Add("1", CriticalPoint{Index: 10, Counter: -1, Delta: -1, Enter: 0, Primitive: "Q"})
	l.Add("1", CriticalPoint{Index: 20, Counter: 1, Delta: 1, Primitive: "Q"})
	l.Add("1", CriticalPoint{Index: 60, Counter: -1, Delta: -1, Enter: 20, Primitive: "Q"})
	l.Finalize([]string{"1"})

	matrix, err := l.UtilizationForPrimitive(4, 0, 100, "Q", 0, 40, 4)
	require.NoError(t, err)
	require.Len(t, matrix, 4)
	for _, cell := range matrix[0] {
		assert.Zero(t, cell)
	}

	assert.Equal(t, 10.0, matrix[1][1])
	assert.Equal(t, 40.0, matrix[3][4])

	total := 0.0
	for _, row := range matrix {
		for _, cell := range row {
			total += cell
		}
	}
	assert.Equal(t, 50.0, total)

	// Non-matching primitives contribute nothing.
	other, err := l.UtilizationForPrimitive(4, 0, 100, "R", 0, 40, 4)
	require.NoError(t, err)
	for _, row := range other {
		for _, cell := range row {
			assert.Zero(t, cell)
		}
	}
}

func TestIntervalHistogram(t *testing.T) {
	hist := NewRateList(true)
	hist.Add(DummyLocation, CriticalPoint{Index: 10, Util: 1})
	hist.Add(DummyLocation, CriticalPoint{Index: 40, Util: 1})
	hist.Finalize([]string{DummyLocation})

	counts := hist.IntervalHistogram(2, 10, 40)
	assert.Equal(t, []float64{1, 1}, counts)
}

func TestFinalizeMaterializesEmptyLocations(t *testing.T) {
	l := NewCounterList()
	l.Add("1", CriticalPoint{Index: 0, Counter: 1, Delta: 1})
	l.Add("1", CriticalPoint{Index: 10, Counter: -1, Delta: -1})
	l.Finalize([]string{"1", "2"})

	_, ok := l.Locations["2"]
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0}, l.UtilizationForLocation(2, 0, 10, "2"))
}
