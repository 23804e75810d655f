// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinMax(t *testing.T) {
	assert.Equal(t, 1, Min(1, 2))
	assert.Equal(t, int64(-5), Min(int64(-5), int64(3)))
	assert.Equal(t, 2.5, Max(1.5, 2.5))
	assert.Equal(t, "b", Max("a", "b"))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains([]string{"a", "b"}, "c"))
	assert.False(t, Contains(nil, 1))
}

func TestMeanAndStd(t *testing.T) {
	mean, err := Mean([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 2.5, mean)

	// Population standard deviation.
	std, err := Std([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, std, 1e-9)

	_, err = Mean(nil)
	assert.Error(t, err)
	_, err = Std(nil)
	assert.Error(t, err)
}
