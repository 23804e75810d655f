// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package intervals

import (
	"sort"
)

// Entry is one interval key in the index. The upper bound is stored as
// leave+1: zero-length intervals must remain queryable and upper bounds are
// exclusive.
type Entry struct {
	Lo int64 `json:"lo"`
	Hi int64 `json:"hi"`
	ID int   `json:"id"`
}

// Tree is a static augmented interval tree over [enter, leave+1) keys. It is
// built once after ingest and never mutated, so it is laid out as a sorted
// array with subtree max-end augmentation instead of a pointer structure.
type Tree struct {
	// Sorted by Lo ascending, then ID ascending.
	Entries []Entry `json:"entries"`
	// MaxHi[i] is the maximum Hi within the subtree rooted at i of the
	// implicit balanced tree over Entries (midpoint recursion).
	MaxHi []int64 `json:"maxHi"`
	// ByLeave holds entry positions ordered by Hi ascending, then ID.
	ByLeave []int `json:"byLeave"`
}

// Build constructs the index. keys[i] must hold the interval with dense id i.
func Build(keys []Entry) *Tree {
	t := &Tree{Entries: make([]Entry, len(keys))}
	copy(t.Entries, keys)
	sort.Slice(t.Entries, func(i, j int) bool {
		if t.Entries[i].Lo != t.Entries[j].Lo {
			return t.Entries[i].Lo < t.Entries[j].Lo
		}
		return t.Entries[i].ID < t.Entries[j].ID
	})

	t.MaxHi = make([]int64, len(t.Entries))
	t.augment(0, len(t.Entries)-1)

	t.ByLeave = make([]int, len(t.Entries))
	for i := range t.ByLeave {
		t.ByLeave[i] = i
	}
	sort.Slice(t.ByLeave, func(a, b int) bool {
		ea, eb := t.Entries[t.ByLeave[a]], t.Entries[t.ByLeave[b]]
		if ea.Hi != eb.Hi {
			return ea.Hi < eb.Hi
		}
		return ea.ID < eb.ID
	})
	return t
}

func (t *Tree) augment(lo, hi int) int64 {
	if lo > hi {
		return -1 << 62
	}
	mid := lo + (hi-lo)/2
	m := t.Entries[mid].Hi
	if l := t.augment(lo, mid-1); l > m {
		m = l
	}
	if r := t.augment(mid+1, hi); r > m {
		m = r
	}
	t.MaxHi[mid] = m
	return m
}

func (t *Tree) Len() int {
	return len(t.Entries)
}

// IterOverlap calls visit for every entry whose [Lo, Hi) key overlaps the
// inclusive query range [begin, end], in Lo-ascending order. Returning false
// stops the iteration.
func (t *Tree) IterOverlap(begin, end int64, visit func(Entry) bool) {
	t.overlap(0, len(t.Entries)-1, begin, end, visit)
}

func (t *Tree) overlap(lo, hi int, begin, end int64, visit func(Entry) bool) bool {
	if lo > hi {
		return true
	}
	mid := lo + (hi-lo)/2
	if t.MaxHi[mid] <= begin {
		// Nothing in this subtree ends after the window starts.
		return true
	}
	if !t.overlap(lo, mid-1, begin, end, visit) {
		return false
	}
	e := t.Entries[mid]
	if e.Lo <= end && e.Hi > begin {
		if !visit(e) {
			return false
		}
	}
	if e.Lo <= end {
		// Entries right of mid start at or after e.Lo.
		if !t.overlap(mid+1, hi, begin, end, visit) {
			return false
		}
	}
	return true
}

// IterAllByLeave calls visit for every entry in leave-time ascending order,
// the traversal order the guid linker depends on.
func (t *Tree) IterAllByLeave(visit func(Entry) bool) {
	for _, pos := range t.ByLeave {
		if !visit(t.Entries[pos]) {
			return
		}
	}
}
