// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package intervals

import (
	"github.com/hdc-arizona/traveler-integrated/pkg/schema"
)

// LinkStats counts the outcome of one linking run.
type LinkStats struct {
	Linked       int
	MissingGuids int
	NewLinks     int
	SeenLinks    int
}

// Link connects intervals that share a GUID lineage into a parent/child
// forest. Registration and linking both run in leave-time ascending order:
// each guid's candidate list ends up ordered by leave, so scanning it
// most-recent-first finds the latest-finishing candidate whose enter still
// precedes the child's enter, which is the parent that actually spawned it
// (a parent may finish before or after its children, so candidates must all
// be registered before any link resolves).
//
// addPrimitiveLink is called for every parent/child pair whose primitives
// are both known, and reports whether the edge was new.
func Link(ivs []*schema.Interval, tree *Tree, addPrimitiveLink func(parentPrim, childPrim string) bool, progress Progress) LinkStats {
	var stats LinkStats
	guids := map[string][]int{}

	tree.IterAllByLeave(func(e Entry) bool {
		iv := ivs[e.ID]
		if guid, ok := iv.GUID(); ok {
			guids[guid] = append(guids[guid], e.ID)
		} else {
			stats.MissingGuids++
		}
		return true
	})

	count := 0
	tree.IterAllByLeave(func(e Entry) bool {
		iv := ivs[e.ID]
		found := false
		if parentGuid, ok := iv.ParentGUID(); ok {
			for candidates := guids[parentGuid]; len(candidates) > 0; {
				parent := ivs[candidates[len(candidates)-1]]
				candidates = candidates[:len(candidates)-1]
				if parent == iv || parent.Enter.Timestamp > iv.Enter.Timestamp {
					continue
				}
				found = true
				stats.Linked++
				iv.Parent = parent.ID
				parent.Children = append(parent.Children, iv.ID)

				if iv.Primitive != MissingPrimitiveName && parent.Primitive != MissingPrimitiveName {
					if addPrimitiveLink(parent.Primitive, iv.Primitive) {
						stats.NewLinks++
					} else {
						stats.SeenLinks++
					}
				}
				break
			}
		}
		if !found {
			stats.MissingGuids++
		}

		count++
		if progress != nil && count%2500 == 0 {
			progress(count)
		}
		return true
	})
	return stats
}
