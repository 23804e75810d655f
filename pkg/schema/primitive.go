// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import "strings"

// Primitive is a static call site. Names may encode their source position as
// `name$...$line$char`. Name keeps only the text before the first '$'; when
// at least three chunks are present, the last two become Line and Char.
type Primitive struct {
	Name     string   `json:"name"`
	Line     string   `json:"line,omitempty"`
	Char     string   `json:"char,omitempty"`
	Parents  []string `json:"parents"`
	Children []string `json:"children"`

	// Aggregates from the performance table.
	DisplayName string  `json:"display_name,omitempty"`
	Count       int64   `json:"count,omitempty"`
	Time        float64 `json:"time,omitempty"`
	EvalDirect  float64 `json:"eval_direct,omitempty"`
	AvgTime     float64 `json:"avg_time,omitempty"`

	// Only collected in debug mode.
	Sources    []string `json:"sources,omitempty"`
	EventCount int64    `json:"eventCount,omitempty"`
}

// NewPrimitive parses the positional chunks out of a raw primitive name.
func NewPrimitive(name string) *Primitive {
	p := &Primitive{
		Name:     name,
		Parents:  []string{},
		Children: []string{},
	}
	chunks := strings.Split(name, "$")
	p.Name = chunks[0]
	if len(chunks) >= 3 {
		p.Line = chunks[len(chunks)-2]
		p.Char = chunks[len(chunks)-1]
	}
	return p
}

// PrimitiveLink is one edge of the static call graph, keyed `parent_child`.
type PrimitiveLink struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

func LinkKey(parent, child string) string {
	return parent + "_" + child
}

// TreeNode is one node of a call tree parsed from newick input or derived
// from the trace.
type TreeNode struct {
	Name     string      `json:"name"`
	Children []*TreeNode `json:"children"`
}
