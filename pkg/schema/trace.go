// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Event is one parsed ENTER/LEAVE line with its trailing metric samples and
// additional attributes.
type Event struct {
	Type      string // "ENTER" or "LEAVE"
	Location  string
	Timestamp int64
	Primitive string
	Metrics   map[string]float64
	Attrs     map[string]Value
}

// Endpoint is one side of an interval (the enter or the leave event), reduced
// to the fields the attribute-merging rule left there.
type Endpoint struct {
	Timestamp int64
	Metrics   map[string]float64
	Attrs     map[string]Value
}

// Interval is one dynamic invocation on one location. Ids are dense
// string-encoded integers; parent/children adjacency is stored as id lists so
// the structure stays acyclic for serialization.
type Interval struct {
	ID        string
	Location  string
	Primitive string
	Enter     Endpoint
	Leave     Endpoint
	Attrs     map[string]Value // attributes equal on both sides, lifted
	Parent    string           // empty means root
	Children  []string
}

func (iv *Interval) Duration() int64 {
	return iv.Leave.Timestamp - iv.Enter.Timestamp
}

// attr returns a lifted attribute, falling back to the enter event.
func (iv *Interval) attr(key string) (Value, bool) {
	if v, ok := iv.Attrs[key]; ok {
		return v, true
	}
	v, ok := iv.Enter.Attrs[key]
	return v, ok
}

// GUID names the logical task instance this interval belongs to.
func (iv *Interval) GUID() (string, bool) {
	v, ok := iv.attr("GUID")
	if !ok {
		return "", false
	}
	return v.String(), true
}

// ParentGUID names the task instance that spawned this one, possibly on a
// different location.
func (iv *Interval) ParentGUID() (string, bool) {
	v, ok := iv.attr("Parent GUID")
	if !ok {
		return "", false
	}
	return v.String(), true
}

// The wire format splats attributes next to the fixed fields, matching what
// trace viewers already consume:
//
//	{"intervalId": "0", "Location": "1", "Primitive": "A",
//	 "enter": {"Timestamp": 100, "metrics": {...}, ...},
//	 "leave": {...}, "parent": null, "children": [...], ...}

func (e Endpoint) MarshalJSON() ([]byte, error) {
	obj := make(map[string]interface{}, len(e.Attrs)+2)
	obj["Timestamp"] = e.Timestamp
	if e.Metrics != nil {
		obj["metrics"] = e.Metrics
	}
	for k, v := range e.Attrs {
		obj[k] = v
	}
	return json.Marshal(obj)
}

func (e *Endpoint) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	for k, raw := range obj {
		switch k {
		case "Timestamp":
			if err := json.Unmarshal(raw, &e.Timestamp); err != nil {
				return err
			}
		case "metrics":
			if err := json.Unmarshal(raw, &e.Metrics); err != nil {
				return err
			}
		default:
			var v Value
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			if e.Attrs == nil {
				e.Attrs = make(map[string]Value)
			}
			e.Attrs[k] = v
		}
	}
	return nil
}

func (iv Interval) MarshalJSON() ([]byte, error) {
	obj := make(map[string]interface{}, len(iv.Attrs)+7)
	obj["intervalId"] = iv.ID
	obj["Location"] = iv.Location
	obj["Primitive"] = iv.Primitive
	obj["enter"] = iv.Enter
	obj["leave"] = iv.Leave
	if iv.Parent == "" {
		obj["parent"] = nil
	} else {
		obj["parent"] = iv.Parent
	}
	children := iv.Children
	if children == nil {
		children = []string{}
	}
	obj["children"] = children
	for k, v := range iv.Attrs {
		obj[k] = v
	}
	return json.Marshal(obj)
}

func (iv *Interval) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	for k, raw := range obj {
		var err error
		switch k {
		case "intervalId":
			err = json.Unmarshal(raw, &iv.ID)
		case "Location":
			err = json.Unmarshal(raw, &iv.Location)
		case "Primitive":
			err = json.Unmarshal(raw, &iv.Primitive)
		case "enter":
			err = json.Unmarshal(raw, &iv.Enter)
		case "leave":
			err = json.Unmarshal(raw, &iv.Leave)
		case "parent":
			if string(raw) != "null" {
				err = json.Unmarshal(raw, &iv.Parent)
			}
		case "children":
			err = json.Unmarshal(raw, &iv.Children)
		default:
			var v Value
			if err = json.Unmarshal(raw, &v); err == nil {
				if iv.Attrs == nil {
					iv.Attrs = make(map[string]Value)
				}
				iv.Attrs[k] = v
			}
		}
		if err != nil {
			return fmt.Errorf("interval field %q: %w", k, err)
		}
	}
	return nil
}

// MetricPoint is one non-PAPI metric sample.
type MetricPoint struct {
	Timestamp int64   `json:"Timestamp"`
	Value     float64 `json:"Value"`
}

// SortedMetricTimestamps returns the sample keys of one proc metric in
// ascending timestamp order (map keys are the decimal timestamps).
func SortedMetricTimestamps(samples map[string]MetricPoint) []MetricPoint {
	points := make([]MetricPoint, 0, len(samples))
	for _, p := range samples {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
	return points
}
