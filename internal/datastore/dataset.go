// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package datastore

import (
	"strconv"

	"github.com/hdc-arizona/traveler-integrated/internal/deptree"
	"github.com/hdc-arizona/traveler-integrated/internal/intervals"
	"github.com/hdc-arizona/traveler-integrated/internal/sul"
	"github.com/hdc-arizona/traveler-integrated/internal/util"
	"github.com/hdc-arizona/traveler-integrated/pkg/schema"
)

// Dataset bundles one trace's stores and derived indexes. Everything here is
// immutable once the source file that produced it finished loading; only
// ingest appends.
type Dataset struct {
	Info           *schema.DatasetInfo
	Primitives     map[string]*schema.Primitive
	PrimitiveLinks map[string]*schema.PrimitiveLink

	// Interval arena: the dense id of an interval is its position.
	Intervals []*schema.Interval
	Index     *intervals.Tree

	Suls    *sul.Bundle
	DepTree *deptree.Node

	// Non-PAPI metric samples, keyed metric name -> decimal timestamp.
	ProcMetrics map[string]map[string]schema.MetricPoint

	// Call trees by source kind (newick / otf2 / graph).
	Trees map[string]*schema.TreeNode

	// Attached source code, keyed physl / python / cpp.
	Code map[string]string

	dir          string
	debugSources bool
}

func newDataset(datasetID, dir string, debugSources bool) *Dataset {
	return &Dataset{
		Info:           schema.NewDatasetInfo(datasetID),
		Primitives:     map[string]*schema.Primitive{},
		PrimitiveLinks: map[string]*schema.PrimitiveLink{},
		ProcMetrics:    map[string]map[string]schema.MetricPoint{},
		Trees:          map[string]*schema.TreeNode{},
		Code:           map[string]string{},
		dir:            dir,
		debugSources:   debugSources,
	}
}

// IntervalByID resolves a dense string id, or nil.
func (ds *Dataset) IntervalByID(id string) *schema.Interval {
	i, err := strconv.Atoi(id)
	if err != nil || i < 0 || i >= len(ds.Intervals) {
		return nil
	}
	return ds.Intervals[i]
}

// ProcessPrimitive creates or returns the registry record for a name. The
// source tag is only recorded in debug mode.
func (ds *Dataset) ProcessPrimitive(name, source string) (*schema.Primitive, bool) {
	if p, ok := ds.Primitives[name]; ok {
		if ds.debugSources && !util.Contains(p.Sources, source) {
			p.Sources = append(p.Sources, source)
		}
		return p, false
	}
	p := schema.NewPrimitive(name)
	if ds.debugSources {
		p.Sources = []string{source}
	}
	ds.Primitives[name] = p
	return p, true
}

// AddPrimitiveChild records one static call edge; both adjacency lists and
// the edge record stay consistent.
func (ds *Dataset) AddPrimitiveChild(parent, child, source string) (*schema.PrimitiveLink, bool) {
	parentPrim, _ := ds.ProcessPrimitive(parent, source)
	childPrim, _ := ds.ProcessPrimitive(child, source)

	key := schema.LinkKey(parent, child)
	if link, ok := ds.PrimitiveLinks[key]; ok {
		return link, false
	}
	if !util.Contains(parentPrim.Children, child) {
		parentPrim.Children = append(parentPrim.Children, child)
	}
	if !util.Contains(childPrim.Parents, parent) {
		childPrim.Parents = append(childPrim.Parents, parent)
	}
	link := &schema.PrimitiveLink{Parent: parent, Child: child}
	ds.PrimitiveLinks[key] = link
	return link, true
}

// AddProcMetric appends one non-PAPI sample.
func (ds *Dataset) AddProcMetric(name string, timestamp int64, value float64) {
	samples, ok := ds.ProcMetrics[name]
	if !ok {
		samples = map[string]schema.MetricPoint{}
		ds.ProcMetrics[name] = samples
		if !util.Contains(ds.Info.ProcMetricList, name) {
			ds.Info.ProcMetricList = append(ds.Info.ProcMetricList, name)
		}
	}
	samples[strconv.FormatInt(timestamp, 10)] = schema.MetricPoint{Timestamp: timestamp, Value: value}
}

// NotePAPIMetric ensures a PAPI metric name is listed in the dataset info.
func (ds *Dataset) NotePAPIMetric(name string) {
	if !util.Contains(ds.Info.ProcMetricList, name) {
		ds.Info.ProcMetricList = append(ds.Info.ProcMetricList, name)
	}
}

// DebugSources reports whether primitive source tags are being collected.
func (ds *Dataset) DebugSources() bool {
	return ds.debugSources
}
