// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import "encoding/json"

// SourceFile describes one input a dataset was populated from.
type SourceFile struct {
	FileName     string `json:"fileName"`
	FileType     string `json:"fileType"`
	StillLoading bool   `json:"stillLoading"`
}

// Domain is an inclusive [Lo, Hi] timestamp range.
type Domain struct {
	Lo int64
	Hi int64
}

func (d Domain) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{d.Lo, d.Hi})
}

func (d *Domain) UnmarshalJSON(data []byte) error {
	var pair [2]int64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	d.Lo, d.Hi = pair[0], pair[1]
	return nil
}

// DatasetInfo is the `info` record of a dataset: everything small enough to
// keep in one keyed row and needed to answer /datasets without touching the
// derived indexes.
type DatasetInfo struct {
	DatasetID              string            `json:"datasetId"`
	Label                  string            `json:"label"`
	Tags                   map[string]bool   `json:"tags"`
	SourceFiles            []SourceFile      `json:"sourceFiles"`
	LocationNames          []string          `json:"locationNames,omitempty"`
	IntervalDomain         *Domain           `json:"intervalDomain,omitempty"`
	IntervalDurationDomain map[string]Domain `json:"intervalDurationDomain,omitempty"`
	ProcMetricList         []string          `json:"procMetricList,omitempty"`
}

const DefaultLabel = "Untitled dataset"

func NewDatasetInfo(datasetID string) *DatasetInfo {
	return &DatasetInfo{
		DatasetID:   datasetID,
		Label:       DefaultLabel,
		Tags:        map[string]bool{},
		SourceFiles: []SourceFile{},
	}
}

// SourceFile lookup by name; nil if the dataset never ingested it.
func (info *DatasetInfo) FindSourceFile(name string) *SourceFile {
	for i := range info.SourceFiles {
		if info.SourceFiles[i].FileName == name {
			return &info.SourceFiles[i]
		}
	}
	return nil
}

// HasSourceType reports whether any source file of the given type exists and
// whether all files of that type finished loading.
func (info *DatasetInfo) HasSourceType(fileType string) (present bool, ready bool) {
	ready = true
	for _, sf := range info.SourceFiles {
		if sf.FileType == fileType {
			present = true
			if sf.StillLoading {
				ready = false
			}
		}
	}
	if !present {
		ready = false
	}
	return present, ready
}
