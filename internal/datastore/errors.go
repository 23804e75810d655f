// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package datastore

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound covers unknown dataset ids/labels and ids of other entities.
var ErrNotFound = errors.New("not found")

// MissingSourceError reports required source file types the dataset was
// never populated from.
type MissingSourceError struct {
	DatasetID string
	Types     []string
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("dataset %s is missing required input files: %s", e.DatasetID, strings.Join(e.Types, ", "))
}

// NotReadyError reports source file types that are still loading; clients
// should retry once ingest finishes.
type NotReadyError struct {
	DatasetID string
	Types     []string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("dataset %s input files are still loading: %s", e.DatasetID, strings.Join(e.Types, ", "))
}
