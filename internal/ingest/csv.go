// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/hdc-arizona/traveler-integrated/internal/datastore"
)

// Tools for handling the performance csv
var (
	perfModeParser = regexp.MustCompile(`primitive_instance,display_name,count,time,eval_direct`)
	perfLineParser = regexp.MustCompile(`"([^"]*)","([^"]*)",(\d+),(\d+),(-?\d)`)
)

// processCsvLine fills one primitive's aggregates from a performance table
// row; returns the primitive's inclusive time, or ok=false when the line
// ends the table.
func processCsvLine(ds *datastore.Dataset, line string) (newPrimitive bool, time float64, ok bool) {
	perfLine := perfLineParser.FindStringSubmatch(line)
	if perfLine == nil {
		return false, 0, false
	}

	primitiveName := perfLine[1]
	primitive, wasNew := ds.ProcessPrimitive(primitiveName, "csv")
	primitive.DisplayName = perfLine[2]
	primitive.Count, _ = strconv.ParseInt(perfLine[3], 10, 64)
	primitive.Time, _ = strconv.ParseFloat(perfLine[4], 64)
	primitive.EvalDirect, _ = strconv.ParseFloat(perfLine[5], 64)
	if primitive.Count != 0 {
		primitive.AvgTime = primitive.Time / float64(primitive.Count)
	} else {
		primitive.AvgTime = primitive.Time
	}
	return wasNew, primitive.Time, true
}

// ProcessCsv ingests a performance table: the header row followed by one row
// per primitive instance.
func ProcessCsv(ds *datastore.Dataset, lines *bufio.Scanner, logger Logger) error {
	if !lines.Scan() || perfModeParser.FindString(lines.Text()) == "" {
		return fmt.Errorf("performance csv is missing its header row")
	}
	newR, seenR := 0, 0
	maxTime := 0.0
	for lines.Scan() {
		wasNew, time, ok := processCsvLine(ds, lines.Text())
		if !ok {
			break
		}
		if wasNew {
			newR++
		} else {
			seenR++
		}
		if time > maxTime {
			maxTime = time
		}
	}
	if err := lines.Err(); err != nil {
		return err
	}
	logger.Log("Finished parsing performance CSV")
	logger.Log(fmt.Sprintf("New primitives: %d, Observed existing primitives: %d", newR, seenR))
	logger.Log(fmt.Sprintf("Max inclusive time seen in performance CSV (ns): %f", maxTime))
	return nil
}

// ProcessCsvSource wraps ProcessCsv with source-file bookkeeping.
func ProcessCsvSource(store *datastore.Store, datasetID, fileName string, r io.Reader, logger Logger) error {
	ds, err := store.Get(datasetID)
	if err != nil {
		return err
	}
	if err := store.AddSourceFile(datasetID, fileName, "csv"); err != nil {
		return err
	}
	if err := ProcessCsv(ds, bufio.NewScanner(r), logger); err != nil {
		store.Purge(datasetID)
		return err
	}
	if err := store.FinishLoadingSourceFile(datasetID, fileName); err != nil {
		return err
	}
	return store.Save(datasetID)
}
