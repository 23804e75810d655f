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

// Tools for handling a combined log file
var timeParser = regexp.MustCompile(`time: ([\d\.]+)`)

// ProcessLog ingests a combined run log: a modal scan that recognizes the
// embedded newick tree, DOT graph and performance csv sections plus the
// total inclusive time line.
func ProcessLog(ds *datastore.Dataset, lines *bufio.Scanner, logger Logger) error {
	mode := ""
	var total dotCounts
	maxTime := 0.0
	for lines.Scan() {
		line := lines.Text()
		switch mode {
		case "":
			switch {
			case treeModeParser.FindString(line) != "":
				mode = "tree"
				logger.Log("Parsing tree...")
			case unflaggedTreeParser.FindString(line) != "":
				logger.Log("Parsing unflagged line that looks like a newick tree...")
				if err := ProcessNewickTree(ds, line, logger); err != nil {
					return err
				}
			case dotModeParser.FindString(line) != "":
				mode = "dot"
				logger.Log("Parsing graph...")
			case perfModeParser.FindString(line) != "":
				mode = "perf"
				logger.Log("Parsing performance csv...")
			case timeParser.FindString(line) != "":
				seconds, _ := strconv.ParseFloat(timeParser.FindStringSubmatch(line)[1], 64)
				logger.Log(fmt.Sprintf("Total inclusive time from log (converted to ns): %f", seconds*1e9))
			}
		case "tree":
			if err := ProcessNewickTree(ds, line, logger); err != nil {
				return err
			}
			mode = ""
		case "dot":
			counts, ok := processDotLine(ds, line)
			if !ok {
				mode = ""
				logger.Log("Finished parsing DOT graph")
				logger.Log(fmt.Sprintf("New primitives: %d, References to existing primitives: %d", total.newR, total.seenR))
				logger.Log(fmt.Sprintf("New links: %d, Observed existing links: %d", total.newL, total.seenL))
				total = dotCounts{}
				continue
			}
			total.newR += counts.newR
			total.seenR += counts.seenR
			total.newL += counts.newL
			total.seenL += counts.seenL
		case "perf":
			wasNew, time, ok := processCsvLine(ds, line)
			if !ok {
				mode = ""
				logger.Log("Finished parsing performance CSV")
				logger.Log(fmt.Sprintf("New primitives: %d, Observed existing primitives: %d", total.newR, total.seenR))
				logger.Log(fmt.Sprintf("Max inclusive time seen in performance CSV (ns): %f", maxTime))
				total = dotCounts{}
				maxTime = 0
				continue
			}
			if wasNew {
				total.newR++
			} else {
				total.seenR++
			}
			if time > maxTime {
				maxTime = time
			}
		}
	}
	return lines.Err()
}

// ProcessLogSource wraps ProcessLog with source-file bookkeeping.
func ProcessLogSource(store *datastore.Store, datasetID, fileName string, r io.Reader, logger Logger) error {
	ds, err := store.Get(datasetID)
	if err != nil {
		return err
	}
	if err := store.AddSourceFile(datasetID, fileName, "log"); err != nil {
		return err
	}
	if err := ProcessLog(ds, bufio.NewScanner(r), logger); err != nil {
		store.Purge(datasetID)
		return err
	}
	if err := store.FinishLoadingSourceFile(datasetID, fileName); err != nil {
		return err
	}
	return store.Save(datasetID)
}
