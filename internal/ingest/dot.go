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

	"github.com/hdc-arizona/traveler-integrated/internal/datastore"
)

// Tools for handling the DOT graph
var (
	dotModeParser = regexp.MustCompile(`graph "[^"]*" {`)
	dotLineParser = regexp.MustCompile(`"([^"]*)" -- "([^"]*)";`)
)

type dotCounts struct {
	newR, seenR, newL, seenL int
}

// processDotLine registers both endpoints of one `"a" -- "b";` edge and the
// link between them; ok=false ends the graph.
func processDotLine(ds *datastore.Dataset, line string) (dotCounts, bool) {
	var counts dotCounts
	dotLine := dotLineParser.FindStringSubmatch(line)
	if dotLine == nil {
		return counts, false
	}

	for _, name := range []string{dotLine[1], dotLine[2]} {
		if _, wasNew := ds.ProcessPrimitive(name, "dot"); wasNew {
			counts.newR++
		} else {
			counts.seenR++
		}
	}
	if _, wasNew := ds.AddPrimitiveChild(dotLine[1], dotLine[2], "dot"); wasNew {
		counts.newL++
	} else {
		counts.seenL++
	}
	return counts, true
}

// ProcessDot ingests a DOT-formatted call graph.
func ProcessDot(ds *datastore.Dataset, lines *bufio.Scanner, logger Logger) error {
	if !lines.Scan() || dotModeParser.FindString(lines.Text()) == "" {
		return fmt.Errorf("dot graph is missing its header line")
	}
	var total dotCounts
	for lines.Scan() {
		counts, ok := processDotLine(ds, lines.Text())
		if !ok {
			break
		}
		total.newR += counts.newR
		total.seenR += counts.seenR
		total.newL += counts.newL
		total.seenL += counts.seenL
	}
	if err := lines.Err(); err != nil {
		return err
	}
	logger.Log("Finished parsing DOT graph")
	logger.Log(fmt.Sprintf("New primitives: %d, References to existing primitives: %d", total.newR, total.seenR))
	logger.Log(fmt.Sprintf("New links: %d, Observed existing links: %d", total.newL, total.seenL))
	return nil
}

// ProcessDotSource wraps ProcessDot with source-file bookkeeping.
func ProcessDotSource(store *datastore.Store, datasetID, fileName string, r io.Reader, logger Logger) error {
	ds, err := store.Get(datasetID)
	if err != nil {
		return err
	}
	if err := store.AddSourceFile(datasetID, fileName, "dot"); err != nil {
		return err
	}
	if err := ProcessDot(ds, bufio.NewScanner(r), logger); err != nil {
		store.Purge(datasetID)
		return err
	}
	if err := store.FinishLoadingSourceFile(datasetID, fileName); err != nil {
		return err
	}
	return store.Save(datasetID)
}
