// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hdc-arizona/traveler-integrated/internal/datastore"
	"github.com/hdc-arizona/traveler-integrated/internal/deptree"
	"github.com/hdc-arizona/traveler-integrated/internal/intervals"
	"github.com/hdc-arizona/traveler-integrated/internal/sul"
	"github.com/hdc-arizona/traveler-integrated/pkg/log"
)

// ProcessEventDump runs the full trace pipeline: parse, pair intervals,
// index, link guids, build utilization lists, build the dependency tree, and
// persist. Recoverable oddities log warnings and keep going; any other error
// aborts and purges the partially-populated dataset.
func ProcessEventDump(ctx context.Context, store *datastore.Store, datasetID, fileName string, r io.Reader, filter deptree.IncludeFilter, logger Logger) error {
	err := processEventDump(ctx, store, datasetID, fileName, r, filter, logger)
	if err != nil {
		logger.Log(fmt.Sprintf("ERROR: ingest failed, removing dataset: %v", err))
		store.Purge(datasetID)
	}
	return err
}

func processEventDump(ctx context.Context, store *datastore.Store, datasetID, fileName string, r io.Reader, filter deptree.IncludeFilter, logger Logger) error {
	ds, err := store.Get(datasetID)
	if err != nil {
		return err
	}
	if err := store.AddSourceFile(datasetID, fileName, "otf2"); err != nil {
		return err
	}

	raw, err := ParseEvents(ctx, r, ds, logger)
	if err != nil {
		return err
	}
	eventsParsed.Add(float64(raw.NumEvents))
	linesSkipped.Add(float64(raw.UnsupportedSkippedLines + raw.BadAddAttrLines))

	warn := func(format string, v ...interface{}) {
		ingestWarnings.Inc()
		log.Warnf(format, v...)
		logger.Log("WARNING: " + fmt.Sprintf(format, v...))
	}

	logger.Log("Combining enter / leave events into intervals (.=2500 intervals)")
	ivs, domain, stats := intervals.Combine(raw.EventsByLocation, raw.Locations, warn, func(count int) {
		logger.Log(".")
		if count%100000 == 0 {
			logger.Log(fmt.Sprintf("processed %d intervals", count))
		}
	})
	if err := ctx.Err(); err != nil {
		return err
	}
	ds.Intervals = ivs
	ds.Info.IntervalDomain = domain
	intervalsBuilt.Add(float64(stats.Intervals))
	logger.Log(fmt.Sprintf("Finished creating %d intervals; %d had no primitive name; %d had mismatching primitives (ENTER primitive used)",
		stats.Intervals, stats.MissingPrimitives, stats.MismatchedIntervals))

	logger.Log("Building interval index")
	ds.Index = intervals.BuildIndex(ivs)
	logger.Log(fmt.Sprintf("Finished indexing %d intervals", len(ivs)))

	logger.Log("Connecting intervals with the same GUID (.=2500 intervals)")
	linkStats := intervals.Link(ds.Intervals, ds.Index, func(parentPrim, childPrim string) bool {
		_, wasNew := ds.AddPrimitiveChild(parentPrim, childPrim, "otf2")
		return wasNew
	}, func(int) { logger.Log(".") })
	logger.Log("Finished connecting intervals")
	logger.Log(fmt.Sprintf("Interval links created: %d, Intervals without prior parent GUIDs: %d", linkStats.Linked, linkStats.MissingGuids))
	logger.Log(fmt.Sprintf("New primitive links based on GUIDs: %d, Observed existing links: %d", linkStats.NewLinks, linkStats.SeenLinks))

	logger.Log("Building sparse utilization indexes (.=2500 intervals)")
	bundle, durationDomains := sul.Build(ds.Intervals, raw.Locations, func(count int) {
		logger.Log(".")
		if count%100000 == 0 {
			logger.Log(fmt.Sprintf("processed %d intervals", count))
		}
	})
	if err := ctx.Err(); err != nil {
		return err
	}
	ds.Suls = bundle
	ds.Info.IntervalDurationDomain = durationDomains
	reportPrimitiveDiscrepancies(ds, bundle, logger)

	logger.Log("Building dependency tree")
	ds.DepTree = deptree.Build(ds.Intervals, ds.IntervalByID, filter, nil)

	if err := store.FinishLoadingSourceFile(datasetID, fileName); err != nil {
		return err
	}
	logger.Log("Saving dataset")
	return store.Save(datasetID)
}

// reportPrimitiveDiscrepancies compares the primitives the registry expected
// against the ones intervals were actually observed for.
func reportPrimitiveDiscrepancies(ds *datastore.Dataset, bundle *sul.Bundle, logger Logger) {
	observed := map[string]bool{}
	for _, name := range bundle.ObservedPrimitives() {
		observed[name] = true
	}
	extraExpected := []string{}
	for name := range ds.Primitives {
		if !observed[name] {
			extraExpected = append(extraExpected, name)
		}
		delete(observed, name)
	}
	extraObserved := []string{}
	for name := range observed {
		extraObserved = append(extraObserved, name)
	}
	if len(extraExpected) > 0 {
		logger.Log("WARNING: Did not observe intervals for primitives: " + strings.Join(extraExpected, ", "))
	}
	if len(extraObserved) > 0 {
		logger.Log("WARNING: Observed intervals for unknown primitives: " + strings.Join(extraObserved, ", "))
	}
}
