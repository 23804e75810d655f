// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hdc-arizona/traveler-integrated/internal/config"
	"github.com/hdc-arizona/traveler-integrated/internal/datastore"
	"github.com/hdc-arizona/traveler-integrated/internal/deptree"
	"github.com/hdc-arizona/traveler-integrated/internal/ingest"
	"github.com/hdc-arizona/traveler-integrated/pkg/log"
)

// Bundle files into one dataset, specified as `<label>:<path>,<path>,...`.
// The file type follows from the extension.
func handleImportFlag(store *datastore.Store, flag string) error {
	label, rawPaths, found := strings.Cut(flag, ":")
	if !found || label == "" || rawPaths == "" {
		return fmt.Errorf("invalid import flag format")
	}

	ds, err := store.Create()
	if err != nil {
		return err
	}
	datasetID := ds.Info.DatasetID
	store.Rename(datasetID, label)

	filter := deptree.FilterAPEXMain
	if config.Keys.DependencyTreeFilter == "flagged" {
		filter = deptree.FilterFlagged
	}

	for _, path := range strings.Split(rawPaths, ",") {
		f, err := os.Open(path)
		if err != nil {
			store.Purge(datasetID)
			return err
		}
		name := filepath.Base(path)
		log.Infof("Importing %s into dataset %s", name, label)

		switch strings.ToLower(filepath.Ext(path)) {
		case ".otf2", ".otf2dump", ".dump":
			err = ingest.ProcessEventDump(context.Background(), store, datasetID, name, f, filter, ingest.ConsoleLogger)
		case ".csv":
			err = ingest.ProcessCsvSource(store, datasetID, name, f, ingest.ConsoleLogger)
		case ".dot":
			err = ingest.ProcessDotSource(store, datasetID, name, f, ingest.ConsoleLogger)
		case ".newick":
			err = ingest.ProcessNewickSource(store, datasetID, name, f, ingest.ConsoleLogger)
		case ".log", ".txt":
			err = ingest.ProcessLogSource(store, datasetID, name, f, ingest.ConsoleLogger)
		case ".physl":
			err = ingest.ProcessCodeSource(store, datasetID, name, "physl", f, ingest.ConsoleLogger)
		case ".py":
			err = ingest.ProcessCodeSource(store, datasetID, name, "python", f, ingest.ConsoleLogger)
		case ".cpp", ".cc", ".cxx":
			err = ingest.ProcessCodeSource(store, datasetID, name, "cpp", f, ingest.ConsoleLogger)
		default:
			err = fmt.Errorf("cannot infer file type of %s", path)
		}
		f.Close()
		if err != nil {
			store.Purge(datasetID)
			return err
		}
	}
	return store.Save(datasetID)
}
