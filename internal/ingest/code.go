// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"fmt"
	"io"

	"github.com/hdc-arizona/traveler-integrated/internal/datastore"
	"github.com/hdc-arizona/traveler-integrated/internal/util"
)

// CodeTypes lists the source-code attachments a dataset can carry.
var CodeTypes = []string{"physl", "python", "cpp"}

// ProcessCodeSource stores a source file's text verbatim.
func ProcessCodeSource(store *datastore.Store, datasetID, fileName, codeType string, r io.Reader, logger Logger) error {
	if !util.Contains(CodeTypes, codeType) {
		return fmt.Errorf("unknown code type: %s", codeType)
	}
	ds, err := store.Get(datasetID)
	if err != nil {
		return err
	}
	text, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := store.AddSourceFile(datasetID, fileName, codeType); err != nil {
		return err
	}
	ds.Code[codeType] = string(text)
	if err := store.FinishLoadingSourceFile(datasetID, fileName); err != nil {
		return err
	}
	logger.Log(fmt.Sprintf("Finished parsing %s code", codeType))
	return store.Save(datasetID)
}
