// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package datastore

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	"github.com/hdc-arizona/traveler-integrated/internal/deptree"
	"github.com/hdc-arizona/traveler-integrated/internal/intervals"
	"github.com/hdc-arizona/traveler-integrated/internal/sul"
	"github.com/hdc-arizona/traveler-integrated/pkg/schema"
	"github.com/jmoiron/sqlx"
)

// One sqlite file per dataset directory. Small keyed stores live in
// key -> gzip(JSON) tables; the large derived indexes are one gzip(JSON)
// blob each in the blobs table.
const dbFileName = "traveler.db"

const (
	blobSul            = "sparseUtilizationList"
	blobIntervalIndex  = "intervalIndex"
	blobDependencyTree = "dependencyTree"
)

func compress(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(blob []byte, v interface{}) error {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return err
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return err
	}
	if err := zr.Close(); err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func putRow(tx *sqlx.Tx, table, key string, v interface{}) error {
	blob, err := compress(v)
	if err != nil {
		return fmt.Errorf("%s/%s: %w", table, key, err)
	}
	query, args, err := sq.Insert(table).Columns("key", "value").Values(key, blob).
		Suffix("ON CONFLICT(key) DO UPDATE SET value=excluded.value").ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(query, args...)
	return err
}

func eachRow(db *sqlx.DB, table string, visit func(key string, blob []byte) error) error {
	query, args, err := sq.Select("key", "value").From(table).ToSql()
	if err != nil {
		return err
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var blob []byte
		if err := rows.Scan(&key, &blob); err != nil {
			return err
		}
		if err := visit(key, blob); err != nil {
			return err
		}
	}
	return rows.Err()
}

// save rewrites every store of the dataset in one transaction. The caller
// purges the directory if this fails.
func (ds *Dataset) save() error {
	db, err := connect(filepath.Join(ds.dir, dbFileName))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := migrateDB(db); err != nil {
		return err
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"info", "primitives", "primitive_links", "intervals", "proc_metrics", "trees", "code", "blobs"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}

	if err := putRow(tx, "info", "info", ds.Info); err != nil {
		return err
	}
	for name, prim := range ds.Primitives {
		if err := putRow(tx, "primitives", name, prim); err != nil {
			return err
		}
	}
	for key, link := range ds.PrimitiveLinks {
		if err := putRow(tx, "primitive_links", key, link); err != nil {
			return err
		}
	}
	for _, iv := range ds.Intervals {
		if err := putRow(tx, "intervals", iv.ID, iv); err != nil {
			return err
		}
	}
	for name, samples := range ds.ProcMetrics {
		if err := putRow(tx, "proc_metrics", name, samples); err != nil {
			return err
		}
	}
	for source, tree := range ds.Trees {
		if err := putRow(tx, "trees", source, tree); err != nil {
			return err
		}
	}
	for codeType, text := range ds.Code {
		if err := putRow(tx, "code", codeType, text); err != nil {
			return err
		}
	}

	if ds.Suls != nil {
		if err := putRow(tx, "blobs", blobSul, ds.Suls); err != nil {
			return err
		}
	}
	if ds.Index != nil {
		if err := putRow(tx, "blobs", blobIntervalIndex, ds.Index); err != nil {
			return err
		}
	}
	if ds.DepTree != nil {
		if err := putRow(tx, "blobs", blobDependencyTree, ds.DepTree); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// loadDataset restores one dataset directory. The info row is required;
// derived blobs are only present when a trace was ingested.
func loadDataset(datasetID, dir string, debugSources bool) (*Dataset, error) {
	db, err := connect(filepath.Join(dir, dbFileName))
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := migrateDB(db); err != nil {
		return nil, err
	}

	ds := newDataset(datasetID, dir, debugSources)

	var infoBlob []byte
	query, args, _ := sq.Select("value").From("info").Where(sq.Eq{"key": "info"}).ToSql()
	if err := db.QueryRow(query, args...).Scan(&infoBlob); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("required info record missing")
		}
		return nil, err
	}
	if err := decompress(infoBlob, ds.Info); err != nil {
		return nil, err
	}
	ds.Info.DatasetID = datasetID

	err = eachRow(db, "primitives", func(key string, blob []byte) error {
		p := &schema.Primitive{}
		if err := decompress(blob, p); err != nil {
			return err
		}
		ds.Primitives[key] = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachRow(db, "primitive_links", func(key string, blob []byte) error {
		link := &schema.PrimitiveLink{}
		if err := decompress(blob, link); err != nil {
			return err
		}
		ds.PrimitiveLinks[key] = link
		return nil
	})
	if err != nil {
		return nil, err
	}

	intervalsByID := map[string]*schema.Interval{}
	err = eachRow(db, "intervals", func(key string, blob []byte) error {
		iv := &schema.Interval{}
		if err := decompress(blob, iv); err != nil {
			return err
		}
		intervalsByID[key] = iv
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(intervalsByID) > 0 {
		ds.Intervals = make([]*schema.Interval, len(intervalsByID))
		for id, iv := range intervalsByID {
			var pos int
			if _, err := fmt.Sscanf(id, "%d", &pos); err != nil || pos < 0 || pos >= len(ds.Intervals) {
				return nil, fmt.Errorf("interval id %q is not dense", id)
			}
			ds.Intervals[pos] = iv
		}
	}

	err = eachRow(db, "proc_metrics", func(key string, blob []byte) error {
		samples := map[string]schema.MetricPoint{}
		if err := decompress(blob, &samples); err != nil {
			return err
		}
		ds.ProcMetrics[key] = samples
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachRow(db, "trees", func(key string, blob []byte) error {
		tree := &schema.TreeNode{}
		if err := decompress(blob, tree); err != nil {
			return err
		}
		ds.Trees[key] = tree
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachRow(db, "code", func(key string, blob []byte) error {
		var text string
		if err := decompress(blob, &text); err != nil {
			return err
		}
		ds.Code[key] = text
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachRow(db, "blobs", func(key string, blob []byte) error {
		switch key {
		case blobSul:
			ds.Suls = &sul.Bundle{}
			return decompress(blob, ds.Suls)
		case blobIntervalIndex:
			ds.Index = &intervals.Tree{}
			return decompress(blob, ds.Index)
		case blobDependencyTree:
			ds.DepTree = &deptree.Node{}
			return decompress(blob, ds.DepTree)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ds, nil
}
