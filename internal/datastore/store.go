// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package datastore owns the collection of datasets: lifecycle, lookup and
// sqlite persistence. In-memory indexes are per-dataset and immutable after
// ingest; the store map itself is the only shared mutable state and is
// guarded by a single RWMutex.
package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hdc-arizona/traveler-integrated/internal/util"
	"github.com/hdc-arizona/traveler-integrated/pkg/log"
	"github.com/hdc-arizona/traveler-integrated/pkg/schema"
)

type Store struct {
	dbDir        string
	debugSources bool

	mu       sync.RWMutex
	order    []string
	datasets map[string]*Dataset
}

func NewStore(dbDir string, debugSources bool) (*Store, error) {
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, err
	}
	return &Store{
		dbDir:        dbDir,
		debugSources: debugSources,
		datasets:     map[string]*Dataset{},
	}, nil
}

// Create registers a fresh, empty dataset and initializes its directory and
// database file.
func (s *Store) Create() (*Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var datasetID string
	for datasetID == "" || s.datasets[datasetID] != nil {
		datasetID = uuid.NewString()
	}

	dir := filepath.Join(s.dbDir, datasetID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	ds := newDataset(datasetID, dir, s.debugSources)
	if err := ds.save(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("initialize dataset %s: %w", datasetID, err)
	}

	s.datasets[datasetID] = ds
	s.order = append(s.order, datasetID)
	return ds, nil
}

// Get looks a dataset up by id only.
func (s *Store) Get(datasetID string) (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[datasetID]
	if !ok {
		return nil, ErrNotFound
	}
	return ds, nil
}

// Resolve looks a dataset up by id, falling back to a label scan in
// insertion order; on label collision the first created dataset wins.
func (s *Store) Resolve(idOrLabel string) (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ds, ok := s.datasets[idOrLabel]; ok {
		return ds, nil
	}
	for _, id := range s.order {
		if s.datasets[id].Info.Label == idOrLabel {
			return s.datasets[id], nil
		}
	}
	return nil, ErrNotFound
}

// List returns every dataset in insertion order.
func (s *Store) List() []*Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Dataset, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.datasets[id])
	}
	return result
}

// Delete removes a dataset and purges its directory.
func (s *Store) Delete(datasetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.datasets[datasetID]
	if !ok {
		return ErrNotFound
	}
	delete(s.datasets, datasetID)
	for i, id := range s.order {
		if id == datasetID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return os.RemoveAll(ds.dir)
}

// Purge drops a dataset after a failed ingest, directory included. Missing
// entries are ignored so purge is safe to call from any error path.
func (s *Store) Purge(datasetID string) {
	if err := s.Delete(datasetID); err != nil && err != ErrNotFound {
		log.Errorf("purging dataset %s: %v", datasetID, err)
	}
}

// Load restores every dataset directory found under dbDir. A dataset with a
// missing or unreadable required store aborts the load.
func (s *Store) Load() error {
	entries, err := os.ReadDir(s.dbDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		datasetID := entry.Name()
		ds, err := loadDataset(datasetID, filepath.Join(s.dbDir, datasetID), s.debugSources)
		if err != nil {
			return fmt.Errorf("loading dataset %s: %w", datasetID, err)
		}
		s.mu.Lock()
		s.datasets[datasetID] = ds
		s.order = append(s.order, datasetID)
		s.mu.Unlock()
		log.Infof("Finished loading %s (%s)", datasetID, ds.Info.Label)
	}
	return nil
}

// Save persists one dataset; a failed save purges the directory so the next
// load cannot observe a partial write.
func (s *Store) Save(datasetID string) error {
	ds, err := s.Get(datasetID)
	if err != nil {
		return err
	}
	if err := ds.save(); err != nil {
		s.Purge(datasetID)
		return fmt.Errorf("saving dataset %s: %w", datasetID, err)
	}
	return nil
}

func (s *Store) AddSourceFile(datasetID, fileName, fileType string) error {
	ds, err := s.Get(datasetID)
	if err != nil {
		return err
	}
	ds.Info.SourceFiles = append(ds.Info.SourceFiles, schema.SourceFile{
		FileName:     fileName,
		FileType:     fileType,
		StillLoading: true,
	})
	return nil
}

func (s *Store) FinishLoadingSourceFile(datasetID, fileName string) error {
	ds, err := s.Get(datasetID)
	if err != nil {
		return err
	}
	sf := ds.Info.FindSourceFile(fileName)
	if sf == nil {
		return fmt.Errorf("can't finish unknown source file: %s", fileName)
	}
	sf.StillLoading = false
	return nil
}

// Rename strips leading/trailing slashes and spaces; an empty result falls
// back to the default label.
func (s *Store) Rename(datasetID, label string) error {
	ds, err := s.Get(datasetID)
	if err != nil {
		return err
	}
	label = strings.Trim(label, "/ ")
	if label == "" {
		label = schema.DefaultLabel
	}
	ds.Info.Label = label
	return nil
}

func (s *Store) AddTags(datasetID string, tags map[string]bool) error {
	ds, err := s.Get(datasetID)
	if err != nil {
		return err
	}
	for tag, v := range tags {
		ds.Info.Tags[tag] = v
	}
	return nil
}

func (s *Store) SetTags(datasetID string, tags map[string]bool) error {
	ds, err := s.Get(datasetID)
	if err != nil {
		return err
	}
	ds.Info.Tags = tags
	return nil
}

// AddTagToAll tags every dataset.
func (s *Store) AddTagToAll(tag string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ds := range s.datasets {
		ds.Info.Tags[tag] = true
	}
}

// Validate resolves a dataset and enforces per-endpoint readiness: all
// required source types must be present, and the listed types (or every
// type, when allReady is set) must have finished loading.
func (s *Store) Validate(idOrLabel string, requiredFiles, filesMustBeReady []string, allReady bool) (*Dataset, error) {
	ds, err := s.Resolve(idOrLabel)
	if err != nil {
		return nil, err
	}

	missing := []string{}
	for _, ftype := range requiredFiles {
		if present, _ := ds.Info.HasSourceType(ftype); !present {
			missing = append(missing, ftype)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingSourceError{DatasetID: ds.Info.DatasetID, Types: missing}
	}

	notReady := []string{}
	if allReady {
		for _, sf := range ds.Info.SourceFiles {
			if sf.StillLoading && !util.Contains(notReady, sf.FileType) {
				notReady = append(notReady, sf.FileType)
			}
		}
	} else {
		for _, ftype := range filesMustBeReady {
			if present, ready := ds.Info.HasSourceType(ftype); present && !ready {
				notReady = append(notReady, ftype)
			}
		}
	}
	if len(notReady) > 0 {
		return nil, &NotReadyError{DatasetID: ds.Info.DatasetID, Types: notReady}
	}
	return ds, nil
}
