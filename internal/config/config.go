// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/hdc-arizona/traveler-integrated/pkg/log"
)

// NatsConfig connects the optional dataset lifecycle event publisher.
type NatsConfig struct {
	// Address of the NATS server (for example: 'nats://localhost:4222').
	Address  string `json:"address"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// Subjects are published as '<subject-prefix>.<datasetId>'.
	SubjectPrefix string `json:"subject-prefix,omitempty"`
}

// Format of the configuration (file). See below for the defaults.
type ProgramConfig struct {
	// Address where the http server will listen on (for example: 'localhost:8080').
	Addr string `json:"addr"`

	// Directory the per-dataset stores are kept in.
	DbDir string `json:"db-dir"`

	// Sets the logging level: `[debug, info, warn, err, crit]`
	LogLevel string `json:"log-level"`

	// Collect the set of source tags that mention each primitive.
	DebugSources bool `json:"debug-sources"`

	// Which primitives participate in the dependency tree:
	// 'apex-main' excludes names containing "APEX MAIN" (default),
	// 'flagged' includes only names carrying a '$' position marker.
	DependencyTreeFilter string `json:"dependency-tree-filter"`

	// Upper bound (bytes) of the in-memory query response cache.
	MaxCacheSize int `json:"max-cache-size"`

	// For publishing dataset lifecycle events; disabled when nil.
	Nats *NatsConfig `json:"nats,omitempty"`
}

var Keys ProgramConfig = ProgramConfig{
	Addr:                 "localhost:8080",
	DbDir:                "/tmp/traveler-integrated",
	LogLevel:             "warn",
	DebugSources:         false,
	DependencyTreeFilter: "apex-main",
	MaxCacheSize:         128 * 1024 * 1024,
}

// Init loads the config file if it exists; a missing file keeps the
// defaults, anything invalid is fatal.
func Init(flagConfigFile string) {
	raw, err := os.ReadFile(flagConfigFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("CONFIG ERROR: %v", err)
		}
		return
	}
	if err := Validate(bytes.NewReader(raw)); err != nil {
		log.Fatalf("Validate config: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		log.Fatalf("could not decode: %v", err)
	}
}
