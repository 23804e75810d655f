// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "traveler-integrated configuration file schema",
  "type": "object",
  "properties": {
    "addr": {
      "description": "Address where the http server will listen on",
      "type": "string"
    },
    "db-dir": {
      "description": "Directory the per-dataset stores are kept in",
      "type": "string"
    },
    "log-level": {
      "description": "Logging level",
      "type": "string",
      "enum": ["debug", "info", "warn", "err", "crit"]
    },
    "debug-sources": {
      "description": "Collect the set of source tags that mention each primitive",
      "type": "boolean"
    },
    "dependency-tree-filter": {
      "description": "Which primitives participate in the dependency tree",
      "type": "string",
      "enum": ["apex-main", "flagged"]
    },
    "max-cache-size": {
      "description": "Upper bound (bytes) of the in-memory query response cache",
      "type": "integer",
      "minimum": 0
    },
    "nats": {
      "description": "Dataset lifecycle event publishing",
      "type": "object",
      "properties": {
        "address": { "type": "string" },
        "username": { "type": "string" },
        "password": { "type": "string" },
        "subject-prefix": { "type": "string" }
      },
      "required": ["address"]
    }
  }
}`

// Validate checks a raw config document against the embedded schema.
func Validate(r io.Reader) error {
	var doc interface{}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	schema, err := jsonschema.CompileString("config.json", configSchema)
	if err != nil {
		return fmt.Errorf("failed to compile config schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
