// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAcceptsFullConfig(t *testing.T) {
	raw := `{
		"addr": "0.0.0.0:9000",
		"db-dir": "/var/lib/traveler",
		"log-level": "info",
		"debug-sources": true,
		"dependency-tree-filter": "flagged",
		"max-cache-size": 1024,
		"nats": {"address": "nats://localhost:4222", "subject-prefix": "traveler.datasets"}
	}`
	assert.NoError(t, Validate(strings.NewReader(raw)))
}

func TestValidateRejectsBadValues(t *testing.T) {
	assert.Error(t, Validate(strings.NewReader(`{"log-level": "loud"}`)))
	assert.Error(t, Validate(strings.NewReader(`{"dependency-tree-filter": "everything"}`)))
	assert.Error(t, Validate(strings.NewReader(`{"max-cache-size": -1}`)))
	assert.Error(t, Validate(strings.NewReader(`{"nats": {}}`)))
	assert.Error(t, Validate(strings.NewReader(`not json`)))
}
