// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "traveler_ingest_events_total",
		Help: "Number of ENTER/LEAVE events parsed from event dumps.",
	})
	intervalsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "traveler_ingest_intervals_total",
		Help: "Number of intervals built from paired events.",
	})
	linesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "traveler_ingest_skipped_lines_total",
		Help: "Number of unsupported or malformed input lines dropped.",
	})
	ingestWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "traveler_ingest_warnings_total",
		Help: "Number of recoverable warnings during ingest.",
	})
)
