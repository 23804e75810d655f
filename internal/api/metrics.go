// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "traveler_query_duration_seconds",
	Help:    "Duration of query requests by route.",
	Buckets: prometheus.DefBuckets,
}, []string{"route"})

// InstrumentRoute times one handler for the /metrics endpoint.
func InstrumentRoute(route string, handler http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		start := time.Now()
		handler(rw, r)
		queryDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
