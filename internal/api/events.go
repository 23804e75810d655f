// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api

import (
	"encoding/json"
	"fmt"

	"github.com/hdc-arizona/traveler-integrated/internal/config"
	"github.com/hdc-arizona/traveler-integrated/pkg/log"
	"github.com/nats-io/nats.go"
)

// EventPublisher pushes dataset lifecycle events (created, sourceReady,
// deleted) to NATS so other tools can react to finished ingests without
// polling. A nil publisher is a no-op, keeping the feature optional.
type EventPublisher struct {
	conn          *nats.Conn
	subjectPrefix string
}

// ConnectEvents dials the configured NATS server; returns nil (and no
// error) when event publishing is not configured.
func ConnectEvents() (*EventPublisher, error) {
	cfg := config.Keys.Nats
	if cfg == nil {
		return nil, nil
	}

	opts := []nats.Option{nats.Name("traveler-integrated")}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	conn, err := nats.Connect(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", cfg.Address, err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "traveler.datasets"
	}
	log.Infof("Publishing dataset events to %s on %s", prefix, cfg.Address)
	return &EventPublisher{conn: conn, subjectPrefix: prefix}, nil
}

type datasetEvent struct {
	Event     string `json:"event"`
	DatasetID string `json:"datasetId"`
}

// Publish sends one event; failures only log, they never fail the request.
func (p *EventPublisher) Publish(event, datasetID string) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(datasetEvent{Event: event, DatasetID: datasetID})
	if err != nil {
		return
	}
	subject := p.subjectPrefix + "." + datasetID
	if err := p.conn.Publish(subject, payload); err != nil {
		log.Warnf("publishing %s event for dataset %s: %v", event, datasetID, err)
	}
}

// Close drains the connection.
func (p *EventPublisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}
