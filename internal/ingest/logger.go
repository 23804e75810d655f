// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ingest converts uploaded source files into a dataset's stores and
// derived indexes. Each ingest runs as one batch: parse, build, index, link,
// roll up, persist. Progress and recoverable warnings stream back to the
// client through a Logger while also going to the server log.
package ingest

import (
	"fmt"
	"sync"

	"github.com/hdc-arizona/traveler-integrated/pkg/log"
)

// Logger receives ingest progress lines for live client display.
type Logger interface {
	Log(message string)
}

// LogFunc adapts a function to Logger.
type LogFunc func(message string)

func (f LogFunc) Log(message string) { f(message) }

// ConsoleLogger writes progress to the server log only; used by CLI imports.
var ConsoleLogger Logger = LogFunc(func(message string) { log.Print(message) })

// ClientLogger buffers progress lines so an HTTP handler can stream them as
// a JSON array while the ingest goroutine keeps appending.
type ClientLogger struct {
	mu       sync.Mutex
	pending  []string
	finished bool
	notify   chan struct{}
}

func NewClientLogger() *ClientLogger {
	return &ClientLogger{notify: make(chan struct{}, 1)}
}

func (cl *ClientLogger) Log(message string) {
	cl.mu.Lock()
	cl.pending = append(cl.pending, message)
	cl.mu.Unlock()
	cl.wake()
}

func (cl *ClientLogger) Logf(format string, v ...interface{}) {
	cl.Log(fmt.Sprintf(format, v...))
}

// Finish marks the stream complete; Drain returns done=true once every
// pending message was handed out.
func (cl *ClientLogger) Finish() {
	cl.mu.Lock()
	cl.finished = true
	cl.mu.Unlock()
	cl.wake()
}

func (cl *ClientLogger) wake() {
	select {
	case cl.notify <- struct{}{}:
	default:
	}
}

// Wait blocks until new messages may be available.
func (cl *ClientLogger) Wait() {
	<-cl.notify
}

// Drain returns the buffered messages and whether the stream is complete.
func (cl *ClientLogger) Drain() (messages []string, done bool) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	messages = cl.pending
	cl.pending = nil
	return messages, cl.finished && len(messages) == 0
}
