// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package datastore

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"
)

var registerDriverOnce sync.Once

// connect opens one dataset's sqlite file. Every dataset owns its own
// database, so unlike a shared server db there is no singleton here; the
// hooked driver is still registered only once per process.
func connect(dbPath string) (*sqlx.DB, error) {
	registerDriverOnce.Do(func() {
		sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &Hooks{}))
	})

	dbHandle, err := sqlx.Open("sqlite3WithHooks", fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, err
	}

	// sqlite does not multithread. Having more than one connection open
	// would just mean waiting for locks.
	dbHandle.SetMaxOpenConns(1)
	return dbHandle, nil
}
