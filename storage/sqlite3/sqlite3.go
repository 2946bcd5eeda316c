// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite3 registers the go-sqlite3 driver with package
// storage, enabling "sqlite3:" data sources. Importing it also
// installs an open hook that bounds the pool to one connection, since
// every connection to a ":memory:" data source sees its own empty
// database.
package sqlite3

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/perfmodel/perfmodel/storage"
)

func init() {
	storage.RegisterOpenHook("sqlite3", func(db *sql.DB) error {
		db.SetMaxOpenConns(1)
		return nil
	})
}
