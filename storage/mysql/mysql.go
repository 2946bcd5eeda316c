// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mysql registers the go-sql-driver MySQL driver with
// package storage, enabling "mysql:" data sources.
package mysql

import (
	_ "github.com/go-sql-driver/mysql"
)
