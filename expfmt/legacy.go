// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package expfmt

import (
	"fmt"
	"os"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/progress"
	"github.com/perfmodel/perfmodel/storage"
)

// ReadLegacyFile reads the most recent experiment from a
// self-contained SQLite container, the format older tooling exported.
// The caller must have imported the storage/sqlite3 driver package.
//
// The reporter, if non-nil, counts one step per measurement row.
func ReadLegacyFile(path string, sink progress.Reporter) (*experiment.Experiment, error) {
	// Opening a data source would create a fresh database, so insist
	// that the container exists first.
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s: is a directory, want an SQLite file", path)
	}
	db, err := storage.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	defer db.Close()
	exp, err := db.LatestExperiment(sink)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return exp, nil
}
