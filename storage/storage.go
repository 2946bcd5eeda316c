// Copyright 2025 The perfmodel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package storage persists experiments and their fitted models in a
// SQL database. It is used both as the output store of the command
// line tools and as the reader of self-contained experiment files in
// the legacy SQLite container format.
//
// Only mysql and sqlite3 are explicitly supported; other database
// engines will receive MySQL query syntax which may or may not be
// compatible.
package storage

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/perfmodel/perfmodel/experiment"
	"github.com/perfmodel/perfmodel/modeler"
	"github.com/perfmodel/perfmodel/progress"
)

// DB is a high-level interface to an experiment database. It's safe
// for concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB
	// prepared statements
	insertExperiment  *sql.Stmt
	insertMeasurement *sql.Stmt
	insertModel       *sql.Stmt
}

// ParseDSN splits a data source of the form "sqlite3:file.db" or
// "mysql:user:passwd@tcp(host)/db" into a driver name and the
// driver's data source. A plain path with no prefix is an sqlite3
// database file.
func ParseDSN(dsn string) (driverName, dataSourceName string) {
	if rest, ok := strings.CutPrefix(dsn, "sqlite3:"); ok {
		return "sqlite3", rest
	}
	if rest, ok := strings.CutPrefix(dsn, "mysql:"); ok {
		return "mysql", rest
	}
	return "sqlite3", dsn
}

// Open creates a DB backed by a SQL database. The parameters are the
// same as the parameters for sql.Open. The schema is created if it
// does not exist yet.
func Open(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		db.Close()
		return nil, err
	}
	if err := d.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a
// connection to driverName. This is used by the sqlite3 subpackage to
// bound the connection pool. It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Experiments (
	ExperimentID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}},
	Created DATETIME,
	Parameters VARCHAR(1024)
);
CREATE TABLE IF NOT EXISTS Measurements (
	ExperimentID BIGINT UNSIGNED,
	Callpath VARCHAR(4096),
	Metric VARCHAR(255),
	Coordinate VARCHAR(1024),
	Samples BLOB,
	FOREIGN KEY (ExperimentID) REFERENCES Experiments(ExperimentID) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS Models (
	ExperimentID BIGINT UNSIGNED,
	Callpath VARCHAR(4096),
	Metric VARCHAR(255),
	Modeler VARCHAR(255),
	Function VARCHAR(4096),
	RSS DOUBLE,
	SMAPE DOUBLE,
	AR2 DOUBLE,
	FOREIGN KEY (ExperimentID) REFERENCES Experiments(ExperimentID) ON UPDATE CASCADE ON DELETE CASCADE
);
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements() error {
	var err error
	db.insertExperiment, err = db.sql.Prepare(
		"INSERT INTO Experiments(Created, Parameters) VALUES (?, ?)")
	if err != nil {
		return err
	}
	db.insertMeasurement, err = db.sql.Prepare(
		"INSERT INTO Measurements(ExperimentID, Callpath, Metric, Coordinate, Samples) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	db.insertModel, err = db.sql.Prepare(
		"INSERT INTO Models(ExperimentID, Callpath, Metric, Modeler, Function, RSS, SMAPE, AR2) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	return nil
}

// SaveExperiment writes one experiment and returns its ID. The whole
// experiment is written in a single transaction.
func (db *DB) SaveExperiment(exp *experiment.Experiment) (id int64, err error) {
	params, err := json.Marshal(exp.ParameterNames())
	if err != nil {
		return 0, err
	}
	tx, err := db.sql.Begin()
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	res, err := tx.Stmt(db.insertExperiment).Exec(time.Now(), string(params))
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, pair := range exp.Pairs() {
		for _, m := range exp.Measurements(pair.Callpath, pair.Metric) {
			coord, err := json.Marshal([]float64(m.Coordinate))
			if err != nil {
				return 0, err
			}
			samples, err := json.Marshal(m.Values)
			if err != nil {
				return 0, err
			}
			if _, err := tx.Stmt(db.insertMeasurement).Exec(id, pair.Callpath.Name, pair.Metric.Name, string(coord), samples); err != nil {
				return 0, err
			}
		}
	}
	return id, nil
}

// SaveModels writes the fitted models of the experiment with the
// given ID. Functions are stored in their display form, rendered with
// the experiment's parameter names.
func (db *DB) SaveModels(expID int64, paramNames []string, models []*modeler.Model) (err error) {
	tx, err := db.sql.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	for _, m := range models {
		if m.Function == nil {
			continue
		}
		_, err := tx.Stmt(db.insertModel).Exec(expID,
			m.Callpath.Name, m.Metric.Name, m.Modeler,
			m.Function.Format(paramNames),
			m.Stats.RSS, m.Stats.SMAPE, m.Stats.AR2)
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadExperiment reads back the experiment with the given ID. The
// reporter, if non-nil, is advanced once per measurement row.
func (db *DB) LoadExperiment(id int64, sink progress.Reporter) (*experiment.Experiment, error) {
	if sink == nil {
		sink = progress.Discard
	}
	var paramsJSON string
	err := db.sql.QueryRow("SELECT Parameters FROM Experiments WHERE ExperimentID = ?", id).Scan(&paramsJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no experiment with ID %d", id)
	}
	if err != nil {
		return nil, err
	}
	var paramNames []string
	if err := json.Unmarshal([]byte(paramsJSON), &paramNames); err != nil {
		return nil, fmt.Errorf("experiment %d has bad parameter list: %v", id, err)
	}
	exp := experiment.New()
	for _, name := range paramNames {
		if _, err := exp.AddParameter(name); err != nil {
			return nil, err
		}
	}

	var total int
	if err := db.sql.QueryRow("SELECT COUNT(*) FROM Measurements WHERE ExperimentID = ?", id).Scan(&total); err != nil {
		return nil, err
	}
	sink.SetTotal(total)

	rows, err := db.sql.Query("SELECT Callpath, Metric, Coordinate, Samples FROM Measurements WHERE ExperimentID = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			callpath, metric, coordJSON string
			samplesJSON                 []byte
		)
		if err := rows.Scan(&callpath, &metric, &coordJSON, &samplesJSON); err != nil {
			return nil, err
		}
		var coord experiment.Coordinate
		if err := json.Unmarshal([]byte(coordJSON), &coord); err != nil {
			return nil, fmt.Errorf("experiment %d has bad coordinate %q: %v", id, coordJSON, err)
		}
		var samples []float64
		if err := json.Unmarshal(samplesJSON, &samples); err != nil {
			return nil, fmt.Errorf("experiment %d has bad samples for %s/%s: %v", id, callpath, metric, err)
		}
		m, err := experiment.NewMeasurement(exp.Callpath(callpath), exp.Metric(metric), coord, samples)
		if err != nil {
			return nil, fmt.Errorf("experiment %d: %v", id, err)
		}
		if err := exp.AddMeasurement(m); err != nil {
			return nil, fmt.Errorf("experiment %d: %v", id, err)
		}
		sink.Step(1)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := exp.Validate(); err != nil {
		return nil, fmt.Errorf("experiment %d: %v", id, err)
	}
	return exp, nil
}

// LatestExperiment reads back the most recently saved experiment.
func (db *DB) LatestExperiment(sink progress.Reporter) (*experiment.Experiment, error) {
	var id sql.NullInt64
	if err := db.sql.QueryRow("SELECT MAX(ExperimentID) FROM Experiments").Scan(&id); err != nil {
		return nil, err
	}
	if !id.Valid {
		return nil, fmt.Errorf("store contains no experiments")
	}
	return db.LoadExperiment(id.Int64, sink)
}

// A StoredModel is one row of the Models table.
type StoredModel struct {
	Callpath string
	Metric   string
	Modeler  string
	Function string
	RSS      float64
	SMAPE    float64
	AR2      float64
}

// Models reads back the models stored for one experiment, ordered by
// call path and metric.
func (db *DB) Models(expID int64) ([]StoredModel, error) {
	rows, err := db.sql.Query(
		"SELECT Callpath, Metric, Modeler, Function, RSS, SMAPE, AR2 FROM Models WHERE ExperimentID = ? ORDER BY Callpath, Metric", expID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var models []StoredModel
	for rows.Next() {
		var m StoredModel
		if err := rows.Scan(&m.Callpath, &m.Metric, &m.Modeler, &m.Function, &m.RSS, &m.SMAPE, &m.AR2); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// Close closes the database connections, releasing any open
// resources.
func (db *DB) Close() error {
	if err := db.insertExperiment.Close(); err != nil {
		return err
	}
	if err := db.insertMeasurement.Close(); err != nil {
		return err
	}
	if err := db.insertModel.Close(); err != nil {
		return err
	}
	return db.sql.Close()
}
