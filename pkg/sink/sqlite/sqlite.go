// Copyright 2026 The ReproTrace Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlite persists trace events to a SQLite database. The whole trace
// is one transaction, committed on Close; a crashed tracer leaves no partial
// trace behind.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bSzala/reprozip/pkg/sink"
	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS processes(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	parent INTEGER,
	timestamp INTEGER NOT NULL,
	working_dir TEXT NOT NULL,
	exitcode INTEGER
);
CREATE TABLE IF NOT EXISTS opened_files(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	mode INTEGER NOT NULL,
	is_directory BOOLEAN NOT NULL,
	process INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS executed_files(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	process INTEGER NOT NULL,
	argv TEXT NOT NULL,
	envp TEXT NOT NULL,
	working_dir TEXT NOT NULL
);`

// Store implements sink.Sink over a SQLite file. A sibling lock file keeps a
// second tracer from writing the same store.
type Store struct {
	db   *sql.DB
	tx   *sql.Tx
	lock *flock.Flock
}

var _ sink.Sink = (*Store)(nil)

// Open creates or opens the store at path and takes its lock.
func Open(path string) (*Store, error) {
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking trace store: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("trace store %s is in use by another tracer", path)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("opening trace store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		lock.Unlock()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	tx, err := db.Begin()
	if err != nil {
		db.Close()
		lock.Unlock()
		return nil, err
	}
	return &Store{db: db, tx: tx, lock: lock}, nil
}

func now() int64 { return time.Now().UnixNano() }

// AddProcess implements sink.Sink.AddProcess. A negative parent is stored as
// NULL, marking the trace root.
func (s *Store) AddProcess(parent int64, workingDir string) (int64, error) {
	var par any
	if parent >= 0 {
		par = parent
	}
	res, err := s.tx.Exec(
		`INSERT INTO processes(parent, timestamp, working_dir) VALUES(?, ?, ?)`,
		par, now(), workingDir)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AddExec implements sink.Sink.AddExec. argv and envp are stored NUL-joined.
func (s *Store) AddExec(id int64, binary string, argv, envp []string, workingDir string) error {
	_, err := s.tx.Exec(
		`INSERT INTO executed_files(name, timestamp, process, argv, envp, working_dir)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		binary, now(), id, strings.Join(argv, "\x00"), strings.Join(envp, "\x00"), workingDir)
	return err
}

// AddFileOpen implements sink.Sink.AddFileOpen.
func (s *Store) AddFileOpen(id int64, path string, mode sink.FileMode, isDirectory bool) error {
	_, err := s.tx.Exec(
		`INSERT INTO opened_files(name, timestamp, mode, is_directory, process)
		 VALUES(?, ?, ?, ?, ?)`,
		path, now(), uint32(mode), isDirectory, id)
	return err
}

// AddExit implements sink.Sink.AddExit.
func (s *Store) AddExit(id int64, status int) error {
	_, err := s.tx.Exec(`UPDATE processes SET exitcode = ? WHERE id = ?`, status, id)
	return err
}

// IngestBinaryMetadata implements sink.Sink.IngestBinaryMetadata by recording
// a read of the binary itself.
func (s *Store) IngestBinaryMetadata(id int64, tid int, binary string) error {
	return s.AddFileOpen(id, binary, sink.FileRead, false)
}

// Close commits the trace and releases the store.
func (s *Store) Close() error {
	err := s.tx.Commit()
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	if lerr := s.lock.Unlock(); err == nil {
		err = lerr
	}
	return err
}
