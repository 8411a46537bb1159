package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/yumyai/swarmtable/pkg/model"

	_ "modernc.org/sqlite"
)

// Defining possible error
var OTUNotExists = errors.New("OTU does not exist")

var ErrNotWriting = errors.New("OTU database is not in a write transaction")

const schema = `
CREATE TABLE IF NOT EXISTS samples (
	sample_idx INTEGER PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS otus (
	name        TEXT PRIMARY KEY,
	line_no     INTEGER NOT NULL,
	seed_id     TEXT NOT NULL,
	seed_size   INTEGER NOT NULL,
	total_reads INTEGER NOT NULL,
	header_size TEXT,
	sequence    TEXT
);
CREATE TABLE IF NOT EXISTS abundances (
	otu_name   TEXT NOT NULL,
	sample_idx INTEGER NOT NULL,
	reads      INTEGER NOT NULL,
	PRIMARY KEY (otu_name, sample_idx)
);
CREATE INDEX IF NOT EXISTS otus_line ON otus(line_no);
`

// OTUDB stores the result of a run: samples, OTU rows and representative
// sequences. While a write transaction is open it acts as both a
// model.TableSink and a model.SequenceSink.
type OTUDB struct {
	db *sql.DB

	ctx            context.Context
	tx             *sql.Tx
	insertSample   *sql.Stmt
	insertOTU      *sql.Stmt
	insertAbund    *sql.Stmt
	updateSequence *sql.Stmt

	recordName string
	recordSize string
	record     strings.Builder
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*OTUDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, path)
	}
	// One connection: SQLite serialises writers, and ":memory:" databases
	// exist per connection.
	db.SetMaxOpenConns(1)

	store, err := NewOTUDB(db)
	if err != nil {
		db.Close()
		return nil, pkgerrors.Wrap(err, path)
	}
	return store, nil
}

func NewOTUDB(db *sql.DB) (*OTUDB, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &OTUDB{db: db}, nil
}

func (s *OTUDB) Close() error {
	if s.tx != nil {
		s.Rollback()
	}
	return s.db.Close()
}

// Begin starts the write transaction of a run. Previous content is replaced.
func (s *OTUDB) Begin(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, table := range []string{"abundances", "otus", "samples"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			tx.Rollback()
			return err
		}
	}

	prepared := []struct {
		stmt  **sql.Stmt
		query string
	}{
		{&s.insertSample, `INSERT INTO samples (sample_idx, name) VALUES (?, ?)`},
		{&s.insertOTU, `INSERT INTO otus (name, line_no, seed_id, seed_size, total_reads) VALUES (?, ?, ?, ?, ?)`},
		{&s.insertAbund, `INSERT INTO abundances (otu_name, sample_idx, reads) VALUES (?, ?, ?)`},
		{&s.updateSequence, `UPDATE otus SET header_size = ?, sequence = ? WHERE name = ?`},
	}
	for _, p := range prepared {
		stmt, err := tx.PrepareContext(ctx, p.query)
		if err != nil {
			tx.Rollback()
			return err
		}
		*p.stmt = stmt
	}

	s.ctx = ctx
	s.tx = tx
	return nil
}

func (s *OTUDB) Commit() error {
	if s.tx == nil {
		return ErrNotWriting
	}
	s.closeStatements()
	err := s.tx.Commit()
	s.tx = nil
	return err
}

func (s *OTUDB) Rollback() error {
	if s.tx == nil {
		return ErrNotWriting
	}
	s.closeStatements()
	err := s.tx.Rollback()
	s.tx = nil
	return err
}

func (s *OTUDB) closeStatements() {
	for _, stmt := range []*sql.Stmt{s.insertSample, s.insertOTU, s.insertAbund, s.updateSequence} {
		if stmt != nil {
			stmt.Close()
		}
	}
	s.insertSample, s.insertOTU, s.insertAbund, s.updateSequence = nil, nil, nil, nil
}

func (s *OTUDB) WriteHeader(prefix string, samples []string) error {
	if s.tx == nil {
		return ErrNotWriting
	}
	for i, name := range samples {
		if _, err := s.insertSample.ExecContext(s.ctx, i, name); err != nil {
			return fmt.Errorf("insert sample %s: %w", name, err)
		}
	}
	return nil
}

// WriteRow stores the row and its non-zero abundances.
func (s *OTUDB) WriteRow(row model.Row) error {
	if s.tx == nil {
		return ErrNotWriting
	}
	if _, err := s.insertOTU.ExecContext(s.ctx, row.Name, row.Line, row.Seed.ID, row.Seed.Size, row.Total()); err != nil {
		return fmt.Errorf("insert OTU %s: %w", row.Name, err)
	}
	for i, reads := range row.Counts {
		if reads == 0 {
			continue
		}
		if _, err := s.insertAbund.ExecContext(s.ctx, row.Name, i, reads); err != nil {
			return fmt.Errorf("insert abundance %s: %w", row.Name, err)
		}
	}
	return nil
}

func (s *OTUDB) BeginRecord(name, size string) error {
	s.recordName = name
	s.recordSize = size
	s.record.Reset()
	return nil
}

func (s *OTUDB) WriteLine(line string) error {
	s.record.WriteString(line)
	return nil
}

func (s *OTUDB) EndRecord() error {
	if s.tx == nil {
		return ErrNotWriting
	}
	if _, err := s.updateSequence.ExecContext(s.ctx, s.recordSize, s.record.String(), s.recordName); err != nil {
		return fmt.Errorf("store sequence %s: %w", s.recordName, err)
	}
	s.record.Reset()
	return nil
}
