package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cwbudde/algo-eeg/eeg"
	"github.com/cwbudde/algo-eeg/eeg/job"
)

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id            TEXT PRIMARY KEY,
	state         TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	result        TEXT,
	metadata      TEXT,
	updated_at    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS active_model (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	version      TEXT NOT NULL,
	activated_at TEXT NOT NULL
);`

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nowUTC() string { return time.Now().UTC().Format(timeLayout) }

// SQLite stores records in a SQLite database through modernc.org/sqlite.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path. Use ":memory:" for a
// private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sink: open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sink: create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// DB exposes the handle for the model registry.
func (s *SQLite) DB() *sql.DB { return s.db }

// SetState upserts the row for id in one transaction.
func (s *SQLite) SetState(ctx context.Context, id uuid.UUID, state job.State, errMsg string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sink: begin: %w", err)
	}
	defer tx.Rollback()

	var stored string
	err = tx.QueryRowContext(ctx, "SELECT state FROM analyses WHERE id = ?", id.String()).Scan(&stored)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sink: read state: %w", err)
	}

	write, err := nextState(id, job.State(stored), state, exists)
	if err != nil || !write {
		return err
	}

	if exists {
		_, err = tx.ExecContext(ctx,
			"UPDATE analyses SET state = ?, error_message = ?, updated_at = ? WHERE id = ?",
			string(state), errMsg, nowUTC(), id.String())
	} else {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO analyses(id, state, error_message, updated_at) VALUES(?, ?, ?, ?)",
			id.String(), string(state), errMsg, nowUTC())
	}
	if err != nil {
		return fmt.Errorf("sink: write state: %w", err)
	}
	return tx.Commit()
}

// AttachResult sets the result column of a completed row that has none.
func (s *SQLite) AttachResult(ctx context.Context, id uuid.UUID, result eeg.ClinicalResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("sink: encode result: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE analyses SET result = ?, updated_at = ? WHERE id = ? AND state = ? AND result IS NULL",
		string(data), nowUTC(), id.String(), string(job.Completed))
	if err != nil {
		return fmt.Errorf("sink: attach result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	rec, err := s.Get(ctx, id)
	switch {
	case err != nil:
		return err
	case rec.State != job.Completed:
		return ErrNotCompleted
	default:
		return ErrResultPresent
	}
}

// RecordMetadata stores the encoded metadata on an existing row.
func (s *SQLite) RecordMetadata(ctx context.Context, id uuid.UUID, meta job.Metadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("sink: encode metadata: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE analyses SET metadata = ?, updated_at = ? WHERE id = ?",
		string(data), nowUTC(), id.String())
	if err != nil {
		return fmt.Errorf("sink: record metadata: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get loads the record for id.
func (s *SQLite) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	var (
		state, updated   string
		rec              = Record{ID: id}
		result, metadata sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT state, error_message, result, metadata, updated_at FROM analyses WHERE id = ?",
		id.String()).Scan(&state, &rec.ErrorMessage, &result, &metadata, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("sink: read record: %w", err)
	}

	if rec.State, err = job.ParseState(state); err != nil {
		return Record{}, err
	}
	if rec.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return Record{}, fmt.Errorf("sink: parse updated_at: %w", err)
	}
	if result.Valid {
		rec.Result = new(eeg.ClinicalResult)
		if err := json.Unmarshal([]byte(result.String), rec.Result); err != nil {
			return Record{}, fmt.Errorf("sink: decode result: %w", err)
		}
	}
	if metadata.Valid {
		rec.Metadata = new(job.Metadata)
		if err := json.Unmarshal([]byte(metadata.String), rec.Metadata); err != nil {
			return Record{}, fmt.Errorf("sink: decode metadata: %w", err)
		}
	}
	return rec, nil
}

// List returns the most recently updated records, newest first.
func (s *SQLite) List(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM analyses ORDER BY updated_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("sink: list: %w", err)
	}
	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sink: list: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sink: list: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sink: list: %w", err)
	}

	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
