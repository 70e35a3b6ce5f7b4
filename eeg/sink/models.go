package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Model is the active scoring model.
type Model struct {
	Version     string    `json:"version"`
	ActivatedAt time.Time `json:"activated_at"`
}

// ModelRegistry holds the single active model. Reads are lock-free; an
// activation replaces the pointer and, when backed by SQLite, rewrites the
// one-row active_model table in a single statement.
type ModelRegistry struct {
	db      *sql.DB
	current atomic.Pointer[Model]
}

// NewModelRegistry returns a registry. A nil db keeps the registry in memory.
func NewModelRegistry(ctx context.Context, db *sql.DB) (*ModelRegistry, error) {
	r := &ModelRegistry{db: db}
	if db == nil {
		return r, nil
	}

	var (
		m         Model
		activated string
	)
	err := db.QueryRowContext(ctx, "SELECT version, activated_at FROM active_model WHERE id = 1").
		Scan(&m.Version, &activated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("sink: load active model: %w", err)
	}
	if m.ActivatedAt, err = time.Parse(timeLayout, activated); err != nil {
		return nil, fmt.Errorf("sink: parse activated_at: %w", err)
	}
	r.current.Store(&m)
	return r, nil
}

// Activate makes version the active model.
func (r *ModelRegistry) Activate(ctx context.Context, version string) (Model, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return Model{}, errors.New("sink: empty model version")
	}
	m := &Model{Version: version, ActivatedAt: time.Now().UTC()}

	if r.db != nil {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO active_model(id, version, activated_at) VALUES(1, ?, ?)
			ON CONFLICT(id) DO UPDATE SET version = excluded.version, activated_at = excluded.activated_at`,
			m.Version, m.ActivatedAt.Format(timeLayout))
		if err != nil {
			return Model{}, fmt.Errorf("sink: activate model: %w", err)
		}
	}
	r.current.Store(m)
	return *m, nil
}

// Current returns the active model.
func (r *ModelRegistry) Current() (Model, bool) {
	m := r.current.Load()
	if m == nil {
		return Model{}, false
	}
	return *m, true
}

// Active reports the active model version.
func (r *ModelRegistry) Active() (string, bool) {
	m, ok := r.Current()
	return m.Version, ok
}
