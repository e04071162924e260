// Package session stores chat conversations as ordered, append-only logs of
// turns keyed by session ID.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/moodlens/internal/model"
)

// ErrNotFound is returned for unknown or deleted sessions.
var ErrNotFound = errors.New("session: not found")

// ErrExists is returned by Create when the ID is already in use.
var ErrExists = errors.New("session: already exists")

// Store persists session logs. Implementations are safe for concurrent use.
type Store interface {
	// Create starts an empty session.
	Create(ctx context.Context, id string) error
	// Append adds turns to the end of the session's log.
	Append(ctx context.Context, id string, turns ...model.Turn) error
	// List returns the session's turns in append order.
	List(ctx context.Context, id string) ([]model.Turn, error)
	// Delete removes the session and its turns.
	Delete(ctx context.Context, id string) error
	Close() error
}

// Store kinds.
const (
	KindMemory   = "memory"
	KindPostgres = "postgres"
	KindSQLite   = "sqlite"
)

// Config selects a store implementation.
type Config struct {
	Kind        string
	DatabaseURL string // postgres
	SQLitePath  string // sqlite
}

// Open constructs the configured store. Database stores are migrated on open.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Kind {
	case KindMemory, "":
		return NewMemory(), nil
	case KindPostgres:
		db, err := Connect(ctx, cfg.DatabaseURL, DefaultOptions())
		if err != nil {
			return nil, err
		}
		if err := RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return NewPostgres(db), nil
	case KindSQLite:
		return OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("session: unknown store kind %q", cfg.Kind)
	}
}
