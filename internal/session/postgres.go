package session

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"github.com/pressly/goose/v3"

	"github.com/crimson-sun/moodlens/internal/model"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Options controls the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// DefaultOptions suits a long-running server.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// Connect opens a pgx-backed *sql.DB and verifies connectivity.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("session: database URL is empty")
	}
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("session: open database: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: ping database: %w", err)
	}
	stats := db.Stats()
	slog.Info("session database connected", "max_open", stats.MaxOpenConnections)
	return db, nil
}

// RunMigrations applies the embedded schema migrations with goose.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return nil
	}
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("session: migrate: %w", err)
	}
	return nil
}

// Postgres stores sessions in the sessions and turns tables.
type Postgres struct {
	DB *sql.DB
}

// NewPostgres wraps an open, migrated database.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{DB: db} }

func (p *Postgres) Create(ctx context.Context, id string) error {
	res, err := p.DB.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("session: create: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrExists
	}
	return nil
}

func (p *Postgres) Append(ctx context.Context, id string, turns ...model.Turn) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: append: %w", err)
	}
	defer tx.Rollback()

	// Lock the session row so concurrent appends get distinct sequence numbers.
	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = $1 FOR UPDATE`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("session: append: %w", err)
	}

	var seq int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM turns WHERE session_id = $1`, id).Scan(&seq); err != nil {
		return fmt.Errorf("session: append: %w", err)
	}
	for _, t := range turns {
		seq++
		_, err := tx.ExecContext(ctx,
			`INSERT INTO turns (session_id, seq, role, content, emotion, severity, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, seq, string(t.Role), t.Content, string(t.Emotion), string(t.Severity), t.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("session: append: %w", err)
		}
	}
	return tx.Commit()
}

func (p *Postgres) List(ctx context.Context, id string) ([]model.Turn, error) {
	var exists bool
	if err := p.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := p.DB.QueryContext(ctx,
		`SELECT role, content, emotion, severity, created_at FROM turns WHERE session_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	defer rows.Close()

	turns := []model.Turn{}
	for rows.Next() {
		var t model.Turn
		var role, emotion, severity string
		if err := rows.Scan(&role, &t.Content, &emotion, &severity, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("session: list: %w", err)
		}
		t.Role, t.Emotion, t.Severity = model.Role(role), model.Emotion(emotion), model.Severity(severity)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	return turns, nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	res, err := p.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Close() error { return p.DB.Close() }
