// Package persistence implements the "Mandrel" collaborator described in
// spec.md §6: a text+tags context/decision log with search-by-query and
// fetch-by-ID, plus the PatternScore table the Pattern Tracker (C6) rehydrates
// from on first use. The interface boundary is real — Store is consumed
// by internal/pattern and by every department that logs planning/completion/
// error/decision records — so any other backing implementation could be
// substituted without touching callers.
//
// Grounded on the teacher's internal/store/local_core.go (embedded SQLite
// schema-on-open, WAL pragmas, single-writer connection pool) generalized
// from the teacher's knowledge/vector tables down to the two tables spec.md
// actually names.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/RidgetopAi/the-forge-sub002/internal/domain"
	"github.com/RidgetopAi/the-forge-sub002/internal/logging"
)

// ContextType is the closed set of context record kinds spec.md §6 names.
type ContextType string

const (
	ContextPlanning  ContextType = "planning"
	ContextCompletion ContextType = "completion"
	ContextError     ContextType = "error"
	ContextDecision  ContextType = "decision"
)

// ContextRecord is one stored planning/completion/error/decision entry.
type ContextRecord struct {
	ID        string
	Content   string
	Type      ContextType
	Tags      []string
	CreatedAt time.Time
}

// Store is the Persistence collaborator (spec.md §6): storeContext,
// searchContext, getContextById, plus PatternScore persistence for C6.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at dsn and ensures
// the schema exists. dsn is passed straight to modernc.org/sqlite, e.g.
// "file:forge.db?cache=shared" (config.Config.PersistenceDSN's default).
func Open(dsn string) (*Store, error) {
	log := logging.Get(logging.CategoryPersistence)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening persistence store %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Warnw("sqlite journal_mode=WAL failed", "error", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Warnw("sqlite busy_timeout failed", "error", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating persistence schema: %w", err)
	}
	log.Infow("persistence store opened", "dsn", dsn)
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS context_records (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		type TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_context_records_content ON context_records(content);
	CREATE INDEX IF NOT EXISTS idx_context_records_tags ON context_records(tags);

	CREATE TABLE IF NOT EXISTS pattern_scores (
		pattern_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		success_count INTEGER NOT NULL DEFAULT 0,
		failure_count INTEGER NOT NULL DEFAULT 0,
		last_used DATETIME,
		contexts TEXT NOT NULL DEFAULT ''
	);
	`)
	return err
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StoreContext persists a context record and returns its generated ID.
func (s *Store) StoreContext(ctx context.Context, content string, typ ContextType, tags []string) (string, error) {
	id := newRecordID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO context_records (id, content, type, tags, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, content, string(typ), strings.Join(tags, ","), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("storeContext: %w", err)
	}
	return id, nil
}

// SearchContext returns IDs of records whose content or tags contain query,
// most recent first (spec.md §6: "searchContext(query) → text blob;
// extractIds(blob) → id[]" — IDs are the only thing callers need from the
// blob, so this returns them directly rather than round-tripping a blob).
func (s *Store) SearchContext(ctx context.Context, query string) ([]string, error) {
	like := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM context_records WHERE content LIKE ? OR tags LIKE ? ORDER BY created_at DESC`,
		like, like)
	if err != nil {
		return nil, fmt.Errorf("searchContext: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("searchContext scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetContextByID fetches one record by ID. Returns (nil, nil) if absent.
func (s *Store) GetContextByID(ctx context.Context, id string) (*ContextRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, content, type, tags, created_at FROM context_records WHERE id = ?`, id)

	var rec ContextRecord
	var tags string
	if err := row.Scan(&rec.ID, &rec.Content, &rec.Type, &tags, &rec.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("getContextById: %w", err)
	}
	if tags != "" {
		rec.Tags = strings.Split(tags, ",")
	}
	return &rec, nil
}

// LoadPatternScores returns every persisted PatternScore, for the Pattern
// Tracker's lazy rehydration.
func (s *Store) LoadPatternScores(ctx context.Context) ([]domain.PatternScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pattern_id, name, success_count, failure_count, last_used, contexts FROM pattern_scores`)
	if err != nil {
		return nil, fmt.Errorf("loading pattern scores: %w", err)
	}
	defer rows.Close()

	var out []domain.PatternScore
	for rows.Next() {
		var p domain.PatternScore
		var lastUsed sql.NullTime
		var contexts string
		if err := rows.Scan(&p.PatternID, &p.Name, &p.SuccessCount, &p.FailureCount, &lastUsed, &contexts); err != nil {
			return nil, fmt.Errorf("scanning pattern score: %w", err)
		}
		if lastUsed.Valid {
			p.LastUsed = lastUsed.Time
		}
		if contexts != "" {
			p.Contexts = strings.Split(contexts, ",")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SavePatternScore upserts one PatternScore. Best-effort: callers log and
// continue on error rather than aborting (spec.md §4: "Persist-on-write is
// best-effort — store failure logs but does not abort the caller").
func (s *Store) SavePatternScore(ctx context.Context, p domain.PatternScore) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pattern_scores (pattern_id, name, success_count, failure_count, last_used, contexts)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(pattern_id) DO UPDATE SET
			name = excluded.name,
			success_count = excluded.success_count,
			failure_count = excluded.failure_count,
			last_used = excluded.last_used,
			contexts = excluded.contexts
	`, p.PatternID, p.Name, p.SuccessCount, p.FailureCount, p.LastUsed, strings.Join(p.Contexts, ","))
	if err != nil {
		return fmt.Errorf("saving pattern score %s: %w", p.PatternID, err)
	}
	return nil
}
