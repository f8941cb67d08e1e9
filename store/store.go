// Package store persists rule sets in SQLite.
//
// Usage:
//
//	s, err := store.Open("rules.db")
//	rules, err := s.Load(ctx)
//	err = s.Save(ctx, rules)
//
// The database is opened with WAL journaling and a busy timeout so the CLI
// can read rules while another process edits them.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/gaurav-prasanna/parapipe/core"
	"github.com/gaurav-prasanna/parapipe/core/rules"
)

const schema = `
CREATE TABLE IF NOT EXISTS rules (
	id          TEXT PRIMARY KEY,
	position    INTEGER NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	conditions  TEXT NOT NULL DEFAULT '[]',
	action      TEXT NOT NULL,
	priority    INTEGER NOT NULL,
	created_at  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS rules_position ON rules(position);
`

const busyTimeoutMS = 10_000

// RuleStore is a SQLite-backed rule repository. Rules are kept in
// insertion order through the position column.
type RuleStore struct {
	db *sql.DB
}

// Open opens or creates the rule database at path. ":memory:" opens a
// private in-memory database.
func Open(path string) (*RuleStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: exec schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &RuleStore{db: db}, nil
}

// Close closes the database.
func (s *RuleStore) Close() error {
	return s.db.Close()
}

const selectRule = `SELECT id, description, conditions, action, priority, created_at FROM rules`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRule(sc scanner) (rules.Rule, error) {
	var (
		r          rules.Rule
		conditions string
		action     string
	)
	if err := sc.Scan(&r.ID, &r.Description, &conditions, &action, &r.Priority, &r.CreatedAt); err != nil {
		return rules.Rule{}, err
	}
	if err := json.Unmarshal([]byte(conditions), &r.Conditions); err != nil {
		return rules.Rule{}, fmt.Errorf("decoding conditions of rule %q: %w", r.ID, err)
	}
	if r.Conditions == nil {
		r.Conditions = []rules.Condition{}
	}
	r.Action = core.Action(action)
	return r, nil
}

// Load returns every stored rule in insertion order.
func (s *RuleStore) Load(ctx context.Context) ([]rules.Rule, error) {
	rows, err := s.db.QueryContext(ctx, selectRule+` ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var out []rules.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	return out, nil
}

// LoadSet loads the stored rules into a RuleSet.
func (s *RuleStore) LoadSet(ctx context.Context) (*rules.RuleSet, error) {
	stored, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return rules.NewRuleSet(stored...)
}

// Save replaces every stored rule with rs in one transaction. Nothing is
// written when any rule is invalid or ids repeat.
func (s *RuleStore) Save(ctx context.Context, rs []rules.Rule) error {
	seen := make(map[string]bool, len(rs))
	for _, r := range rs {
		if r.ID == "" || r.Action == "" {
			return fmt.Errorf("%w: rule %q needs an id and an action", rules.ErrInvalidRule, r.ID)
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: %q", rules.ErrDuplicateRule, r.ID)
		}
		seen[r.ID] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rules`); err != nil {
		return fmt.Errorf("clearing rules: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rules (id, position, description, conditions, action, priority, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rs {
		conditions, err := encodeConditions(r.Conditions)
		if err != nil {
			return fmt.Errorf("encoding rule %q: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, i, r.Description, conditions, string(r.Action), r.Priority, r.CreatedAt); err != nil {
			return fmt.Errorf("inserting rule %q: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rules: %w", err)
	}
	return nil
}

// Put inserts a rule at the end, or replaces a rule with the same id in
// place.
func (s *RuleStore) Put(ctx context.Context, r rules.Rule) error {
	if r.ID == "" || r.Action == "" {
		return fmt.Errorf("%w: rule %q needs an id and an action", rules.ErrInvalidRule, r.ID)
	}
	conditions, err := encodeConditions(r.Conditions)
	if err != nil {
		return fmt.Errorf("encoding rule %q: %w", r.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rules (id, position, description, conditions, action, priority, created_at)
		 VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM rules), ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			conditions  = excluded.conditions,
			action      = excluded.action,
			priority    = excluded.priority,
			created_at  = excluded.created_at`,
		r.ID, r.Description, conditions, string(r.Action), r.Priority, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("storing rule %q: %w", r.ID, err)
	}
	return nil
}

// Delete removes the rule with id and reports whether it existed.
func (s *RuleStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting rule %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting rule %q: %w", id, err)
	}
	return n > 0, nil
}

// Get returns one rule by id.
func (s *RuleStore) Get(ctx context.Context, id string) (rules.Rule, bool, error) {
	r, err := scanRule(s.db.QueryRowContext(ctx, selectRule+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return rules.Rule{}, false, nil
	}
	if err != nil {
		return rules.Rule{}, false, fmt.Errorf("reading rule %q: %w", id, err)
	}
	return r, true, nil
}

func encodeConditions(conds []rules.Condition) (string, error) {
	if conds == nil {
		conds = []rules.Condition{}
	}
	data, err := json.Marshal(conds)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
