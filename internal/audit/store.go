// Package audit persists a durable history of two kinds of switch
// events this system's operators care about after the fact: every
// spanning-tree state transition, and the first time each MAC address
// was seen. Neither is in the distilled behavior this bridge started
// from; both are the kind of operational record a production deployment
// of it would need, so this package exists purely as the supplemental
// storage layer -- see SPEC_FULL.md.
//
// Storage is a single SQLite file opened through database/sql with the
// mattn/go-sqlite3 driver, matching this codebase's preference for an
// embedded, dependency-free-at-runtime store over standing up an
// external database for what is fundamentally a local append log.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/l2bridge/goswitch/internal/frame"
	"github.com/l2bridge/goswitch/internal/stp"
)

const schema = `
CREATE TABLE IF NOT EXISTS stp_transitions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	observed_at TEXT    NOT NULL,
	trunk      TEXT    NOT NULL,
	state      TEXT    NOT NULL,
	root_bridge_id INTEGER NOT NULL,
	root_path_cost INTEGER NOT NULL,
	root_port  TEXT
);

CREATE TABLE IF NOT EXISTS mac_first_seen (
	mac        TEXT PRIMARY KEY,
	interface  TEXT NOT NULL,
	first_seen TEXT NOT NULL
);
`

// Store is an append-only SQLite-backed audit log.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if absent) the SQLite database at path and
// ensures its schema exists.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite3 serializes writers anyway; avoid SQLITE_BUSY churn

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: create schema: %w", err)
	}

	return &Store{db: db, logger: logger.With(slog.String("component", "audit"))}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordTransition appends one spanning-tree Transition to the log,
// stamped with now.
func (s *Store) RecordTransition(ctx context.Context, t stp.Transition, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stp_transitions (observed_at, trunk, state, root_bridge_id, root_path_cost, root_port)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		now.UTC().Format(time.RFC3339Nano), t.Trunk, t.State.String(), t.RootID, t.RootCost, t.RootPort,
	)
	if err != nil {
		return fmt.Errorf("audit: record transition: %w", err)
	}
	return nil
}

// RecordMACFirstSeen inserts a first-seen record for mac on iface,
// stamped with now. Later calls for an already-recorded MAC are no-ops:
// this table tracks first sighting only, never last-seen.
func (s *Store) RecordMACFirstSeen(ctx context.Context, mac frame.MAC, iface string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO mac_first_seen (mac, interface, first_seen) VALUES (?, ?, ?)`,
		mac.String(), iface, now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("audit: record mac first seen: %w", err)
	}
	return nil
}

// TransitionRecord is one row read back from stp_transitions.
type TransitionRecord struct {
	ObservedAt   time.Time
	Trunk        string
	State        string
	RootBridgeID uint32
	RootPathCost uint32
	RootPort     string
}

// RecentTransitions returns up to limit of the most recent transitions,
// newest first.
func (s *Store) RecentTransitions(ctx context.Context, limit int) ([]TransitionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT observed_at, trunk, state, root_bridge_id, root_path_cost, root_port
		 FROM stp_transitions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query transitions: %w", err)
	}
	defer rows.Close()

	var out []TransitionRecord
	for rows.Next() {
		var r TransitionRecord
		var observedAt string
		var rootPort sql.NullString
		if err := rows.Scan(&observedAt, &r.Trunk, &r.State, &r.RootBridgeID, &r.RootPathCost, &rootPort); err != nil {
			return nil, fmt.Errorf("audit: scan transition: %w", err)
		}
		r.RootPort = rootPort.String
		ts, err := time.Parse(time.RFC3339Nano, observedAt)
		if err != nil {
			return nil, fmt.Errorf("audit: parse observed_at: %w", err)
		}
		r.ObservedAt = ts
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run consumes transitions from ch until ctx is cancelled or ch is
// closed, recording each one. It is meant to run in its own goroutine
// in the composition root, fed by stp.Engine.Transitions().
func (s *Store) Run(ctx context.Context, ch <-chan stp.Transition) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-ch:
			if !ok {
				return
			}
			if err := s.RecordTransition(ctx, t, time.Now()); err != nil {
				s.logger.Warn("failed to record transition", slog.Any("err", err))
			}
		}
	}
}
