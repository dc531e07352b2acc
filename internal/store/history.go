package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/readmeai/readmectl/internal/model"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// History records generation sessions in a local SQLite database so the
// user can revisit what was generated, for which repository, and whether
// it was committed.
type History struct {
	db *sql.DB
}

const historySchema = `
CREATE TABLE IF NOT EXISTS generations (
	entry_id   TEXT PRIMARY KEY,
	repository TEXT NOT NULL,
	sections   TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	saved      INTEGER NOT NULL DEFAULT 0,
	branch     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_generations_repository ON generations(repository);
`

// OpenHistory opens (or creates) the history database in dir.
func OpenHistory(ctx context.Context, dir string) (*History, error) {
	dsn := filepath.Join(dir, "history.db")

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if _, err := db.ExecContext(ctx, historySchema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("bootstrap history schema: %w", err)
	}

	return &History{db: db}, nil
}

// Close closes the history database.
func (h *History) Close() error {
	return h.db.Close()
}

// Record inserts a generation entry. A duplicate entry_id is replaced so a
// re-generation under the same backend id keeps the latest state.
func (h *History) Record(ctx context.Context, entry model.HistoryEntry) error {
	sections, err := json.Marshal(entry.Sections)
	if err != nil {
		return err
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err = h.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO generations (entry_id, repository, sections, created_at, saved, branch)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.EntryID, entry.Repository, string(sections), entry.CreatedAt, entry.Saved, entry.Branch)

	return err
}

// MarkSaved flags an entry as committed to the given branch.
func (h *History) MarkSaved(ctx context.Context, entryID, branch string) error {
	res, err := h.db.ExecContext(ctx,
		`UPDATE generations SET saved = 1, branch = ? WHERE entry_id = ?`, branch, entryID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("history entry %s not found", entryID)
	}

	return nil
}

// List returns entries newest first, up to limit (0 means all).
func (h *History) List(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	query := `SELECT entry_id, repository, sections, created_at, saved, branch
	          FROM generations ORDER BY created_at DESC`

	var rows *sql.Rows

	var err error

	if limit > 0 {
		rows, err = h.db.QueryContext(ctx, query+" LIMIT ?", limit)
	} else {
		rows, err = h.db.QueryContext(ctx, query)
	}

	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.HistoryEntry

	for rows.Next() {
		var (
			entry    model.HistoryEntry
			sections string
		)

		if err := rows.Scan(&entry.EntryID, &entry.Repository, &sections,
			&entry.CreatedAt, &entry.Saved, &entry.Branch); err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(sections), &entry.Sections); err != nil {
			return nil, err
		}

		out = append(out, entry)
	}

	return out, rows.Err()
}
