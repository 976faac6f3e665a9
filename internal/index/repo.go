package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/notewiki/internal/apperr"
	"github.com/starford/notewiki/internal/checksum"
	"github.com/starford/notewiki/internal/models"
)

const metaChecksum = "checksum"

// Sync replaces the mirror with notes inside one transaction. Tag order is
// kept in tags.pos. A graph identical to the last synced one is skipped.
func (db *DB) Sync(ctx context.Context, notes []models.Note) error {
	raw, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("index: fingerprint: %w", err)
	}
	sum := checksum.Sum(raw)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var prev string
	err = tx.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaChecksum).Scan(&prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("index: read checksum: %w", err)
	}
	if prev == sum {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tags`); err != nil {
		return fmt.Errorf("index: clear tags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM notes`); err != nil {
		return fmt.Errorf("index: clear notes: %w", err)
	}

	noteStmt, err := tx.PrepareContext(ctx, `INSERT INTO notes (id, title, content) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare note insert: %w", err)
	}
	defer noteStmt.Close()
	for _, n := range notes {
		if _, err := noteStmt.ExecContext(ctx, int64(n.ID), n.Title, n.Content); err != nil {
			return fmt.Errorf("index: insert note %d: %w", n.ID, err)
		}
	}

	tagStmt, err := tx.PrepareContext(ctx, `INSERT INTO tags (note_id, tag_id, pos) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare tag insert: %w", err)
	}
	defer tagStmt.Close()
	for _, n := range notes {
		for pos, t := range n.Tags {
			if _, err := tagStmt.ExecContext(ctx, int64(n.ID), int64(t), pos); err != nil {
				return fmt.Errorf("index: insert tag %d->%d: %w", n.ID, t, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaChecksum, sum); err != nil {
		return fmt.Errorf("index: write checksum: %w", err)
	}

	return tx.Commit()
}

// Kids returns the ids of the notes tagging id, ascending.
func (db *DB) Kids(ctx context.Context, id models.NoteID) ([]models.NoteID, error) {
	return db.ids(ctx, `SELECT note_id FROM tags WHERE tag_id = ? ORDER BY note_id`, id)
}

// Tags returns the tag ids of id in the order they were written.
func (db *DB) Tags(ctx context.Context, id models.NoteID) ([]models.NoteID, error) {
	return db.ids(ctx, `SELECT tag_id FROM tags WHERE note_id = ? ORDER BY pos`, id)
}

func (db *DB) ids(ctx context.Context, query string, id models.NoteID) ([]models.NoteID, error) {
	rows, err := db.conn.QueryContext(ctx, query, int64(id))
	if err != nil {
		return nil, fmt.Errorf("index: query: %w", err)
	}
	defer rows.Close()

	var out []models.NoteID
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, models.NoteID(v))
	}
	return out, rows.Err()
}

// TitleOf returns the title mirrored for id.
func (db *DB) TitleOf(ctx context.Context, id models.NoteID) (string, error) {
	var title string
	err := db.conn.QueryRowContext(ctx, `SELECT title FROM notes WHERE id = ?`, int64(id)).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("index: id %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("index: title of %d: %w", id, err)
	}
	return title, nil
}

// Count returns the number of mirrored notes.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}
