package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/eihwaz/internal/apperr"
	"github.com/starford/eihwaz/internal/checksum"
	"github.com/starford/eihwaz/internal/models"
)

// fieldSep joins field values in the notes.fields column, following the
// flashcard-collection convention. Incoming values are stripped of the byte
// on write so the join always round-trips.
const fieldSep = "\x1f"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS layouts (
	name   TEXT PRIMARY KEY,
	fields TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS notes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	layout     TEXT NOT NULL REFERENCES layouts(name),
	fields     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notes_layout ON notes(layout);
`

// DB wraps a sql.DB with collection-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateLayout registers a new layout.
func (db *DB) CreateLayout(l models.Layout) error {
	if l.Name == "" || len(l.Fields) == 0 {
		return fmt.Errorf("store: layout needs a name and at least one field")
	}
	fieldsJSON, _ := json.Marshal(l.Fields)
	_, err := db.conn.Exec(`INSERT INTO layouts (name, fields) VALUES (?, ?)`, l.Name, string(fieldsJSON))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("store: layout %q: %w", l.Name, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("store: create layout: %w", err)
	}
	return nil
}

// GetLayout returns a layout by name.
func (db *DB) GetLayout(name string) (*models.Layout, error) {
	var fieldsJSON string
	err := db.conn.QueryRow(`SELECT fields FROM layouts WHERE name = ?`, name).Scan(&fieldsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: layout %q: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get layout: %w", err)
	}
	var fields []string
	if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
		return nil, fmt.Errorf("store: layout %q fields: %w", name, err)
	}
	return &models.Layout{Name: name, Fields: fields}, nil
}

// ListLayouts returns all layouts ordered by name.
func (db *DB) ListLayouts() ([]models.Layout, error) {
	rows, err := db.conn.Query(`SELECT name, fields FROM layouts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list layouts: %w", err)
	}
	defer rows.Close()

	var out []models.Layout
	for rows.Next() {
		var l models.Layout
		var fieldsJSON string
		if err := rows.Scan(&l.Name, &fieldsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &l.Fields); err != nil {
			return nil, fmt.Errorf("store: layout %q fields: %w", l.Name, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CreateNote inserts a note. Field values are padded or truncated to the
// layout's declared field count before writing.
func (db *DB) CreateNote(layout string, fields []string) (*models.Note, error) {
	l, err := db.GetLayout(layout)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	res, err := db.conn.Exec(`INSERT INTO notes (layout, fields, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		layout, joinFields(fitFields(sanitizeFields(fields), len(l.Fields))), now, now)
	if err != nil {
		return nil, fmt.Errorf("store: create note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: note id: %w", err)
	}
	return db.GetNote(id)
}

// GetNote returns the note with the given id.
func (db *DB) GetNote(id int64) (*models.Note, error) {
	row := db.conn.QueryRow(`
		SELECT n.id, n.layout, n.fields, l.fields, n.created_at, n.updated_at
		FROM notes n JOIN layouts l ON l.name = n.layout
		WHERE n.id = ?`, id)
	return scanNote(row)
}

// SetNoteLayoutAndFields swaps a note's layout and replaces its field values.
// The swap is a single UPDATE: readers see either the old layout+fields or
// the new ones, never a mix.
func (db *DB) SetNoteLayoutAndFields(id int64, layout string, fields []string) error {
	l, err := db.GetLayout(layout)
	if err != nil {
		return err
	}
	res, err := db.conn.Exec(`UPDATE notes SET layout = ?, fields = ?, updated_at = ? WHERE id = ?`,
		layout, joinFields(fitFields(sanitizeFields(fields), len(l.Fields))), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: set layout and fields: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: set layout and fields: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store: note %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// UpdateNoteFields replaces a note's field values, keeping its layout.
func (db *DB) UpdateNoteFields(id int64, fields []string) error {
	note, err := db.GetNote(id)
	if err != nil {
		return err
	}
	return db.SetNoteLayoutAndFields(id, note.Layout, fields)
}

// DeleteNote removes a note.
func (db *DB) DeleteNote(id int64) error {
	res, err := db.conn.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: note %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// ListNotes returns paginated notes with an optional layout filter.
func (db *DB) ListNotes(limit, offset int, layout string) ([]models.Note, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	args := []any{}
	if layout != "" {
		where = " WHERE n.layout = ?"
		args = append(args, layout)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM notes n`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count notes: %w", err)
	}

	query := `
		SELECT n.id, n.layout, n.fields, l.fields, n.created_at, n.updated_at
		FROM notes n JOIN layouts l ON l.name = n.layout` + where + `
		ORDER BY n.id LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	notes, err := collectNotes(rows)
	if err != nil {
		return nil, 0, err
	}
	return notes, total, nil
}

// Search returns notes whose serialized field values contain the query.
// Flashcard fields are short, so a LIKE scan is adequate.
func (db *DB) Search(query string, limit int) ([]models.Note, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT n.id, n.layout, n.fields, l.fields, n.created_at, n.updated_at
		FROM notes n JOIN layouts l ON l.name = n.layout
		WHERE n.fields LIKE ?
		ORDER BY n.id LIMIT ?`, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()
	return collectNotes(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*models.Note, error) {
	var n models.Note
	var raw, layoutJSON string
	err := row.Scan(&n.ID, &n.Layout, &raw, &layoutJSON, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: note: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan note: %w", err)
	}
	var layoutFields []string
	if err := json.Unmarshal([]byte(layoutJSON), &layoutFields); err != nil {
		return nil, fmt.Errorf("store: layout fields: %w", err)
	}
	n.Fields = fitFields(splitFields(raw), len(layoutFields))
	n.Checksum = checksum.Fields(n.Fields)
	return &n, nil
}

func collectNotes(rows *sql.Rows) ([]models.Note, error) {
	var out []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func joinFields(values []string) string {
	return strings.Join(values, fieldSep)
}

// sanitizeFields strips the reserved separator byte from each value. A value
// carrying it would otherwise split into extra fields on read.
func sanitizeFields(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ReplaceAll(v, fieldSep, "")
	}
	return out
}

func splitFields(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, fieldSep)
}

// fitFields pads or truncates values to exactly n entries.
func fitFields(values []string, n int) []string {
	out := make([]string, n)
	copy(out, values)
	return out
}
