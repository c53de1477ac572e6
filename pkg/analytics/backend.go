package analytics

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// IsSQLitePath reports whether path names a sqlite database (.db, .sqlite or
// .sqlite3, any case) rather than a JSON document.
func IsSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// OpenBackend picks SQLite when IsSQLitePath holds, a JSON file otherwise.
func OpenBackend(path string) (Backend, error) {
	if IsSQLitePath(path) {
		return NewSQLiteBackend(path)
	}
	return NewFileBackend(path), nil
}

// ── JSON file ───────────────────────────────────────────────

type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend { return &FileBackend{path: path} }

func (b *FileBackend) Load() (*Document, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		log.Warn().Err(err).Str("path", b.path).Msg("corrupt analytics document, starting empty")
		return NewDocument(), nil
	}
	return doc.normalize(), nil
}

// Save writes to a temp file in the same directory and renames it over the
// target, so readers never see a half-written document.
func (b *FileBackend) Save(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("rename into %s: %w", b.path, err)
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }

// ── SQLite ──────────────────────────────────────────────────

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    name TEXT PRIMARY KEY,
    body TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const documentName = "analytics"

// SQLiteBackend keeps the document as one JSON row. Same whole-document
// semantics as the file backend, with SQLite's crash safety.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Load() (*Document, error) {
	var body string
	err := b.db.QueryRow("SELECT body FROM documents WHERE name = ?", documentName).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	doc := NewDocument()
	if err := json.Unmarshal([]byte(body), doc); err != nil {
		log.Warn().Err(err).Msg("corrupt analytics row, starting empty")
		return NewDocument(), nil
	}
	return doc.normalize(), nil
}

func (b *SQLiteBackend) Save(doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = b.db.Exec(`
		INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body=excluded.body, updated_at=excluded.updated_at`,
		documentName, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
