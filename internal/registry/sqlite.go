package registry

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/tasksync/internal/checklist"
)

//go:embed schema.sql
var schemaSQL string

// currentSchemaVersion is stored in PRAGMA user_version.
const currentSchemaVersion = 1

// SQLiteStore keeps the registry in a SQLite database.
// Uses WAL mode so readers are not blocked by a save.
type SQLiteStore struct {
	db   *sql.DB
	path string
	opts options
}

// OpenSQLite creates or opens the database at path and applies pragmas
// and the schema. It is safe to call repeatedly on the same file.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path, opts: buildOptions(opts)}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Lock takes the same advisory lock FileStore uses, next to the database.
func (s *SQLiteStore) Lock(ctx context.Context) (func() error, error) {
	if s.path == ":memory:" {
		return func() error { return nil }, nil
	}
	return lockFile(ctx, s.path+".lock")
}

// Load reads every entry, in insertion order.
func (s *SQLiteStore) Load(ctx context.Context) (*checklist.Registry, error) {
	reg := checklist.NewRegistry()

	var version string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'version'`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("load registry: %w", err)
	default:
		v, err := strconv.Atoi(version)
		if err != nil {
			return nil, fmt.Errorf("load registry: bad version %q", version)
		}
		if err := checkVersion(v); err != nil {
			return nil, err
		}
		reg.Version = v
	}

	rows, err := s.db.QueryContext(ctx, `SELECT entry_id FROM entries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	byID := make(map[string]*checklist.SyncEntry)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("load entries: %w", err)
		}
		e := checklist.NewSyncEntry(id)
		byID[id] = e
		reg.Add(e)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}

	if err := s.loadSources(ctx, byID); err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, byID); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *SQLiteStore) loadSources(ctx context.Context, byID map[string]*checklist.SyncEntry) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, source_type, artifact_id, content_hash, last_synced_at
		FROM sources
	`)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entryID, sourceType, artifactID, hash, synced string
		if err := rows.Scan(&entryID, &sourceType, &artifactID, &hash, &synced); err != nil {
			return fmt.Errorf("load sources: %w", err)
		}
		e, ok := byID[entryID]
		if !ok {
			continue
		}
		t := checklist.SourceType(sourceType)
		if !t.Valid() {
			return fmt.Errorf("load sources: entry %s: unknown source type %q", entryID, sourceType)
		}
		rec := &checklist.SourceRecord{ArtifactID: artifactID, ContentHash: hash}
		if rec.LastSyncedAt, err = parseTime(synced); err != nil {
			return fmt.Errorf("load sources: entry %s: %w", entryID, err)
		}
		e.Sources[t] = rec
	}
	return rows.Err()
}

func (s *SQLiteStore) loadItems(ctx context.Context, byID map[string]*checklist.SyncEntry) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, item_id, id_source, title, status, updated, priority, notes
		FROM items
		ORDER BY entry_id, position
	`)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entryID, idSource, updated, status string
		var it checklist.ChecklistItem
		if err := rows.Scan(&entryID, &it.ID, &idSource, &it.Title, &status, &updated, &it.Priority, &it.Notes); err != nil {
			return fmt.Errorf("load items: %w", err)
		}
		it.IDSource = checklist.SourceType(idSource)
		it.Status = checklist.Status(status)
		if it.Updated, err = parseTime(updated); err != nil {
			return fmt.Errorf("load items: entry %s: %w", entryID, err)
		}
		if e, ok := byID[entryID]; ok {
			e.Items = append(e.Items, it)
		}
	}
	return rows.Err()
}

// Save replaces the stored registry in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, reg *checklist.Registry) error {
	if err := reg.CheckInvariants(); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	if s.opts.validate {
		data, err := EncodeRegistry(reg)
		if err != nil {
			return err
		}
		if err := ValidateJSON(data); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM items`, `DELETE FROM sources`, `DELETE FROM entries`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("save registry: %w", err)
		}
	}
	version := reg.Version
	if version == 0 {
		version = checklist.RegistryVersion
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES ('version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, strconv.Itoa(version)); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}

	for pos, e := range reg.Entries {
		if err := insertEntry(ctx, tx, pos, e); err != nil {
			return fmt.Errorf("save registry: entry %s: %w", e.EntryID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	return nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, pos int, e *checklist.SyncEntry) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO entries (entry_id, position) VALUES (?, ?)`, e.EntryID, pos); err != nil {
		return err
	}
	for _, t := range e.LinkedTypes() {
		rec := e.Sources[t]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sources (entry_id, source_type, artifact_id, content_hash, last_synced_at)
			VALUES (?, ?, ?, ?, ?)
		`, e.EntryID, string(t), rec.ArtifactID, rec.ContentHash, formatTime(rec.LastSyncedAt)); err != nil {
			return err
		}
	}
	for i, it := range e.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO items (entry_id, position, item_id, id_source, title, status, updated, priority, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.EntryID, i, it.ID, string(it.IDSource), it.Title, string(it.Status), formatTime(it.Updated), it.Priority, it.Notes); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and stamps the version.
func applySchema(db *sql.DB) error {
	if err := stampSchemaVersion(db); err != nil {
		return err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// stampSchemaVersion records the schema version in user_version and
// refuses databases written by a newer schema.
func stampSchemaVersion(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("%w: database schema %d (supported: %d)", ErrUnsupportedVersion, version, currentSchemaVersion)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// pragma reads a pragma's current value.
func (s *SQLiteStore) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return value, nil
}
