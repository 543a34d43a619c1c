// Package store keeps a SQLite index of card files and the contacts they
// hold, so that birthday queries do not need to re-parse every file.
package store

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/tartampluch/go-vcf/internal/card"
	"github.com/tartampluch/go-vcf/internal/cardfile"
	"github.com/tartampluch/go-vcf/internal/config"
	"github.com/tartampluch/go-vcf/internal/engine"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Contact is one indexed card.
type Contact struct {
	ID          string
	FileID      int64
	File        string // file name, filled by queries
	Name        string
	Birthday    string // raw BDAY text, empty when absent
	Anniversary string
	BirthMonth  int // 0 when the birthday has no usable date
	BirthDay    int
}

// Store wraps the index database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the index at path and migrates it.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), config.DirPermUserRWX); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDBOpen, err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDBOpen, err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	_ = os.Chmod(path, config.FilePermUserRW)

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := userVersion(db)
	if err != nil {
		return err
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS files (
		  id            INTEGER PRIMARY KEY AUTOINCREMENT,
		  name          TEXT NOT NULL UNIQUE,
		  last_modified INTEGER NOT NULL,
		  created_at    INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS contacts (
		  id          TEXT PRIMARY KEY,
		  file_id     INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		  name        TEXT NOT NULL,
		  birthday    TEXT,
		  anniversary TEXT,
		  birth_month INTEGER NOT NULL DEFAULT 0,
		  birth_day   INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_contacts_birth
		ON contacts(birth_month, birth_day);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("%s: %w", config.ErrDBMigrate, err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", 1)); err != nil {
			return fmt.Errorf("%s: %w", config.ErrDBMigrate, err)
		}
		slog.Debug(config.MsgDBMigrated,
			config.LogKeyComponent, config.CompStore,
			config.LogKeyVersion, 1,
		)
	}

	return nil
}

func userVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrDBMigrate, err)
	}
	return version, nil
}

// UpsertFile records name with its modification time and returns its ID.
func (s *Store) UpsertFile(name string, modified time.Time) (int64, error) {
	_, err := s.db.Exec(`
		INSERT INTO files (name, last_modified, created_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET last_modified = excluded.last_modified
	`, name, modified.Unix(), time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrDBQuery, err)
	}

	var id int64
	if err := s.db.QueryRow("SELECT id FROM files WHERE name = ?", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrDBQuery, err)
	}
	return id, nil
}

// ReplaceContacts swaps every contact of fileID for contacts in one transaction.
// Empty IDs are assigned a fresh ULID.
func (s *Store) ReplaceContacts(fileID int64, contacts []Contact) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrDBQuery, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec("DELETE FROM contacts WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("%s: %w", config.ErrDBQuery, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO contacts (id, file_id, name, birthday, anniversary, birth_month, birth_day)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrDBQuery, err)
	}
	defer func() { _ = stmt.Close() }()

	entropy := ulid.Monotonic(rand.Reader, 0)
	for _, c := range contacts {
		id := c.ID
		if id == "" {
			id = ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
		}
		_, err = stmt.Exec(id, fileID, c.Name,
			toNullString(c.Birthday), toNullString(c.Anniversary),
			c.BirthMonth, c.BirthDay)
		if err != nil {
			return fmt.Errorf("%s: %w", config.ErrDBQuery, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrDBQuery, err)
	}
	return nil
}

const selectContacts = `
	SELECT c.id, c.file_id, f.name, c.name, c.birthday, c.anniversary, c.birth_month, c.birth_day
	FROM contacts c JOIN files f ON c.file_id = f.id
`

// ListContacts returns every contact ordered by name.
func (s *Store) ListContacts() ([]Contact, error) {
	return s.query(selectContacts + " ORDER BY c.name, f.name")
}

// ContactsByBirthMonth returns contacts born in month, ordered by day.
func (s *Store) ContactsByBirthMonth(month int) ([]Contact, error) {
	if month < 1 || month > 12 {
		return nil, errors.New(config.ErrMonthRange)
	}
	return s.query(selectContacts+" WHERE c.birth_month = ? ORDER BY c.birth_day, c.name", month)
}

// CountContacts returns the number of indexed contacts.
func (s *Store) CountContacts() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM contacts").Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrDBQuery, err)
	}
	return n, nil
}

func (s *Store) query(q string, args ...any) ([]Contact, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDBQuery, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Contact
	for rows.Next() {
		var c Contact
		var bday, anniv sql.NullString
		if err := rows.Scan(&c.ID, &c.FileID, &c.File, &c.Name, &bday, &anniv, &c.BirthMonth, &c.BirthDay); err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrDBQuery, err)
		}
		c.Birthday = bday.String
		c.Anniversary = anniv.String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDBQuery, err)
	}
	return out, nil
}

// IndexFile reads every card in path and replaces the file's contacts.
// It returns the number of contacts indexed.
func (s *Store) IndexFile(path string, p *card.Parser) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, &card.Error{Kind: card.InvalidFile, Message: config.ErrFileOpen, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return 0, &card.Error{Kind: card.InvalidFile, Message: config.ErrFileOpen, Err: err}
	}

	records, err := cardfile.ReadAll(abs, p)
	if err != nil {
		return 0, err
	}

	contacts := make([]Contact, 0, len(records))
	for _, rec := range records {
		contacts = append(contacts, ContactFromRecord(rec))
	}

	// Files are keyed by absolute path so same-named files in different
	// directories keep their own contacts.
	fileID, err := s.UpsertFile(abs, info.ModTime())
	if err != nil {
		return 0, err
	}
	if err := s.ReplaceContacts(fileID, contacts); err != nil {
		return 0, err
	}

	slog.Debug(config.MsgFileIndexed,
		config.LogKeyComponent, config.CompStore,
		config.LogKeyFile, abs,
		config.LogKeyCount, len(contacts),
	)
	return len(contacts), nil
}

// ContactFromRecord extracts the indexed fields of rec.
func ContactFromRecord(rec *card.Record) Contact {
	c := Contact{Name: rec.Name()}
	if rec.Birthday != nil {
		c.Birthday = rec.Birthday.String()
		if t, _, err := engine.ParseDate(rec.Birthday); err == nil {
			c.BirthMonth = int(t.Month())
			c.BirthDay = t.Day()
		}
	}
	if rec.Anniversary != nil {
		c.Anniversary = rec.Anniversary.String()
	}
	return c
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
