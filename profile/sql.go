package profile

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yllada/wgconv/common"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL UNIQUE COLLATE NOCASE,
	mixin_priority TEXT NOT NULL DEFAULT 'mixin',
	mixin_format   TEXT NOT NULL DEFAULT 'json',
	mixin_config   TEXT NOT NULL DEFAULT '',
	created        TEXT NOT NULL,
	updated        TEXT NOT NULL DEFAULT ''
);`

const selectColumns = `SELECT id, name, mixin_priority, mixin_format, mixin_config, created, updated FROM profiles`

// SQLStore keeps profiles in a SQLite database.
type SQLStore struct {
	db *sql.DB
}

// OpenSQL opens (and if needed creates) the profile database at path.
func OpenSQL(path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate profile database: %w", err)
	}

	return &SQLStore{db: db}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var (
		p                Profile
		created, updated string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Mixin.Priority, &p.Mixin.Format, &p.Mixin.Config, &created, &updated); err != nil {
		return nil, err
	}

	var err error
	if p.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("profile %s: bad created time: %w", p.ID, err)
	}
	if updated != "" {
		if p.Updated, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("profile %s: bad updated time: %w", p.ID, err)
		}
	}
	return &p, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// List returns all profiles ordered by creation time.
func (s *SQLStore) List() ([]*Profile, error) {
	rows, err := s.db.Query(selectColumns + ` ORDER BY created, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]*Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Get retrieves a profile by ID.
func (s *SQLStore) Get(id string) (*Profile, error) {
	p, err := scanProfile(s.db.QueryRow(selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrProfileNotFound
	}
	return p, err
}

// Find retrieves a profile by name, ID or unambiguous ID prefix.
func (s *SQLStore) Find(nameOrID string) (*Profile, error) {
	profiles, err := s.List()
	if err != nil {
		return nil, err
	}
	return findIn(profiles, nameOrID)
}

// Add stores a new profile.
func (s *SQLStore) Add(p *Profile) error {
	if err := prepareNew(p); err != nil {
		return err
	}

	_, err := s.db.Exec(`INSERT INTO profiles (id, name, mixin_priority, mixin_format, mixin_config, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Mixin.Priority, p.Mixin.Format, p.Mixin.Config, formatTime(p.Created), formatTime(p.Updated))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", common.ErrDuplicateName, p.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to add profile: %w", err)
	}
	return nil
}

// Update replaces an existing profile.
func (s *SQLStore) Update(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	updated := p.Updated
	if updated.IsZero() {
		updated = time.Now()
	}

	res, err := s.db.Exec(`UPDATE profiles SET name = ?, mixin_priority = ?, mixin_format = ?, mixin_config = ?, updated = ?
		WHERE id = ?`,
		p.Name, p.Mixin.Priority, p.Mixin.Format, p.Mixin.Config, formatTime(updated), p.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", common.ErrDuplicateName, p.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if n == 0 {
		return common.ErrProfileNotFound
	}
	return nil
}

// Remove deletes a profile by ID.
func (s *SQLStore) Remove(id string) error {
	res, err := s.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove profile: %w", err)
	}
	if n == 0 {
		return common.ErrProfileNotFound
	}
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
