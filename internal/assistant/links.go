package assistant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrDuplicateLink reports an Add for a name that is already saved.
var ErrDuplicateLink = errors.New("link name already saved")

// Link is a saved named URL, opened by the "open <name>" command.
type Link struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// LinkStore persists saved links. Names are unique case-insensitively.
type LinkStore struct {
	db *sql.DB
}

// OpenLinks creates (if needed) and opens the link database under dataDir.
func OpenLinks(dataDir string) (*LinkStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, "links.db"))
	if err != nil {
		return nil, fmt.Errorf("open link database: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := `CREATE TABLE IF NOT EXISTS links (
		name TEXT NOT NULL,
		url TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_links_name ON links(LOWER(name));`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create links table: %w", err)
	}

	return &LinkStore{db: db}, nil
}

// Close closes the database connection.
func (s *LinkStore) Close() error {
	return s.db.Close()
}

// Add saves a link, rejecting names that are already present regardless of
// case.
func (s *LinkStore) Add(ctx context.Context, name, url string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM links WHERE LOWER(name) = LOWER(?)`, name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check link: %w", err)
	}
	if exists > 0 {
		return ErrDuplicateLink
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO links (name, url) VALUES (?, ?)`, name, url); err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	log.Debug().Str("name", name).Msg("link saved")
	return nil
}

// Remove deletes a link by case-insensitive name. Removing an unknown name
// is not an error.
func (s *LinkStore) Remove(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM links WHERE LOWER(name) = LOWER(?)`, name); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}

// Find returns the link with the given case-insensitive name.
func (s *LinkStore) Find(ctx context.Context, name string) (*Link, error) {
	var l Link
	err := s.db.QueryRowContext(ctx,
		`SELECT name, url FROM links WHERE LOWER(name) = LOWER(?)`, name).Scan(&l.Name, &l.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query link: %w", err)
	}
	return &l, nil
}

// List returns all saved links in insertion order.
func (s *LinkStore) List(ctx context.Context) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, url FROM links ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	var out []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.Name, &l.URL); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
