// Package meetings provides the SQLite-backed meeting record store.
// It uses modernc.org/sqlite for pure-Go, CGO-free database access.
//
// Records are created by schedule commands, read by list commands, and
// removed either by an explicit cancel or by the background expiry sweep.
// There is no update operation: corrections are cancel-then-recreate.
package meetings

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/normanking/pheoni/internal/dates"
)

// DefaultDescription is applied to records created without an explicit
// description.
const DefaultDescription = "Scheduled meeting"

// NotSpecified is the time slot sentinel stored when a meeting names a date
// but no clock time. Records carrying it expire on a date-only basis.
const NotSpecified = "Not specified"

// Meeting is a persisted meeting record. Date is always canonical
// (YYYY-MM-DD); Time is a free-form clock string or the NotSpecified
// sentinel; Counterpart is always present, empty when unknown.
type Meeting struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Counterpart string `json:"with"`
	Description string `json:"description"`
}

// Store provides access to the meetings database.
type Store struct {
	db *sql.DB

	// now is the clock used for relative-date normalization and is
	// overridden in tests.
	now func() time.Time
}

// Open creates (if needed) and opens the meetings database under dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "meetings.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, now: time.Now}

	if err := s.initPragmas(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize pragmas: %w", err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("meeting store opened")
	return s, nil
}

// initPragmas configures SQLite for safe concurrent read/write. The sweeper
// shares this database with request handling, so WAL and a busy timeout are
// required rather than optional tuning.
func (s *Store) initPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",   // concurrent reads during the sweep
		"PRAGMA synchronous = NORMAL", // balance safety and performance
		"PRAGMA busy_timeout = 5000",  // wait 5 seconds if locked
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return nil
}

// migrate creates the required tables. Idempotent.
func (s *Store) migrate() error {
	schema := `CREATE TABLE IF NOT EXISTS meetings (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		time TEXT NOT NULL DEFAULT '` + NotSpecified + `',
		counterpart TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '` + DefaultDescription + `',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_meetings_date ON meetings(date);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create meetings table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		log.Warn().Err(err).Msg("WAL checkpoint failed on close")
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// SetClock overrides the store's clock. Tests only.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Create normalizes dateText and persists a new record. An unparseable date
// returns dates.ErrUnparseable and nothing is written: a record is never
// stored with a non-canonical date.
func (s *Store) Create(ctx context.Context, dateText, timeText, counterpart string) (*Meeting, error) {
	date, err := dates.NormalizeAt(dateText, s.now())
	if err != nil {
		return nil, err
	}

	m := &Meeting{
		ID:          uuid.NewString(),
		Date:        date,
		Time:        strings.TrimSpace(timeText),
		Counterpart: strings.TrimSpace(counterpart),
		Description: DefaultDescription,
	}
	if m.Time == "" {
		m.Time = NotSpecified
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meetings (id, date, time, counterpart, description) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Date, m.Time, m.Counterpart, m.Description)
	if err != nil {
		return nil, fmt.Errorf("insert meeting: %w", err)
	}

	log.Debug().Str("id", m.ID).Str("date", m.Date).Str("with", m.Counterpart).Msg("meeting created")
	return m, nil
}

// ListAll returns every record in insertion order. Each call re-reads the
// store; the result is a finite snapshot, not a live stream.
func (s *Store) ListAll(ctx context.Context) ([]Meeting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, time, counterpart, description FROM meetings ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query meetings: %w", err)
	}
	defer rows.Close()

	var out []Meeting
	for rows.Next() {
		var m Meeting
		if err := rows.Scan(&m.ID, &m.Date, &m.Time, &m.Counterpart, &m.Description); err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meetings: %w", err)
	}
	return out, nil
}

// Cancel deletes every record whose date equals the normalized dateText and
// whose counterpart matches case-insensitively as a full string. Returns the
// number of deleted records; zero means no match and is not an error.
func (s *Store) Cancel(ctx context.Context, dateText, counterpart string) (int, error) {
	date, err := dates.NormalizeAt(dateText, s.now())
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM meetings WHERE date = ? AND LOWER(counterpart) = LOWER(?)`,
		date, strings.TrimSpace(counterpart))
	if err != nil {
		return 0, fmt.Errorf("delete meetings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	log.Debug().Str("date", date).Str("with", counterpart).Int64("deleted", n).Msg("meetings cancelled")
	return int(n), nil
}

// timeLayouts are the clock forms accepted when computing a record's due
// instant during the sweep.
var timeLayouts = []string{
	"3:04 PM",
	"3:04PM",
	"03:04 PM",
	"15:04",
	"15:04:05",
	"3 PM",
	"3PM",
}

// dueInstant computes when a record becomes expired. With an unspecified or
// unparseable time the record is due at the end of its date, i.e. overdue
// once the date is strictly before today.
func dueInstant(m Meeting) (time.Time, bool) {
	day, err := time.ParseInLocation(dates.Canonical, m.Date, time.Local)
	if err != nil {
		return time.Time{}, false
	}

	clock := strings.ToUpper(strings.TrimSpace(m.Time))
	if clock != "" && !strings.EqualFold(m.Time, NotSpecified) {
		for _, layout := range timeLayouts {
			t, err := time.ParseInLocation(layout, clock, time.Local)
			if err != nil {
				continue
			}
			return time.Date(day.Year(), day.Month(), day.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, time.Local), true
		}
		// Unparseable clock string: fall back to date-only expiry below
		// rather than guessing a point in time.
		log.Warn().Str("id", m.ID).Str("time", m.Time).Msg("meeting time not parseable, expiring by date only")
	}

	return day.AddDate(0, 0, 1), true
}

// SweepExpired deletes every record whose due instant is strictly before
// now. Individual records with a broken stored date are skipped (treated as
// not yet due) and logged, never escalated to the caller.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	var expired []string
	for _, m := range all {
		due, ok := dueInstant(m)
		if !ok {
			log.Warn().Str("id", m.ID).Str("date", m.Date).Msg("meeting date not parseable, skipping sweep")
			continue
		}
		if due.Before(now) {
			expired = append(expired, m.ID)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin sweep transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range expired {
		if _, err := tx.ExecContext(ctx, `DELETE FROM meetings WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("delete expired meeting %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit sweep: %w", err)
	}

	log.Info().Int("expired", len(expired)).Msg("expiry sweep removed meetings")
	return len(expired), nil
}
