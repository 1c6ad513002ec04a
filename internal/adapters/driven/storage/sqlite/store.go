package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/cmis-poller/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
)

// databaseFile is the file name of the archive inside the data directory.
const databaseFile = "archive.db"

// Store is a SQLite-based storage that provides the item archive and
// scheduler state through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.cmispoll/data/archive.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".cmispoll", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, databaseFile)

	// WAL lets the scheduler record results while a poll archives items.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ItemStore returns an ItemStore interface backed by this store.
func (s *Store) ItemStore() driven.ItemStore {
	return &itemStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Item Store ====================

// itemStore implements driven.ItemStore.
type itemStore struct {
	store *Store
}

var _ driven.ItemStore = (*itemStore)(nil)

// SaveItem archives one emitted item.
func (s *itemStore) SaveItem(
	ctx context.Context, endpointID, pollID string, props domain.Properties, content []byte,
) error {
	if endpointID == "" || pollID == "" {
		return domain.ErrInvalidInput
	}

	propsJSON, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("marshalling properties: %w", err)
	}

	var mimeType any
	if content != nil {
		mimeType = nullString(props.String(domain.PropContentStreamMimeType))
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO items (endpoint_id, poll_id, object_id, name, properties, content, mime_type, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, endpointID, pollID,
		nullString(props.String(domain.PropObjectID)),
		nullString(props.String(domain.PropName)),
		string(propsJSON), content, mimeType,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving item: %w", err)
	}
	return nil
}

// SaveSummary stores the summary properties of a poll, replacing any
// earlier summary for the same poll.
func (s *itemStore) SaveSummary(ctx context.Context, endpointID, pollID string, props domain.Properties) error {
	if endpointID == "" || pollID == "" {
		return domain.ErrInvalidInput
	}

	propsJSON, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("marshalling summary: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO poll_summaries (poll_id, endpoint_id, properties, recorded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(poll_id) DO UPDATE SET
			endpoint_id = excluded.endpoint_id,
			properties = excluded.properties,
			recorded_at = excluded.recorded_at
	`, pollID, endpointID, string(propsJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving summary: %w", err)
	}
	return nil
}

// CountItems returns the number of items archived for a poll.
func (s *itemStore) CountItems(ctx context.Context, pollID string) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM items WHERE poll_id = ?", pollID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return count, nil
}
