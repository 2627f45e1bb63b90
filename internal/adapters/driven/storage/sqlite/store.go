package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/knowctl/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/knowctl/internal/core/domain"
	"github.com/custodia-labs/knowctl/internal/core/ports/driven"
)

// Store is a SQLite-backed snapshot of the backend's source list.
type Store struct {
	db   *sql.DB
	path string
}

// Ensure Store implements the interface.
var _ driven.SnapshotStore = (*Store)(nil)

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.knowctl/data/cache.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".knowctl", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "cache.db")

	// WAL lets the TUI and a concurrent CLI call share the cache.
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

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
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
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_snapshot.up.sql" -> 1
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

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion() (int, error) {
	var version int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// Replace swaps the stored snapshot for sources in a single transaction.
func (s *Store) Replace(ctx context.Context, sources []domain.Source, fetchedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM sources"); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sources (source_id, type, title, pinned, status, position, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			type = excluded.type,
			title = excluded.title,
			pinned = excluded.pinned,
			status = excluded.status,
			position = excluded.position,
			payload = excluded.payload
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i := range sources {
		src := &sources[i]
		if src.ID == "" {
			continue
		}
		payload, err := json.Marshal(src)
		if err != nil {
			return fmt.Errorf("marshalling source %s: %w", src.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			src.ID, src.Type.String(), src.DisplayTitle(), boolToInt(src.Pinned), src.Status, i, string(payload),
		); err != nil {
			return fmt.Errorf("inserting source %s: %w", src.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (id, fetched_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET fetched_at = excluded.fetched_at
	`, fetchedAt.UnixMilli()); err != nil {
		return fmt.Errorf("recording fetch time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// List returns the stored snapshot in backend order.
func (s *Store) List(ctx context.Context) ([]domain.Source, time.Time, error) {
	var fetchedMillis int64
	err := s.db.QueryRowContext(ctx, "SELECT fetched_at FROM snapshot_meta WHERE id = 1").Scan(&fetchedMillis)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading fetch time: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT payload FROM sources ORDER BY position")
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("querying snapshot: %w", err)
	}
	defer rows.Close()

	sources := []domain.Source{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, time.Time{}, fmt.Errorf("scanning source: %w", err)
		}
		var src domain.Source
		if err := json.Unmarshal([]byte(payload), &src); err != nil {
			return nil, time.Time{}, fmt.Errorf("unmarshalling source: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("iterating snapshot: %w", err)
	}

	return sources, time.UnixMilli(fetchedMillis), nil
}

// Get retrieves one stored source by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Source, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM sources WHERE source_id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying source: %w", err)
	}
	var src domain.Source
	if err := json.Unmarshal([]byte(payload), &src); err != nil {
		return nil, fmt.Errorf("unmarshalling source: %w", err)
	}
	return &src, nil
}

// IDs returns stored IDs starting with prefix, for shell completion.
func (s *Store) IDs(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT source_id FROM sources WHERE source_id LIKE ? ESCAPE '\\' ORDER BY position",
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("querying ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
