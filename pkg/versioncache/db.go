// Package versioncache provides SQLite-backed caching of SDK storage version
// listings so repeated builds with dynamic install avoid refetching them.
package versioncache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Microsoft/Oryx-sub000/pkg/logx"
	"github.com/Microsoft/Oryx-sub000/pkg/versionprovider"
)

// DefaultTTL is how long a cached listing stays valid.
const DefaultTTL = time.Hour

// Store is a versionprovider.Cache persisted in SQLite.
type Store struct {
	db     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	logger *logx.Logger
}

var _ versionprovider.Cache = (*Store)(nil)

// DefaultPath returns the cache database location under the user cache dir.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user cache dir: %w", err)
	}
	return filepath.Join(dir, "oryx", "sdk-versions.db"), nil
}

// Open opens or creates the cache database at dbPath.
func Open(dbPath string, ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := initializeSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{
		db:     db,
		ttl:    ttl,
		now:    time.Now,
		logger: logx.NewLogger("version-cache"),
	}, nil
}

// Get returns a cached listing that has not expired.
func (s *Store) Get(ctx context.Context, key string) (versionprovider.VersionInfo, bool) {
	var (
		versionsJSON string
		defaultVer   string
		fetchedAt    int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT versions, default_version, fetched_at FROM sdk_versions WHERE key = ?`, key,
	).Scan(&versionsJSON, &defaultVer, &fetchedAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed to read cached versions for %s: %v", key, err)
		}
		return versionprovider.VersionInfo{}, false
	}

	if s.now().Sub(time.Unix(fetchedAt, 0)) > s.ttl {
		return versionprovider.VersionInfo{}, false
	}

	var versions []string
	if err := json.Unmarshal([]byte(versionsJSON), &versions); err != nil {
		s.logger.Warn("Discarding corrupt cache entry for %s: %v", key, err)
		return versionprovider.VersionInfo{}, false
	}
	return versionprovider.VersionInfo{SupportedVersions: versions, DefaultVersion: defaultVer}, true
}

// Put stores a listing, replacing any previous entry for key.
func (s *Store) Put(ctx context.Context, key string, info versionprovider.VersionInfo) error {
	versionsJSON, err := json.Marshal(info.SupportedVersions)
	if err != nil {
		return fmt.Errorf("failed to encode versions: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sdk_versions (key, versions, default_version, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET versions = excluded.versions,
		   default_version = excluded.default_version, fetched_at = excluded.fetched_at`,
		key, string(versionsJSON), info.DefaultVersion, s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store versions for %s: %w", key, err)
	}
	return nil
}

// Purge deletes expired entries and returns how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM sdk_versions WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged rows: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
