// Package registry implements the repository-registry capability: a
// persistent index of locally known repositories plus open-or-locate and
// virtual-view resolution for remote repository identities.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS known_repositories (
    id               TEXT PRIMARY KEY,
    name             TEXT NOT NULL,
    path             TEXT NOT NULL UNIQUE,
    first_commit_sha TEXT NOT NULL DEFAULT '',
    remote_url       TEXT NOT NULL DEFAULT '',
    created_at       TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at       TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_known_repositories_fingerprint ON known_repositories(first_commit_sha);
CREATE INDEX IF NOT EXISTS idx_known_repositories_remote ON known_repositories(remote_url);
`

// Record is one indexed local repository.
type Record struct {
	ID             string
	Name           string
	Path           string
	FirstCommitSHA string
	RemoteURL      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var ErrRecordNotFound = errors.New("repository record not found")

type Store struct {
	db *sql.DB
}

func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open registry db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply registry schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Upsert records a repository keyed by path, refreshing fingerprint and
// remote on conflict.
func (s *Store) Upsert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO known_repositories (id, name, path, first_commit_sha, remote_url) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		     name = excluded.name,
		     first_commit_sha = excluded.first_commit_sha,
		     remote_url = excluded.remote_url,
		     updated_at = datetime('now')`,
		rec.ID, rec.Name, rec.Path, rec.FirstCommitSHA, rec.RemoteURL,
	)
	if err != nil {
		return Record{}, fmt.Errorf("upsert repository record: %w", err)
	}
	return s.findOne(ctx, `path = ?`, rec.Path)
}

func (s *Store) FindByFingerprint(ctx context.Context, sha string) (Record, error) {
	if sha == "" {
		return Record{}, ErrRecordNotFound
	}
	return s.findOne(ctx, `first_commit_sha = ?`, sha)
}

func (s *Store) FindByRemoteURL(ctx context.Context, url string) (Record, error) {
	if url == "" {
		return Record{}, ErrRecordNotFound
	}
	return s.findOne(ctx, `remote_url = ?`, url)
}

func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, path, first_commit_sha, remote_url, created_at, updated_at
		 FROM known_repositories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list repository records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) findOne(ctx context.Context, where string, arg any) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, path, first_commit_sha, remote_url, created_at, updated_at
		 FROM known_repositories WHERE `+where+` LIMIT 1`, arg)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return rec, err
}

func scanRecord(scan func(...any) error) (Record, error) {
	var rec Record
	var createdAt, updatedAt string
	if err := scan(&rec.ID, &rec.Name, &rec.Path, &rec.FirstCommitSHA, &rec.RemoteURL, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan repository record: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return rec, nil
}
