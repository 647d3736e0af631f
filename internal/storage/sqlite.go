// Package storage provides data persistence functionality for the crawler.
// It implements SQLite-based storage for the frontier, admission outcomes,
// forwarded links, robots.txt records and crawl metadata.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/masahif/scopecrawl/internal/crawler"
	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements the crawler.Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

var _ crawler.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - single connection prevents lock conflicts
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	storage := &SQLiteStorage{db: db}

	if err := storage.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// InitSchema creates the database schema
func (s *SQLiteStorage) InitSchema() error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 30000", // 30 second timeout for locks
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Reset removes every page, link, robots record and meta entry so a crawl
// starts from an empty frontier.
func (s *SQLiteStorage) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"pages", "links", "robots_files", "crawl_meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// AddToQueue adds URLs to the queue (pages table with status='queued').
// URLs already known in any state are ignored.
func (s *SQLiteStorage) AddToQueue(urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO pages (url, status, added_at)
		VALUES (?, 'queued', ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, url := range urls {
		if _, err := stmt.Exec(url, now); err != nil {
			return fmt.Errorf("failed to insert URL %s: %w", url, err)
		}
	}

	return tx.Commit()
}

// GetNextFromQueue atomically gets and marks the next URL for processing.
// It returns nil when nothing is queued.
func (s *SQLiteStorage) GetNextFromQueue() (*crawler.URLItem, error) {
	var item crawler.URLItem

	err := s.db.QueryRow(`
		UPDATE pages
		SET status = 'processing', processing_started_at = ?
		WHERE id = (
			SELECT id FROM pages
			WHERE status = 'queued'
			ORDER BY added_at ASC, id ASC
			LIMIT 1
		) AND status = 'queued'
		RETURNING id, url
	`, time.Now().UTC()).Scan(&item.ID, &item.URL)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next from queue: %w", err)
	}

	return &item, nil
}

// SaveAdmission records the admission outcome for a page
func (s *SQLiteStorage) SaveAdmission(id int, page *crawler.PageRecord) error {
	status := crawler.StatusRejected
	if page.Admitted {
		status = crawler.StatusAdmitted
	}

	_, err := s.db.Exec(`
		UPDATE pages SET
			status = ?,
			final_url = ?,
			status_code = ?,
			reason = ?,
			title = ?,
			word_count = ?,
			checksum = ?,
			fingerprint = ?,
			link_count = ?,
			crawled_at = ?
		WHERE id = ?
	`,
		status,
		page.FinalURL,
		page.StatusCode,
		nullIfEmpty(page.Reason),
		nullIfEmpty(page.Title),
		page.WordCount,
		nullIfEmpty(page.Checksum),
		nullIfEmpty(page.Fingerprint),
		page.LinkCount,
		page.CrawledAt,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to save admission: %w", err)
	}
	return nil
}

// SavePageError marks a page as errored with error details
func (s *SQLiteStorage) SavePageError(id int, errorType, errorMessage string) error {
	_, err := s.db.Exec(`
		UPDATE pages SET
			status = 'error',
			last_error_type = ?,
			last_error_message = ?,
			crawled_at = ?
		WHERE id = ?
	`, errorType, errorMessage, time.Now().UTC(), id)

	if err != nil {
		return fmt.Errorf("failed to save page error: %w", err)
	}
	return nil
}

// SaveLinks saves multiple link relationships in a single transaction
func (s *SQLiteStorage) SaveLinks(links []*crawler.LinkData) error {
	if len(links) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO links (source_url, target_url, crawled_at)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, link := range links {
		if _, err := stmt.Exec(link.SourceURL, link.TargetURL, link.CrawledAt); err != nil {
			return fmt.Errorf("failed to insert link %s -> %s: %w", link.SourceURL, link.TargetURL, err)
		}
	}

	return tx.Commit()
}

// SaveRobots stores the robots.txt record for a host, replacing any earlier one
func (s *SQLiteStorage) SaveRobots(record *crawler.RobotsRecord) error {
	sitemaps := record.Sitemaps
	if sitemaps == nil {
		sitemaps = []string{}
	}
	sitemapsJSON, err := json.Marshal(sitemaps)
	if err != nil {
		return fmt.Errorf("failed to marshal sitemaps: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO robots_files (host, url, status_code, sitemaps, error_message, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		record.Host,
		record.URL,
		record.StatusCode,
		string(sitemapsJSON),
		nullIfEmpty(record.Error),
		record.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save robots record: %w", err)
	}
	return nil
}

// GetQueueStatus returns counts by status
func (s *SQLiteStorage) GetQueueStatus() (crawler.QueueStatus, error) {
	var status crawler.QueueStatus
	err := s.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN status = 'queued' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'processing' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'admitted' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0)
		FROM pages
	`).Scan(&status.Queued, &status.Processing, &status.Admitted, &status.Rejected, &status.Errors)
	if err != nil {
		return crawler.QueueStatus{}, fmt.Errorf("failed to get queue status: %w", err)
	}

	return status, nil
}

// HasQueuedItems checks if there are any items queued or being processed
func (s *SQLiteStorage) HasQueuedItems() (bool, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*)
		FROM pages
		WHERE status IN ('queued', 'processing')
	`).Scan(&count)

	if err != nil {
		return false, fmt.Errorf("failed to check queued items: %w", err)
	}

	return count > 0, nil
}

// GetMeta retrieves a metadata value, or "" when key was never set
func (s *SQLiteStorage) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM crawl_meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta: %w", err)
	}
	return value, nil
}

// SetMeta stores a metadata value
func (s *SQLiteStorage) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO crawl_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set meta: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
