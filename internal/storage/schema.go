package storage

const schemaSQL = `
-- Pages table serves as both frontier and crawl record
-- status lifecycle: queued -> processing -> admitted | rejected | error
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT UNIQUE NOT NULL,
    status TEXT NOT NULL DEFAULT 'queued' CHECK (status IN ('queued', 'processing', 'admitted', 'rejected', 'error')),

    -- Queue-related fields
    added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    processing_started_at DATETIME,

    -- Admission fields (NULL until crawled)
    final_url TEXT,
    status_code INTEGER,
    reason TEXT,
    title TEXT,
    word_count INTEGER,
    checksum TEXT,
    fingerprint TEXT,
    link_count INTEGER,
    crawled_at DATETIME,

    -- Error tracking
    last_error_type TEXT,
    last_error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_pages_status ON pages(status);
CREATE INDEX IF NOT EXISTS idx_pages_status_added ON pages(status, added_at);
CREATE INDEX IF NOT EXISTS idx_pages_checksum ON pages(checksum) WHERE checksum IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_pages_reason ON pages(reason) WHERE status = 'rejected';

-- View for admitted pages only (for analysis/reporting)
CREATE VIEW IF NOT EXISTS admitted_pages AS
SELECT
    id, url, final_url, status_code, title, word_count,
    checksum, fingerprint, link_count, crawled_at
FROM pages
WHERE status = 'admitted';

-- View for queue management
CREATE VIEW IF NOT EXISTS queue_status AS
SELECT
    status,
    COUNT(*) as count,
    MIN(added_at) as oldest_item,
    MAX(added_at) as newest_item
FROM pages
GROUP BY status;

-- Links forwarded from admitted pages to the frontier
CREATE TABLE IF NOT EXISTS links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_url TEXT NOT NULL,
    target_url TEXT NOT NULL,
    crawled_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(source_url, target_url)
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_url);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_url);

-- One robots.txt fetch per host; sitemaps stored as a JSON array
CREATE TABLE IF NOT EXISTS robots_files (
    host TEXT PRIMARY KEY NOT NULL,
    url TEXT NOT NULL,
    status_code INTEGER,
    sitemaps TEXT,
    error_message TEXT,
    fetched_at DATETIME
);

-- Crawl meta table stores metadata as key-value pairs
CREATE TABLE IF NOT EXISTS crawl_meta (
    key TEXT PRIMARY KEY NOT NULL,
    value TEXT NOT NULL
);
`
