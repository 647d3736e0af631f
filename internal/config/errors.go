package config

import "errors"

var (
	// ErrNoSeedURLs is returned when no seed URLs are provided
	ErrNoSeedURLs = errors.New("no seed URLs provided")
	// ErrInvalidConcurrency is returned when concurrency is not greater than 0
	ErrInvalidConcurrency = errors.New("concurrency must be greater than 0")
	// ErrInvalidTimeout is returned when request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("request_timeout must be greater than 0")
	// ErrEmptyDatabasePath is returned when database path is empty
	ErrEmptyDatabasePath = errors.New("database_path cannot be empty")
	// ErrInvalidLimit is returned when limit is negative
	ErrInvalidLimit = errors.New("limit cannot be negative")
	// ErrInvalidMaxBodyBytes is returned when max_body_bytes is not greater than 0
	ErrInvalidMaxBodyBytes = errors.New("max_body_bytes must be greater than 0")
	// ErrNoAllowedDomains is returned when the domain allow-list is empty
	ErrNoAllowedDomains = errors.New("allowed_domains cannot be empty")
	// ErrInvalidNearDuplicateThreshold is returned when the similarity threshold is outside (0, 1]
	ErrInvalidNearDuplicateThreshold = errors.New("near_duplicate_threshold must be in (0, 1]")
	// ErrInvalidFingerprintBits is returned when fingerprint_bits is outside 8..64
	ErrInvalidFingerprintBits = errors.New("fingerprint_bits must be between 8 and 64")
	// ErrUnknownChecksum is returned for an unsupported content_checksum
	ErrUnknownChecksum = errors.New("content_checksum must be bytesum or sha3")
	// ErrUnknownReportFormat is returned for an unsupported report_format
	ErrUnknownReportFormat = errors.New("report_format must be markdown, text or json")
	// ErrUnknownLogFormat is returned for an unsupported log.format
	ErrUnknownLogFormat = errors.New("log.format must be json or text")
)
