// Package config provides configuration management for the crawler.
// It defines configuration structures and default values for crawling,
// admission and reporting parameters.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/masahif/scopecrawl/internal/admission"
	"github.com/masahif/scopecrawl/internal/logging"
)

// DefaultUserAgent is replaced by a versioned agent unless set explicitly
const DefaultUserAgent = "ScopeCrawl/1.0"

// LogConfig contains logging settings
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`             // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format"`           // json or text
	File       string `mapstructure:"file" yaml:"file"`               // Optional log file path
	MaxSize    int64  `mapstructure:"max_size" yaml:"max_size"`       // Log file size before rotation (MB)
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"` // Rotated files to keep
	Console    bool   `mapstructure:"console" yaml:"console"`         // Write logs to stderr
}

// CrawlConfig holds crawler configuration
type CrawlConfig struct {
	// Basic crawling parameters
	SeedURLs       []string      `mapstructure:"seed_urls" yaml:"seed_urls"`             // Starting URLs for crawling
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`         // Number of concurrent workers
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // HTTP request timeout
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`           // HTTP User-Agent header
	Limit          int           `mapstructure:"limit" yaml:"limit"`                     // Stop after N admitted pages (0=unlimited)
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`   // Response bodies are truncated beyond this
	FetchRobots    bool          `mapstructure:"fetch_robots" yaml:"fetch_robots"`       // Record robots.txt per host

	// Storage and output
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"` // Path to SQLite database file
	ReportPath   string `mapstructure:"report_path" yaml:"report_path"`     // Report destination, "-" for stdout
	ReportFormat string `mapstructure:"report_format" yaml:"report_format"` // markdown, text or json
	TopWords     int    `mapstructure:"top_words" yaml:"top_words"`         // Words listed in the report

	// Scope
	AllowedDomains     []string `mapstructure:"allowed_domains" yaml:"allowed_domains"`         // Authority substrings in scope
	BlockedHosts       []string `mapstructure:"blocked_hosts" yaml:"blocked_hosts"`             // Hosts never crawled
	ExcludedExtensions []string `mapstructure:"excluded_extensions" yaml:"excluded_extensions"` // Non-page file extensions

	// Admission
	LinkFarmThreshold      int     `mapstructure:"link_farm_threshold" yaml:"link_farm_threshold"`           // Max links per authority on one page
	NearDuplicateThreshold float64 `mapstructure:"near_duplicate_threshold" yaml:"near_duplicate_threshold"` // Similarity at which pages are near duplicates
	FingerprintBits        int     `mapstructure:"fingerprint_bits" yaml:"fingerprint_bits"`                 // Simhash width
	ContentChecksum        string  `mapstructure:"content_checksum" yaml:"content_checksum"`                 // bytesum or sha3

	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *CrawlConfig {
	scope := admission.DefaultScopeConfig()
	return &CrawlConfig{
		Concurrency:            8,
		RequestTimeout:         30 * time.Second,
		UserAgent:              DefaultUserAgent,
		Limit:                  0, // unlimited
		MaxBodyBytes:           10 << 20,
		FetchRobots:            true,
		DatabasePath:           "./crawl.db",
		ReportPath:             "-",
		ReportFormat:           "markdown",
		TopWords:               50,
		AllowedDomains:         scope.AllowedDomains,
		BlockedHosts:           scope.BlockedHosts,
		ExcludedExtensions:     scope.ExcludedExtensions,
		LinkFarmThreshold:      admission.DefaultLinkFarmThreshold,
		NearDuplicateThreshold: admission.DefaultNearDuplicateThreshold,
		FingerprintBits:        admission.DefaultFingerprintBits,
		ContentChecksum:        admission.ByteSum{}.Name(),
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSize:    100,
			MaxBackups: 5,
			Console:    true,
		},
	}
}

// Validate checks if the configuration is valid
func (c *CrawlConfig) Validate() error {
	if len(c.SeedURLs) == 0 {
		return ErrNoSeedURLs
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Limit < 0 {
		return ErrInvalidLimit
	}

	if c.MaxBodyBytes <= 0 {
		return ErrInvalidMaxBodyBytes
	}

	if c.DatabasePath == "" {
		return ErrEmptyDatabasePath
	}

	if len(c.AllowedDomains) == 0 {
		return ErrNoAllowedDomains
	}

	if c.NearDuplicateThreshold <= 0 || c.NearDuplicateThreshold > 1 {
		return ErrInvalidNearDuplicateThreshold
	}

	if c.FingerprintBits < admission.MinFingerprintBits || c.FingerprintBits > 64 {
		return ErrInvalidFingerprintBits
	}

	if _, err := admission.ChecksummerByName(c.ContentChecksum); err != nil {
		return ErrUnknownChecksum
	}

	switch strings.ToLower(c.ReportFormat) {
	case "markdown", "md", "text", "json":
	default:
		return ErrUnknownReportFormat
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text":
	default:
		return ErrUnknownLogFormat
	}

	return nil
}

// ScopeConfig returns the crawl scope as admission scope settings.
func (c *CrawlConfig) ScopeConfig() admission.ScopeConfig {
	return admission.ScopeConfig{
		AllowedDomains:     c.AllowedDomains,
		BlockedHosts:       c.BlockedHosts,
		ExcludedExtensions: c.ExcludedExtensions,
	}
}

// AdmissionOptions converts the configuration into admission service options.
// The caller supplies the extractor and statistics sink.
func (c *CrawlConfig) AdmissionOptions() (admission.Options, error) {
	checksummer, err := admission.ChecksummerByName(c.ContentChecksum)
	if err != nil {
		return admission.Options{}, fmt.Errorf("failed to select checksum: %w", err)
	}

	return admission.Options{
		Scope:                  c.ScopeConfig(),
		LinkFarmThreshold:      c.LinkFarmThreshold,
		NearDuplicateThreshold: c.NearDuplicateThreshold,
		FingerprintBits:        c.FingerprintBits,
		Checksummer:            checksummer,
	}, nil
}

// LoggingConfig converts the log section into logging settings.
func (c *CrawlConfig) LoggingConfig() logging.Config {
	return logging.Config{
		Level:      logging.ParseLevel(c.Log.Level),
		Format:     c.Log.Format,
		FilePath:   c.Log.File,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		Console:    c.Log.Console,
	}
}
