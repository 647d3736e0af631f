// Package cmd provides the command-line interface for ScopeCrawl.
// It handles command parsing, configuration loading, crawler execution and
// writing the end-of-crawl report.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masahif/scopecrawl/internal/admission"
	"github.com/masahif/scopecrawl/internal/config"
	"github.com/masahif/scopecrawl/internal/crawler"
	"github.com/masahif/scopecrawl/internal/logging"
	"github.com/masahif/scopecrawl/internal/parser"
	"github.com/masahif/scopecrawl/internal/report"
	"github.com/masahif/scopecrawl/internal/stats"
	"github.com/masahif/scopecrawl/internal/storage"
)

// EnvPrefix is the prefix of environment variables read by viper
const EnvPrefix = "SC"

var (
	cfgFile   string
	envFile   string
	version   string
	buildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scopecrawl [URLs...]",
	Short: "A scoped web crawler with duplicate-aware page admission",
	Long: `ScopeCrawl crawls a fixed set of domains starting from seed URLs.

Every fetched page passes an admission pipeline that rejects error pages,
empty documents, exact duplicates and near duplicates before its links are
followed. When the crawl ends a report of unique pages, the longest page,
the most common words and pages per subdomain is written.`,
	Args: cobra.ArbitraryArgs,
	RunE: runCrawler,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx; cancelling ctx stops a
// running crawl.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

func init() {
	cobra.OnInitialize(initConfig)
	defaults := config.DefaultConfig()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./scopecrawl.yml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading SC_ variables")

	rootCmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")

	// Crawling
	rootCmd.Flags().IntP("concurrency", "c", defaults.Concurrency, "Number of concurrent workers")
	rootCmd.Flags().DurationP("timeout", "t", defaults.RequestTimeout, "HTTP request timeout")
	rootCmd.Flags().StringP("user-agent", "u", defaults.UserAgent, "HTTP User-Agent header")
	rootCmd.Flags().IntP("limit", "l", defaults.Limit, "Stop after N admitted pages (0=unlimited)")
	rootCmd.Flags().Int64("max-body-bytes", defaults.MaxBodyBytes, "Truncate response bodies beyond this size")
	rootCmd.Flags().Bool("fetch-robots", defaults.FetchRobots, "Fetch and record robots.txt for each host")

	// Scope
	rootCmd.Flags().StringSlice("allowed-domains", defaults.AllowedDomains, "Authority substrings that are in scope")
	rootCmd.Flags().StringSlice("blocked-hosts", defaults.BlockedHosts, "Hosts that are never crawled")
	rootCmd.Flags().StringSlice("excluded-extensions", defaults.ExcludedExtensions, "Path extensions that are never crawled")

	// Admission
	rootCmd.Flags().Int("link-farm-threshold", defaults.LinkFarmThreshold, "Drop all links to an authority linked more than N times from one page")
	rootCmd.Flags().Float64("near-duplicate-threshold", defaults.NearDuplicateThreshold, "Fingerprint similarity at which a page is a near duplicate")
	rootCmd.Flags().Int("fingerprint-bits", defaults.FingerprintBits, "Simhash fingerprint width")
	rootCmd.Flags().String("checksum", defaults.ContentChecksum, "Exact duplicate checksum: bytesum or sha3")

	// Storage and report
	rootCmd.Flags().StringP("database", "d", defaults.DatabasePath, "Path to SQLite database file")
	rootCmd.Flags().StringP("output", "o", defaults.ReportPath, "Report destination ('-' for stdout)")
	rootCmd.Flags().StringP("format", "f", defaults.ReportFormat, "Report format: markdown, text or json")
	rootCmd.Flags().Int("top-words", defaults.TopWords, "Number of most common words in the report")

	// Logging
	rootCmd.Flags().String("log-level", defaults.Log.Level, "Log level: debug, info, warn or error")
	rootCmd.Flags().String("log-format", defaults.Log.Format, "Log format: json or text")
	rootCmd.Flags().String("log-file", defaults.Log.File, "Also write logs to this file, rotated by size")

	bindFlags := []struct {
		viperKey string
		flagName string
	}{
		{"concurrency", "concurrency"},
		{"request_timeout", "timeout"},
		{"user_agent", "user-agent"},
		{"limit", "limit"},
		{"max_body_bytes", "max-body-bytes"},
		{"fetch_robots", "fetch-robots"},
		{"allowed_domains", "allowed-domains"},
		{"blocked_hosts", "blocked-hosts"},
		{"excluded_extensions", "excluded-extensions"},
		{"link_farm_threshold", "link-farm-threshold"},
		{"near_duplicate_threshold", "near-duplicate-threshold"},
		{"fingerprint_bits", "fingerprint-bits"},
		{"content_checksum", "checksum"},
		{"database_path", "database"},
		{"report_path", "output"},
		{"report_format", "format"},
		{"top_words", "top-words"},
		{"log.level", "log-level"},
		{"log.format", "log-format"},
		{"log.file", "log-file"},
	}

	for _, bind := range bindFlags {
		if err := viper.BindPFlag(bind.viperKey, rootCmd.Flags().Lookup(bind.flagName)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}
}

// initConfig loads the dotenv file, then reads the config file and SC_
// environment variables.
func initConfig() {
	if err := loadEnvFile(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("scopecrawl")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func generateUserAgent() string {
	if version != "" && version != "dev" {
		return fmt.Sprintf("ScopeCrawl/%s", version)
	}
	return "ScopeCrawl/dev"
}

// loadConfig merges defaults, viper sources and seed arguments.
func loadConfig(cmd *cobra.Command, args []string) (*config.CrawlConfig, error) {
	cfg := config.DefaultConfig()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Command-line URLs replace seeds from the config file
	if len(args) > 0 {
		cfg.SeedURLs = args
	}

	if flag := cmd.Flags().Lookup("user-agent"); (flag == nil || !flag.Changed) && cfg.UserAgent == config.DefaultUserAgent {
		cfg.UserAgent = generateUserAgent()
	}

	return cfg, nil
}

func showCurrentConfig(w io.Writer, cfg *config.CrawlConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Fprintf(w, "# Current ScopeCrawl Configuration\n")
	fmt.Fprintf(w, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "# Configuration file search paths: ./scopecrawl.yml\n")
	fmt.Fprintf(w, "# Environment variables prefix: %s_\n\n", EnvPrefix)

	_, _ = io.WriteString(w, string(yamlData))

	fmt.Fprintf(w, "\n# Configuration source priority:\n")
	fmt.Fprintf(w, "# 1. Command-line arguments (highest priority)\n")
	fmt.Fprintf(w, "# 2. Environment variables (%s_ prefix, .env file)\n", EnvPrefix)
	fmt.Fprintf(w, "# 3. Configuration file (scopecrawl.yml)\n")
	fmt.Fprintf(w, "# 4. Default values (lowest priority)\n")

	return nil
}

func runCrawler(cmd *cobra.Command, args []string) error {
	showConfig, _ := cmd.Flags().GetBool("show-config")

	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	if showConfig {
		return showCurrentConfig(cmd.OutOrStdout(), cfg)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.SetDefault(cfg.LoggingConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Close() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return runCrawl(ctx, cfg, cmd.OutOrStdout())
}

// runCrawl wires storage, admission and statistics into a crawler, runs it
// and writes the report. stdout receives the report when report_path is "-".
func runCrawl(ctx context.Context, cfg *config.CrawlConfig, stdout io.Writer) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0750); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	extractor := parser.NewHTMLExtractor()
	aggregator := stats.NewAggregator(cfg.TopWords, cfg.AllowedDomains)

	opts, err := cfg.AdmissionOptions()
	if err != nil {
		return err
	}
	opts.Extractor = extractor
	opts.Sink = aggregator
	admitter, err := admission.NewService(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize admission: %w", err)
	}

	c, err := crawler.NewCrawler(cfg, store, admitter, extractor)
	if err != nil {
		return fmt.Errorf("failed to initialize crawler: %w", err)
	}
	defer func() { _ = c.Stop() }()

	slog.Info("Starting crawl",
		"crawl_id", c.CrawlID(),
		"seed_urls", cfg.SeedURLs,
		"concurrency", cfg.Concurrency,
		"limit", cfg.Limit,
		"database", cfg.DatabasePath,
		"allowed_domains", cfg.AllowedDomains,
		"checksum", opts.Checksummer.Name(),
	)

	if err := c.Start(ctx, cfg.SeedURLs); err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	meta, err := crawlMeta(store, cfg.SeedURLs)
	if err != nil {
		return err
	}
	meta.FinishedAt = time.Now().UTC()
	meta.Counters = admitter.Counters()

	if err := store.SetMeta("finished_at", meta.FinishedAt.Format(time.RFC3339)); err != nil {
		slog.Warn("Failed to record finish time", "error", err)
	}

	return writeReport(cfg, aggregator.Summary(), meta, stdout)
}

// metaReader reads back metadata the crawler recorded for the current run.
type metaReader interface {
	GetMeta(key string) (string, error)
}

// crawlMeta builds the report header from the crawl id and start time the
// crawler stored, so the report always names the run the database holds.
func crawlMeta(store metaReader, seeds []string) (report.Meta, error) {
	meta := report.Meta{Seeds: seeds}

	crawlID, err := store.GetMeta(crawler.MetaCrawlID)
	if err != nil {
		return meta, fmt.Errorf("failed to read crawl id: %w", err)
	}
	meta.CrawlID = crawlID

	startedAt, err := store.GetMeta(crawler.MetaStartedAt)
	if err != nil {
		return meta, fmt.Errorf("failed to read crawl start time: %w", err)
	}
	if startedAt != "" {
		parsed, err := time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return meta, fmt.Errorf("invalid crawl start time %q: %w", startedAt, err)
		}
		meta.StartedAt = parsed
	}
	return meta, nil
}

func writeReport(cfg *config.CrawlConfig, summary stats.Summary, meta report.Meta, stdout io.Writer) error {
	out := stdout
	if cfg.ReportPath != "" && cfg.ReportPath != "-" {
		if err := os.MkdirAll(filepath.Dir(cfg.ReportPath), 0750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
		f, err := os.Create(cfg.ReportPath)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	writer, err := report.NewWriter(cfg.ReportFormat, out)
	if err != nil {
		return err
	}
	if err := writer.Write(summary, meta); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if out != stdout {
		slog.Info("Report written", "path", cfg.ReportPath, "format", cfg.ReportFormat)
	}
	return nil
}
