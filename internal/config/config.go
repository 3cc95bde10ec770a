package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/metacrawl/internal/crawler"
	"github.com/nao1215/metacrawl/internal/meta"
	"github.com/nao1215/metacrawl/internal/pipeline"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "metacrawl"

	// DefaultOrigin is the tournament site every link is resolved against.
	DefaultOrigin = "https://play.limitlesstcg.com"

	// DefaultIndexPath is the metagame index page of the Pocket format.
	DefaultIndexPath = "/decks?game=POCKET"

	// DefaultOutputFile is where the ranked decks are written.
	DefaultOutputFile = "decks.json"

	// DefaultTimeout bounds a single HTTP request, retries excluded.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is a desktop Chrome identity; the site serves the
	// same markup to it as to a browser.
	DefaultUserAgent = crawler.DefaultUserAgent

	// DefaultConcurrency is the fan-out worker limit and the size of the
	// HTTP connection pool.
	DefaultConcurrency = pipeline.DefaultConcurrency

	// DefaultProgressEvery is the completion cadence of progress lines.
	DefaultProgressEvery = pipeline.DefaultProgressEvery

	// DefaultMinGames is the minimum-sample threshold for decks and decklists.
	DefaultMinGames = meta.DefaultMinGames

	// DefaultMaxDecklists caps the decklists written per deck.
	DefaultMaxDecklists = meta.DefaultMaxDecklists

	// DefaultMaxRetries is the retry budget for 502/503/504 responses.
	DefaultMaxRetries = crawler.DefaultMaxRetries

	// DefaultRetryInterval is the first backoff wait.
	DefaultRetryInterval = crawler.DefaultRetryInterval

	// DefaultMaxBodySize limits how much of a page is read.
	DefaultMaxBodySize = crawler.DefaultMaxBodySize
)

// Config holds all configuration options for a crawl. It is populated
// from defaults, then the .metacrawl file, then command line flags.
type Config struct {
	// Origin is the site root, scheme and host only.
	Origin string

	// IndexPath is the path of the metagame index below Origin.
	IndexPath string

	// OutputFile is the decks.json destination.
	OutputFile string

	// MarkdownFile, when set, receives a Markdown report of the snapshot.
	MarkdownFile string

	// SnapshotFile, when set, receives the whole snapshot as JSON,
	// including its ID and page statistics.
	SnapshotFile string

	// ShowDecklists adds one line per kept decklist to the terminal summary.
	ShowDecklists bool

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// Headers are extra request headers, e.g. a cookie.
	Headers map[string]string

	// Concurrency is the number of pages fetched at once in each fan-out stage.
	Concurrency int

	// ProgressEvery is how many completions pass between progress lines.
	ProgressEvery int

	// MinGames is the minimum number of games a deck or decklist needs.
	MinGames int

	// MaxDecklists caps the decklists kept per deck.
	MaxDecklists int

	// MaxFinishes caps the finishes read per deck. Zero reads all.
	MaxFinishes int

	// MaxRetries is the retry budget for transient gateway errors.
	MaxRetries int

	// RetryInterval is the first backoff wait between retries.
	RetryInterval time.Duration

	// RateLimit caps requests per second. Zero means unlimited.
	RateLimit float64

	// MaxBodySize is the response body limit in bytes.
	MaxBodySize int64

	// Verbose enables debug logging.
	Verbose bool

	// JSONLogs switches log output from text to JSON lines.
	JSONLogs bool

	// ConfigFilePath is an explicit .metacrawl path.
	// If empty, the current directory and then the home directory are searched.
	ConfigFilePath string

	// DBDir is the directory holding the snapshot history database.
	DBDir string

	// SaveToDB stores the snapshot in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Origin:        DefaultOrigin,
		IndexPath:     DefaultIndexPath,
		OutputFile:    DefaultOutputFile,
		Timeout:       DefaultTimeout,
		UserAgent:     DefaultUserAgent,
		Headers:       make(map[string]string),
		Concurrency:   DefaultConcurrency,
		ProgressEvery: DefaultProgressEvery,
		MinGames:      DefaultMinGames,
		MaxDecklists:  DefaultMaxDecklists,
		MaxRetries:    DefaultMaxRetries,
		RetryInterval: DefaultRetryInterval,
		MaxBodySize:   DefaultMaxBodySize,
		DBDir:         XDGDataDir(),
		SaveToDB:      true,
	}
}

// IndexURL returns the absolute URL of the metagame index.
func (c *Config) IndexURL() (string, error) {
	origin, err := url.Parse(c.Origin)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(c.IndexPath)
	if err != nil {
		return "", err
	}
	return origin.ResolveReference(ref).String(), nil
}

// XDGDataDir returns the XDG data directory for metacrawl.
// On Linux: ~/.local/share/metacrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for metacrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidOrigin
	}

	if _, err := url.Parse(c.IndexPath); err != nil || c.IndexPath == "" {
		return ErrInvalidIndexPath
	}

	if c.OutputFile == "" {
		return ErrNoOutputFile
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.MinGames < 0 {
		return ErrInvalidMinGames
	}

	if c.MaxDecklists <= 0 {
		return ErrInvalidMaxDecklists
	}

	if c.MaxFinishes < 0 {
		return ErrInvalidMaxFinishes
	}

	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
