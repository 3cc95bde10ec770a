package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig pins the defaults so that a change to any of them is deliberate.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default origin is the limitless site", func(t *testing.T) {
		t.Parallel()
		if cfg.Origin != "https://play.limitlesstcg.com" {
			t.Errorf("expected origin to be the limitless site, got '%s'", cfg.Origin)
		}
	})

	t.Run("default index path is the pocket format", func(t *testing.T) {
		t.Parallel()
		if cfg.IndexPath != "/decks?game=POCKET" {
			t.Errorf("unexpected index path '%s'", cfg.IndexPath)
		}
	})

	t.Run("default output is decks.json", func(t *testing.T) {
		t.Parallel()
		if cfg.OutputFile != "decks.json" {
			t.Errorf("expected decks.json, got '%s'", cfg.OutputFile)
		}
	})

	t.Run("default thresholds", func(t *testing.T) {
		t.Parallel()
		if cfg.MinGames != 100 {
			t.Errorf("expected MinGames 100, got %d", cfg.MinGames)
		}
		if cfg.MaxDecklists != 3 {
			t.Errorf("expected MaxDecklists 3, got %d", cfg.MaxDecklists)
		}
		if cfg.MaxFinishes != 0 {
			t.Errorf("expected MaxFinishes 0, got %d", cfg.MaxFinishes)
		}
	})

	t.Run("default concurrency is 16", func(t *testing.T) {
		t.Parallel()
		if cfg.Concurrency != 16 {
			t.Errorf("expected Concurrency 16, got %d", cfg.Concurrency)
		}
	})

	t.Run("default timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default retry policy", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxRetries != 3 || cfg.RetryInterval != 100*time.Millisecond {
			t.Errorf("unexpected retry policy %d/%v", cfg.MaxRetries, cfg.RetryInterval)
		}
	})

	t.Run("snapshots are saved by default", func(t *testing.T) {
		t.Parallel()
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true")
		}
		if cfg.DBDir == "" {
			t.Error("expected a database directory")
		}
	})

	t.Run("default config is valid", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected defaults to validate, got %v", err)
		}
	})
}

// TestConfigValidate checks one validation rule per case.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"valid config", func(*Config) {}, nil},
		{"http origin is valid", func(c *Config) { c.Origin = "http://localhost:8080" }, nil},
		{"ftp origin", func(c *Config) { c.Origin = "ftp://example.com" }, ErrInvalidOrigin},
		{"origin without host", func(c *Config) { c.Origin = "https://" }, ErrInvalidOrigin},
		{"relative origin", func(c *Config) { c.Origin = "example.com" }, ErrInvalidOrigin},
		{"empty index path", func(c *Config) { c.IndexPath = "" }, ErrInvalidIndexPath},
		{"empty output", func(c *Config) { c.OutputFile = "" }, ErrNoOutputFile},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, ErrInvalidConcurrency},
		{"zero min games is valid", func(c *Config) { c.MinGames = 0 }, nil},
		{"negative min games", func(c *Config) { c.MinGames = -1 }, ErrInvalidMinGames},
		{"zero max decklists", func(c *Config) { c.MaxDecklists = 0 }, ErrInvalidMaxDecklists},
		{"negative max finishes", func(c *Config) { c.MaxFinishes = -5 }, ErrInvalidMaxFinishes},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, ErrInvalidMaxRetries},
		{"negative rate limit", func(c *Config) { c.RateLimit = -0.5 }, ErrInvalidRateLimit},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestConfigIndexURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		origin string
		path   string
		want   string
	}{
		{"https://play.limitlesstcg.com", "/decks?game=POCKET", "https://play.limitlesstcg.com/decks?game=POCKET"},
		{"https://play.limitlesstcg.com/", "decks?game=PTCG", "https://play.limitlesstcg.com/decks?game=PTCG"},
		{"http://127.0.0.1:8080", "/index", "http://127.0.0.1:8080/index"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			cfg.Origin = tt.origin
			cfg.IndexPath = tt.path

			got, err := cfg.IndexURL()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestFileApply(t *testing.T) {
	t.Parallel()

	t.Run("empty file keeps defaults", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		(&File{}).Apply(cfg)

		want := NewConfig()
		if cfg.Origin != want.Origin || cfg.MinGames != want.MinGames || cfg.Concurrency != want.Concurrency {
			t.Errorf("defaults changed: %+v", cfg)
		}
		if len(cfg.Headers) != 0 {
			t.Errorf("expected no headers, got %v", cfg.Headers)
		}
	})

	t.Run("set fields override defaults", func(t *testing.T) {
		t.Parallel()

		zero := 0
		cfg := NewConfig()
		(&File{
			Origin:       "http://localhost:9000",
			IndexPath:    "/decks?game=PTCG",
			Output:       "out/decks.json",
			UserAgent:    "metacrawl-test",
			Concurrency:  4,
			MinGames:     &zero,
			MaxDecklists: 5,
			MaxFinishes:  20,
			Timeout:      5 * time.Second,
			RateLimit:    2.5,
		}).Apply(cfg)

		if cfg.Origin != "http://localhost:9000" || cfg.IndexPath != "/decks?game=PTCG" {
			t.Errorf("unexpected site: %s %s", cfg.Origin, cfg.IndexPath)
		}
		if cfg.OutputFile != "out/decks.json" || cfg.UserAgent != "metacrawl-test" {
			t.Errorf("unexpected output or agent: %s %s", cfg.OutputFile, cfg.UserAgent)
		}
		if cfg.Concurrency != 4 || cfg.MinGames != 0 || cfg.MaxDecklists != 5 || cfg.MaxFinishes != 20 {
			t.Errorf("unexpected limits: %+v", cfg)
		}
		if cfg.Timeout != 5*time.Second || cfg.RateLimit != 2.5 {
			t.Errorf("unexpected timing: %v %v", cfg.Timeout, cfg.RateLimit)
		}
	})

	t.Run("cookie becomes a header", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		(&File{
			Cookie:  "session=abc",
			Headers: map[string]string{"Accept-Language": "en"},
		}).Apply(cfg)

		if cfg.Headers["Cookie"] != "session=abc" {
			t.Errorf("expected cookie header, got %v", cfg.Headers)
		}
		if cfg.Headers["Accept-Language"] != "en" {
			t.Errorf("expected Accept-Language header, got %v", cfg.Headers)
		}
	})

	t.Run("nil headers map is allocated", func(t *testing.T) {
		t.Parallel()

		cfg := &Config{}
		(&File{Cookie: "a=b"}).Apply(cfg)

		if cfg.Headers["Cookie"] != "a=b" {
			t.Errorf("expected cookie header, got %v", cfg.Headers)
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `origin: http://localhost:8080
indexPath: /decks?game=PTCG
concurrency: 8
minGames: 0
maxDecklists: 2
timeout: 10s
rateLimit: 4
cookie: "session=xyz"
headers:
  Accept-Language: ja
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Origin != "http://localhost:8080" || cf.IndexPath != "/decks?game=PTCG" {
			t.Errorf("unexpected site: %+v", cf)
		}
		if cf.Concurrency != 8 || cf.MaxDecklists != 2 || cf.RateLimit != 4 {
			t.Errorf("unexpected limits: %+v", cf)
		}
		if cf.MinGames == nil || *cf.MinGames != 0 {
			t.Errorf("expected explicit zero min games, got %v", cf.MinGames)
		}
		if cf.Timeout != 10*time.Second {
			t.Errorf("expected 10s timeout, got %v", cf.Timeout)
		}
		if cf.Cookie != "session=xyz" || cf.Headers["Accept-Language"] != "ja" {
			t.Errorf("unexpected headers: %q %v", cf.Cookie, cf.Headers)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("concurrency: [1, 2"), 0o600); err != nil {
			t.Fatal(err)
		}

		_, err := LoadConfigFile(path)
		if err == nil || errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected parse error, got %v", err)
		}
		if !strings.Contains(err.Error(), path) {
			t.Errorf("expected path in error, got %v", err)
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("concurrency: 2\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); got != "" {
			t.Errorf("expected empty path, got %s", got)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	t.Run("XDGDataDir ends with the app name", func(t *testing.T) {
		t.Parallel()
		if filepath.Base(XDGDataDir()) != AppName {
			t.Errorf("unexpected data dir %s", XDGDataDir())
		}
	})

	t.Run("XDGConfigDir ends with the app name", func(t *testing.T) {
		t.Parallel()
		if filepath.Base(XDGConfigDir()) != AppName {
			t.Errorf("unexpected config dir %s", XDGConfigDir())
		}
	})
}
