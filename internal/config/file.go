package config

import "time"

// File represents the structure of the .metacrawl configuration file.
// Every field is optional; unset fields leave the defaults alone.
type File struct {
	// Origin overrides the site root.
	Origin string `yaml:"origin,omitempty"`

	// IndexPath overrides the metagame index path.
	IndexPath string `yaml:"indexPath,omitempty"`

	// Output overrides the decks.json destination.
	Output string `yaml:"output,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Cookie is sent as the Cookie header.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	Concurrency  int `yaml:"concurrency,omitempty"`
	MaxDecklists int `yaml:"maxDecklists,omitempty"`
	MaxFinishes  int `yaml:"maxFinishes,omitempty"`

	// MinGames is a pointer because 0 is a meaningful threshold.
	MinGames *int `yaml:"minGames,omitempty"`

	// Timeout is a Go duration string such as "30s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// RateLimit caps requests per second.
	RateLimit float64 `yaml:"rateLimit,omitempty"`
}

// Apply copies every field set in the file onto cfg.
func (f *File) Apply(cfg *Config) {
	if f.Origin != "" {
		cfg.Origin = f.Origin
	}
	if f.IndexPath != "" {
		cfg.IndexPath = f.IndexPath
	}
	if f.Output != "" {
		cfg.OutputFile = f.Output
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if len(f.Headers) > 0 || f.Cookie != "" {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		for k, v := range f.Headers {
			cfg.Headers[k] = v
		}
		if f.Cookie != "" {
			cfg.Headers["Cookie"] = f.Cookie
		}
	}
	if f.Concurrency != 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.MinGames != nil {
		cfg.MinGames = *f.MinGames
	}
	if f.MaxDecklists != 0 {
		cfg.MaxDecklists = f.MaxDecklists
	}
	if f.MaxFinishes != 0 {
		cfg.MaxFinishes = f.MaxFinishes
	}
	if f.Timeout != 0 {
		cfg.Timeout = f.Timeout
	}
	if f.RateLimit != 0 {
		cfg.RateLimit = f.RateLimit
	}
}
