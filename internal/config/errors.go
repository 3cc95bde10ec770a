package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidOrigin is returned when the origin is not an absolute http(s) URL.
	ErrInvalidOrigin = errors.New("invalid origin: must be an absolute http or https URL")

	// ErrInvalidIndexPath is returned when the index path is empty or unparseable.
	ErrInvalidIndexPath = errors.New("invalid index path")

	// ErrNoOutputFile is returned when no output file is configured.
	ErrNoOutputFile = errors.New("no output file specified")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidMinGames is returned when the minimum games threshold is negative.
	ErrInvalidMinGames = errors.New("invalid min games: must be non-negative")

	// ErrInvalidMaxDecklists is returned when the decklist cap is not positive.
	ErrInvalidMaxDecklists = errors.New("invalid max decklists: must be positive")

	// ErrInvalidMaxFinishes is returned when the finish cap is negative.
	// Use 0 to read every finish.
	ErrInvalidMaxFinishes = errors.New("invalid max finishes: must be non-negative")

	// ErrInvalidMaxRetries is returned when the retry budget is negative.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidRateLimit is returned when the rate limit is negative.
	// Use 0 for no limit.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
