// Package config holds crawl settings: built-in defaults, validation,
// and the optional .metacrawl YAML file that overrides them.
package config
