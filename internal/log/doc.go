// Package log builds the crawler's slog loggers.
//
// Every logger returned here sits behind a RedactingHandler, so a Cookie or
// Authorization header supplied through .metacrawl never reaches the output,
// even at debug level where request headers are logged:
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Debug("request", "url", u, "cookie", cookie) // cookie=***REDACTED***
package log
