// Package logging provides structured logging helpers for drivepicker.
//
// All logging goes through log/slog. This package centralizes attribute
// names so log lines from the credential store, the Drive client and the
// tool handlers can be correlated.
//
// # Usage Patterns
//
//	logger := logging.WithComponent(slog.Default(), "credentials")
//	logger.Warn("failed to persist credentials",
//	    logging.Path(path),
//	    logging.Err(err))
//
// # Security Considerations
//
// Access and refresh tokens are never logged; use SanitizeToken to log only
// their length.
package logging
