// Package logging configures structured logging for Turnstile.
//
// It wraps log/slog: Setup installs a process-wide default logger from
// configuration, and component loggers are derived with
// slog.Default().With("component", ...). Request-scoped fields such as the
// request ID travel through context and are attached by FromContext.
package logging
