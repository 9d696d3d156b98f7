// Package storage persists quota snapshots across process restarts.
//
// Two backends are provided: an in-memory backend for tests and
// ephemeral deployments, and a SQLite backend for single-instance
// deployments that need daily counts to survive restarts. Backends are
// thread-safe.
package storage
