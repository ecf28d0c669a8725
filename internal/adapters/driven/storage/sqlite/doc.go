// Package sqlite implements checkpoint persistence in a local SQLite file.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, and sqlx for row scanning. It is the backend to pick when
// no Redis cache is running.
//
// # Schema
//
// The schema is managed by goose migrations embedded from the migrations/
// directory and applied when the saver is opened.
//
// # Data Location
//
// By default, the database is stored at ~/.chatbot/data/checkpoints.db
//
// # Thread Safety
//
// All operations are thread-safe. The saver holds a single connection and
// SQLite runs in WAL mode.
package sqlite
