// Package migrations contains embedded SQL migration files for database schema management.
//
// Each file introduces exactly one schema version. Steps are additive and use
// IF NOT EXISTS so a step can be re-applied after an interrupted upgrade.
package migrations

import "embed"

// Files exposes the compiled-in migration SQL files.
//
//go:embed *.sql
var Files embed.FS
