package migrations

import "embed"

// FS contains embedded SQLite migrations for the panel record store.
//
//go:embed *.sql
var FS embed.FS
