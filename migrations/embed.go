// Package migrations embeds the schema migration files so the binary can
// migrate on startup without shipping the .sql files separately.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
