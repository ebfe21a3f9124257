// Package migrations embeds the schema migrations for the schedule store.
package migrations

import "embed"

// FS holds every NNN_name.sql migration at its root
//
//go:embed *.sql
var FS embed.FS
