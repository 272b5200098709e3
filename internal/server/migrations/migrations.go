// Package migrations embeds the relayer's PostgreSQL goose migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
