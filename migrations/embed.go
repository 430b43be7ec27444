// Package migrations holds the PostgreSQL schema as goose migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
