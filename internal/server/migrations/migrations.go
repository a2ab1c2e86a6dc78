// Package migrations embeds the goose SQL migrations for the server schema
// and its reference data.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
