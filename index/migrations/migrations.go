// Package migrations embeds the goose migrations of the local index, one
// directory per SQL dialect.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
