// Package migrations embeds the scheduler storage schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
