// Package migrations embeds the relay.db schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
