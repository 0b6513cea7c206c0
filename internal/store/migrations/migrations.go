// Package migrations embeds the SQL schema migrations for mesh.db.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
