// Package migrations holds the SQL schema migrations.
// Files are named NNNNNN_name.up.sql / NNNNNN_name.down.sql and applied in name order.
package migrations

import "embed"

// FS contains every migration file.
//
//go:embed *.sql
var FS embed.FS
