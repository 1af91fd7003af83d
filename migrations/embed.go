// Package migrations embeds SQL migration files for database schema management.
// Files are text/template sources; {{.Table}} is replaced with the configured
// table name before they are applied.
package migrations

import "embed"

// FS holds the embedded SQL migration files, one directory per database driver.
//
//go:embed sqlite/*.sql mysql/*.sql
var FS embed.FS
