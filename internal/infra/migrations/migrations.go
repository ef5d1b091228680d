package migrations

import "embed"

// Files holds the SQL migrations applied by infra.Migrate.
//
//go:embed *.sql
var Files embed.FS
