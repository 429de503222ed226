package migrations

import "embed"

// FS holds the per-driver SQL migrations (sqlite/, postgres/).
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
