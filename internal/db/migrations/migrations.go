// Package migrations embeds the SQL migration files for goose to apply,
// mirroring the teacher's internal/db/migrations package.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
