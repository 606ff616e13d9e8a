package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is applied in file-name order by `quiz-service migrate` and on start.
var Migrations = migrate.NewMigrations()
