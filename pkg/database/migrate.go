package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies every embedded migration in file-name order. The scripts
// are idempotent, so running them on each boot is safe.
func Migrate(ctx context.Context, db PgxIface, log *zap.Logger) error {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		script, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := db.Exec(ctx, string(script)); err != nil {
			log.Error("Migration failed", zap.String("file", name), zap.Error(err))
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		log.Info("Migration applied", zap.String("file", name))
	}

	return nil
}
