package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	"github.com/DanielPopoola/payment-orchestrator/db/migrations"
	"github.com/DanielPopoola/payment-orchestrator/internal/infrastructure/persistence"
)

// Migrate applies every embedded *.up.sql file in name order. The files are
// idempotent, so running it on each start is safe.
func Migrate(ctx context.Context, db *persistence.DB) error {
	files, err := fs.Glob(migrations.FS, "*.up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		sql, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.Pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
	}
	return nil
}
