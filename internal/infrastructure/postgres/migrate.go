package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate aplica en orden los scripts de migrations/. Son idempotentes (IF NOT EXISTS).
// Devuelve los nombres aplicados.
func Migrate(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	for _, name := range names {
		script, err := migrationFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		if _, err := pool.Exec(ctx, string(script)); err != nil {
			return nil, fmt.Errorf("migración %s: %w", name, err)
		}
	}
	return names, nil
}
