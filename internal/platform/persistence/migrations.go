package persistence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // PostgreSQL driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // File source driver
)

var (
	ErrMigrationsPathNotSet = errors.New("POSTGRES_MIGRATIONS_PATH is not set")
	ErrDatabaseURLNotSet    = errors.New("POSTGRES_URL is not set")
)

// ErrDirtySchema means a previous migration failed halfway and needs manual repair
type ErrDirtySchema struct {
	Version uint
}

func (e ErrDirtySchema) Error() string {
	return fmt.Sprintf("payment_messages schema is dirty at version %d", e.Version)
}

// RunMigrations brings the receipts and payment_messages tables up to date and
// returns the resulting schema version. migrationsPath may carry a file:// prefix.
func RunMigrations(databaseURL string, migrationsPath string) (uint, error) {
	if migrationsPath == "" {
		return 0, ErrMigrationsPathNotSet
	}
	if databaseURL == "" {
		return 0, ErrDatabaseURLNotSet
	}

	m, err := migrate.New(migrationSourceURL(migrationsPath), databaseURL)
	if err != nil {
		return 0, fmt.Errorf("failed to open schema migrations at %s: %w", migrationsPath, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			return 0, ErrDirtySchema{Version: uint(dirty.Version)}
		}
		return 0, fmt.Errorf("failed to migrate schema: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return 0, ErrDirtySchema{Version: version}
	}
	return version, nil
}

func migrationSourceURL(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	return "file://" + path
}
