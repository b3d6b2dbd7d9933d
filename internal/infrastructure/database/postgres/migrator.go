package postgres

import (
	stderrors "errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Migrator
// ─────────────────────────────────────────────────────────────────────────────

// Migrator applies SQL schema migrations from a directory of versioned files.
type Migrator struct {
	m   *migrate.Migrate
	log logging.Logger
}

// NewMigrator builds a Migrator reading migrations from cfg.MigrationPath.
func NewMigrator(cfg config.DatabaseConfig, log logging.Logger) (*Migrator, error) {
	if cfg.MigrationPath == "" {
		return nil, errors.New(errors.ErrCodeDatabaseError, "migration path not configured")
	}
	m, err := migrate.New("file://"+cfg.MigrationPath, DSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "initialize migrator")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Migrator{m: m, log: log}, nil
}

// Up applies all pending migrations. A database already at the latest
// version is not an error.
func (mg *Migrator) Up() error {
	before, _, _ := mg.m.Version()

	err := mg.m.Up()
	if err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "apply migrations")
	}

	after, dirty, verr := mg.m.Version()
	if verr != nil && !stderrors.Is(verr, migrate.ErrNilVersion) {
		return errors.Wrap(verr, errors.ErrCodeDatabaseError, "read migration version")
	}
	if dirty {
		return errors.New(errors.ErrCodeDatabaseError,
			fmt.Sprintf("migration version %d is dirty, manual repair required", after))
	}

	if stderrors.Is(err, migrate.ErrNoChange) {
		mg.log.Debug("schema already up to date", logging.Int("version", int(after)))
	} else {
		mg.log.Info("schema migrated",
			logging.Int("from", int(before)),
			logging.Int("to", int(after)),
		)
	}
	return nil
}

// Down rolls back the most recent migration.
func (mg *Migrator) Down() error {
	if err := mg.m.Steps(-1); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "rollback migration")
	}
	version, _, _ := mg.m.Version()
	mg.log.Info("rolled back one migration", logging.Int("version", int(version)))
	return nil
}

// Version reports the current schema version and dirty flag.
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if err != nil {
		if stderrors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "read migration version")
	}
	return version, dirty, nil
}

// Close releases the migrator's own database connection.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	if srcErr != nil {
		return errors.Wrap(srcErr, errors.ErrCodeDatabaseError, "close migration source")
	}
	if dbErr != nil {
		return errors.Wrap(dbErr, errors.ErrCodeDatabaseError, "close migration database handle")
	}
	return nil
}
