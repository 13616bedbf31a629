package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-agrocms/internal/animals"
	"github.com/goliatone/go-agrocms/internal/runtimeconfig"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/extra/bundebug"
)

var ErrDriverUnsupported = errors.New("storage: unsupported driver")

// Open connects to the configured database and returns a bun handle. SQLite
// connections always enforce foreign keys.
func Open(cfg runtimeconfig.StorageConfig) (*bun.DB, error) {
	dsn := strings.TrimSpace(cfg.DSN)

	var (
		sqlDB *sql.DB
		db    *bun.DB
		err   error
	)
	switch runtimeconfig.NormalizeDriver(cfg.Driver) {
	case runtimeconfig.DriverSQLite:
		sqlDB, err = sql.Open("sqlite3", withForeignKeys(dsn))
		if err != nil {
			return nil, fmt.Errorf("storage: open sqlite: %w", err)
		}
		if strings.Contains(dsn, "mode=memory") || strings.Contains(dsn, ":memory:") {
			// every connection to a memory database sees its own data.
			sqlDB.SetMaxOpenConns(1)
		}
		db = bun.NewDB(sqlDB, sqlitedialect.New())
	case runtimeconfig.DriverPostgres:
		sqlDB, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("storage: open postgres: %w", err)
		}
		db = bun.NewDB(sqlDB, pgdialect.New())
	default:
		return nil, fmt.Errorf("%w: %q", ErrDriverUnsupported, cfg.Driver)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db, nil
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_fk=") || strings.Contains(dsn, "_foreign_keys=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_fk=1"
	}
	return dsn + "?_fk=1"
}

type tableSpec struct {
	model      any
	foreignKey string
	index      string
	column     string
}

var catalogTables = []tableSpec{
	{model: (*animals.AnimalType)(nil)},
	{
		model:      (*animals.Issue)(nil),
		foreignKey: `("animal_type_id") REFERENCES "animal_types" ("id") ON DELETE CASCADE`,
		index:      "animal_issues_animal_type_id_idx",
		column:     "animal_type_id",
	},
	{
		model:      (*animals.IssueTab)(nil),
		foreignKey: `("issue_id") REFERENCES "animal_issues" ("id") ON DELETE CASCADE`,
		index:      "animal_issue_tabs_issue_id_idx",
		column:     "issue_id",
	},
	{
		model:      (*animals.IssueImage)(nil),
		foreignKey: `("issue_id") REFERENCES "animal_issues" ("id") ON DELETE CASCADE`,
		index:      "animal_issue_images_issue_id_idx",
		column:     "issue_id",
	},
}

// Migrate creates the catalog tables and their owner indexes. It is safe to
// run repeatedly.
func Migrate(ctx context.Context, db bun.IDB) error {
	for _, spec := range catalogTables {
		query := db.NewCreateTable().Model(spec.model).IfNotExists()
		if spec.foreignKey != "" {
			query = query.ForeignKey(spec.foreignKey)
		}
		if _, err := query.Exec(ctx); err != nil {
			return fmt.Errorf("storage: create table %T: %w", spec.model, err)
		}
		if spec.index == "" {
			continue
		}
		if _, err := db.NewCreateIndex().
			Model(spec.model).
			Index(spec.index).
			Column(spec.column).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("storage: create index %s: %w", spec.index, err)
		}
	}
	return nil
}
