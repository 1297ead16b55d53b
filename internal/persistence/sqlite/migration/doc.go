// Package migration applies versioned SQL files to a SQLite database.
//
// Migration files live in an fs.FS (usually an embed.FS) and follow the
// naming convention {version}_{description}.sql, for example
// "0001_create_events.sql". Applied versions are tracked in the
// schema_migrations table; each migration runs inside its own transaction
// together with its bookkeeping row.
//
//	manager := migration.NewManager(
//		migration.NewFileScanner(files),
//		migration.NewSQLiteExecutor(db),
//		"migrations",
//		logger,
//	)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
