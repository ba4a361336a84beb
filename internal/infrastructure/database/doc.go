// Package database provides the SQLite connection behind the bridge's
// host state store.
//
// It manages:
//   - Opening the database with WAL mode and a busy timeout
//   - Versioned schema migrations read from an fs.FS
//   - Health checks used by the API
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive only: new columns must be nullable or carry a
// default, and every .up.sql has a matching .down.sql.
package database
