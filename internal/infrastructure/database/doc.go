// Package database provides SQLite connectivity for the controller's run
// history.
//
// The database is an audit trail. Chains never restore runtime state from
// it, so the controller runs with it disabled.
//
// This package manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Versioned schema migrations read from an fs.FS
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.Source()); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns are NULLABLE or have defaults, and
// each .up.sql ships with a .down.sql.
package database
