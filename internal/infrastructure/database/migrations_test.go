package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260101_000000_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY);")},
		"20260101_000000_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
		"20260102_000000_gadgets.up.sql":   {Data: []byte("CREATE TABLE gadgets (id TEXT PRIMARY KEY);")},
		"README.md":                        {Data: []byte("ignored")},
		"20260103_000000_orphan.down.sql":  {Data: []byte("DROP TABLE orphan;")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fsys := testMigrations()

	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	if !tableExists(t, db, "widgets") || !tableExists(t, db, "gadgets") {
		t.Fatal("migrated tables missing")
	}

	applied, pending, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("applied = %d, want 2", len(applied))
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}
	if applied[0].AppliedAt.IsZero() {
		t.Error("AppliedAt not recorded")
	}

	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrate_FailureStopsAtFailingMigration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fsys := fstest.MapFS{
		"20260101_000000_ok.up.sql":     {Data: []byte("CREATE TABLE ok (id INTEGER);")},
		"20260102_000000_broken.up.sql": {Data: []byte("CREATE TABLE (;")},
		"20260103_000000_later.up.sql":  {Data: []byte("CREATE TABLE later (id INTEGER);")},
	}

	if err := db.Migrate(ctx, fsys); err == nil {
		t.Fatal("Migrate() expected error")
	}

	if !tableExists(t, db, "ok") {
		t.Error("migration before the failure should stay committed")
	}
	if tableExists(t, db, "later") {
		t.Error("migration after the failure should not run")
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	fsys := testMigrations()

	if err := db.Migrate(ctx, fsys); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// gadgets has no down file.
	if err := db.MigrateDown(ctx, fsys); err == nil {
		t.Error("MigrateDown() expected error for migration without down SQL")
	}

	fsys["20260102_000000_gadgets.down.sql"] = &fstest.MapFile{Data: []byte("DROP TABLE gadgets;")}

	if err := db.MigrateDown(ctx, fsys); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "gadgets") {
		t.Error("gadgets should be dropped")
	}
	if !tableExists(t, db, "widgets") {
		t.Error("widgets should remain")
	}

	_, pending, err := db.MigrationStatus(ctx, fsys)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "gadgets" {
		t.Errorf("pending = %+v, want gadgets", pending)
	}
}

func TestMigrateDown_NothingApplied(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, nil); err != nil {
		t.Fatalf("Migrate(nil) error = %v", err)
	}
	if err := db.MigrateDown(ctx, testMigrations()); err != nil {
		t.Errorf("MigrateDown() with nothing applied error = %v", err)
	}
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := LoadMigrations(testMigrations())
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}

	if len(migrations) != 2 {
		t.Fatalf("len = %d, want 2 (orphan down and non-sql ignored)", len(migrations))
	}
	if migrations[0].Version != "20260101_000000" || migrations[1].Version != "20260102_000000" {
		t.Errorf("versions not sorted: %s, %s", migrations[0].Version, migrations[1].Version)
	}
	if migrations[0].DownSQL == "" {
		t.Error("widgets down SQL not loaded")
	}
	if migrations[1].DownSQL != "" {
		t.Error("gadgets should have no down SQL")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		wantVersion string
		wantUp      bool
		wantOK      bool
	}{
		{"20260118_120000_initial_schema.up.sql", "20260118_120000", true, true},
		{"20260118_120000_initial_schema.down.sql", "20260118_120000", false, true},
		{"20260118_120000.up.sql", "20260118_120000", true, true},
		{"20260118_120000_x.sql", "", false, false},
		{"notes.txt", "", false, false},
		{"single.up.sql", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.name)
			if version != tt.wantVersion || isUp != tt.wantUp || ok != tt.wantOK {
				t.Errorf("parseMigrationFilename(%q) = (%q, %v, %v), want (%q, %v, %v)",
					tt.name, version, isUp, ok, tt.wantVersion, tt.wantUp, tt.wantOK)
			}
		})
	}
}

func TestMigrationName(t *testing.T) {
	if got := migrationName("20260118_120000_initial_schema.up.sql"); got != "initial_schema" {
		t.Errorf("migrationName() = %q, want initial_schema", got)
	}
	if got := migrationName("20260118_120000.down.sql"); got != "20260118_120000" {
		t.Errorf("migrationName() = %q", got)
	}
}
