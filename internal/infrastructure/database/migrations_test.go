package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func testSource() Source {
	return Source{
		FS: fstest.MapFS{
			"sql/20260101_000000_create_props.up.sql": {
				Data: []byte("CREATE TABLE props (id INTEGER PRIMARY KEY, name TEXT NOT NULL);"),
			},
			"sql/20260101_000000_create_props.down.sql": {
				Data: []byte("DROP TABLE props;"),
			},
			"sql/20260102_000000_add_props_note.up.sql": {
				Data: []byte("ALTER TABLE props ADD COLUMN note TEXT;"),
			},
			"sql/README.md": {Data: []byte("ignored")},
		},
		Dir: "sql",
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		t.Fatalf("query error: %v", err)
	}
	return count == 1
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testSource()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "props") {
		t.Fatal("table props not created")
	}

	applied, pending, err := db.MigrationStatus(ctx, testSource())
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied = %d, pending = %d, want 2/0", len(applied), len(pending))
	}
	if applied[0].Version != "20260101_000000" || applied[0].AppliedAt.IsZero() {
		t.Errorf("first record = %+v", applied[0])
	}

	if err := db.Migrate(ctx, testSource()); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrate_FailureKeepsEarlierSteps(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	src := testSource()
	src.FS.(fstest.MapFS)["sql/20260103_000000_broken.up.sql"] = &fstest.MapFile{Data: []byte("NOT SQL")}

	if err := db.Migrate(ctx, src); err == nil {
		t.Fatal("Migrate() with broken step returned nil")
	}
	applied, pending, err := db.MigrationStatus(ctx, src)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 1 {
		t.Errorf("applied = %d, pending = %d, want 2/1", len(applied), len(pending))
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// Only the first step has down SQL.
	src := testSource()
	delete(src.FS.(fstest.MapFS), "sql/20260102_000000_add_props_note.up.sql")

	if err := db.Migrate(ctx, src); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, src); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "props") {
		t.Error("table props should have been dropped")
	}

	applied, _, err := db.MigrationStatus(ctx, src)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("applied after rollback = %d, want 0", len(applied))
	}

	// Nothing left to roll back.
	if err := db.MigrateDown(ctx, src); err != nil {
		t.Errorf("MigrateDown() on empty history error = %v", err)
	}
}

func TestMigrateDown_NoDownSQL(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testSource()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, testSource()); err == nil {
		t.Error("MigrateDown() without down SQL returned nil")
	}
}

func TestMigrate_NilSource(t *testing.T) {
	db := openTestDB(t)

	if err := db.Migrate(context.Background(), Source{}); err != nil {
		t.Fatalf("Migrate() with no source error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantIsUp    bool
		wantOk      bool
	}{
		{"20260118_120000_create_runs.up.sql", "20260118_120000", true, true},
		{"20260118_120000_create_runs.down.sql", "20260118_120000", false, true},
		{"readme.txt", "", false, false},
		{"20260118_120000_create_runs.sql", "", false, false},
		{"invalid.up.sql", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && (version != tt.wantVersion || isUp != tt.wantIsUp) {
				t.Errorf("got (%q, %v), want (%q, %v)", version, isUp, tt.wantVersion, tt.wantIsUp)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20260118_120000_create_runs.up.sql", "create_runs"},
		{"20260118_120000_initial_schema.down.sql", "initial_schema"},
		{"20260118_120000_add_fault_index.up.sql", "add_fault_index"},
	}

	for _, tt := range tests {
		if got := extractMigrationName(tt.filename); got != tt.want {
			t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
