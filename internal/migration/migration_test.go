package migration

import (
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"

	"github.com/3grands/habitflow/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// sqlFS builds an in-memory migrations directory from filename to SQL.
func sqlFS(files map[string]string) fstest.MapFS {
	m := fstest.MapFS{}
	for name, content := range files {
		m[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return m
}

var habitMigrations = map[string]string{
	"001_habits.sql":      "CREATE TABLE habits (id INTEGER PRIMARY KEY, name TEXT NOT NULL);",
	"002_completions.sql": "CREATE TABLE habit_completions (habit_id INTEGER, date TEXT, UNIQUE(habit_id, date));",
	"003_streak.sql":      "ALTER TABLE habits ADD COLUMN streak INTEGER NOT NULL DEFAULT 0;",
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n); err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	return n == 1
}

func TestApplyMigrationsInOrder(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, sqlFS(habitMigrations), DriverSQLite)

	version, err := runner.GetCurrentVersion()
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0 on a fresh database, got %d", version)
	}
	if pending, _ := runner.Pending(); pending != 3 {
		t.Errorf("expected 3 pending migrations, got %d", pending)
	}

	var applied []string
	count, err := runner.ApplyMigrations(func(msg string) {
		if strings.HasPrefix(strings.TrimSpace(msg), "Applying migration") {
			applied = append(applied, strings.TrimSpace(msg))
		}
	})
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 migrations applied, got %d", count)
	}
	want := []string{"Applying migration 1: habits", "Applying migration 2: completions", "Applying migration 3: streak"}
	if strings.Join(applied, "|") != strings.Join(want, "|") {
		t.Errorf("unexpected apply order: %v", applied)
	}

	// streak only exists if 003 ran after 001
	if _, err := db.Exec("INSERT INTO habits (name, streak) VALUES ('Read', 2)"); err != nil {
		t.Errorf("expected streak column: %v", err)
	}
	if version, _ := runner.GetCurrentVersion(); version != 3 {
		t.Errorf("expected version 3, got %d", version)
	}

	count, err = runner.ApplyMigrations(nil)
	if err != nil || count != 0 {
		t.Errorf("second run should be a no-op, got %d, %v", count, err)
	}
}

func TestApplyMigrationsIncremental(t *testing.T) {
	db := setupTestDB(t)

	first := map[string]string{"001_habits.sql": habitMigrations["001_habits.sql"]}
	if _, err := NewRunner(db, sqlFS(first), DriverSQLite).ApplyMigrations(nil); err != nil {
		t.Fatalf("initial ApplyMigrations failed: %v", err)
	}

	count, err := NewRunner(db, sqlFS(habitMigrations), DriverSQLite).ApplyMigrations(nil)
	if err != nil {
		t.Fatalf("incremental ApplyMigrations failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 new migrations, got %d", count)
	}
	if !tableExists(t, db, "habit_completions") {
		t.Error("habit_completions was not created")
	}
}

func TestFailedMigrationRollsBack(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, sqlFS(map[string]string{
		"001_habits.sql": habitMigrations["001_habits.sql"],
		"002_broken.sql": "CREATE TABLE mood_entries (id INTEGER); INSERT INTO missing_table VALUES (1);",
	}), DriverSQLite)

	count, err := runner.ApplyMigrations(nil)
	if err == nil {
		t.Fatal("expected the broken migration to fail")
	}
	if count != 1 {
		t.Errorf("expected 1 migration applied before the failure, got %d", count)
	}
	if version, _ := runner.GetCurrentVersion(); version != 1 {
		t.Errorf("expected version to stay at 1, got %d", version)
	}
	if tableExists(t, db, "mood_entries") {
		t.Error("partial migration should have been rolled back")
	}
}

func TestValidateVersionNewerDatabase(t *testing.T) {
	db := setupTestDB(t)
	if _, err := NewRunner(db, sqlFS(habitMigrations), DriverSQLite).ApplyMigrations(nil); err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}

	older := NewRunner(db, sqlFS(map[string]string{"001_habits.sql": habitMigrations["001_habits.sql"]}), DriverSQLite)
	err := older.ValidateVersion()
	if err == nil || !strings.Contains(err.Error(), "newer than supported") {
		t.Errorf("expected newer schema error, got %v", err)
	}
	if _, err := older.ApplyMigrations(nil); err == nil {
		t.Error("ApplyMigrations should refuse a newer database")
	}
}

func TestReadMigrationFilesRejectsBadNames(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "missing underscore",
			files:   map[string]string{"001habits.sql": "SELECT 1;"},
			wantErr: "invalid migration filename format",
		},
		{
			name:    "non-numeric version",
			files:   map[string]string{"abc_habits.sql": "SELECT 1;"},
			wantErr: "invalid version number",
		},
		{
			name:    "version zero",
			files:   map[string]string{"000_habits.sql": "SELECT 1;"},
			wantErr: "version must be at least 1",
		},
		{
			name:    "duplicate version",
			files:   map[string]string{"001_habits.sql": "SELECT 1;", "001_moods.sql": "SELECT 1;"},
			wantErr: "duplicate migration version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(nil, sqlFS(tt.files), DriverSQLite).ReadMigrationFiles()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestReadMigrationFilesSkipsOtherFiles(t *testing.T) {
	files := sqlFS(habitMigrations)
	files["README.md"] = &fstest.MapFile{Data: []byte("notes")}

	runner := NewRunner(nil, files, DriverSQLite)
	list, err := runner.ReadMigrationFiles()
	if err != nil {
		t.Fatalf("ReadMigrationFiles failed: %v", err)
	}
	if len(list) != 3 || list[0].Name != "habits" || list[2].Version != 3 {
		t.Errorf("unexpected migrations: %+v", list)
	}
	if latest, _ := runner.GetLatestVersion(); latest != 3 {
		t.Errorf("expected latest version 3, got %d", latest)
	}
}

func TestEmbeddedSQLiteMigrations(t *testing.T) {
	db := setupTestDB(t)

	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		t.Fatalf("failed to open embedded migrations: %v", err)
	}
	runner := NewRunner(db, subFS, DriverSQLite)

	var logged []string
	count, err := runner.ApplyMigrations(func(msg string) { logged = append(logged, msg) })
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if count < 2 {
		t.Errorf("expected at least 2 migrations applied, got %d", count)
	}
	if len(logged) == 0 {
		t.Error("expected progress messages")
	}

	for _, table := range []string{"habits", "habit_completions", "mood_entries"} {
		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n); err != nil || n != 1 {
			t.Errorf("table %s was not created", table)
		}
	}

	pending, err := runner.Pending()
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if pending != 0 {
		t.Errorf("expected no pending migrations, got %d", pending)
	}

	if _, err := db.Exec(`INSERT INTO habit_completions (habit_id, date) VALUES (1, '2025-01-01')`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO habit_completions (habit_id, date) VALUES (1, '2025-01-01')`); err == nil {
		t.Error("expected one completion per habit per day")
	}
}

func TestEmbeddedPostgresMigrationsParse(t *testing.T) {
	subFS, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		t.Fatalf("failed to open embedded migrations: %v", err)
	}
	runner := NewRunner(nil, subFS, DriverPostgres)

	latest, err := runner.GetLatestVersion()
	if err != nil {
		t.Fatalf("GetLatestVersion failed: %v", err)
	}

	sqliteFS, _ := fs.Sub(migrations.FS, "sqlite")
	sqliteLatest, err := NewRunner(nil, sqliteFS, DriverSQLite).GetLatestVersion()
	if err != nil {
		t.Fatalf("GetLatestVersion failed: %v", err)
	}
	if latest != sqliteLatest {
		t.Errorf("postgres schema at version %d, sqlite at %d", latest, sqliteLatest)
	}
}
