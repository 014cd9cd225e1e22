package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func migrationFile(body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(body)}
}

func TestParseMigrationFileName(t *testing.T) {
	t.Parallel()

	version, name, direction, err := parseMigrationFileName("0003_add_outbox.up.sql")
	if err != nil {
		t.Fatalf("parse valid name: %v", err)
	}
	if version != 3 || name != "add_outbox" || direction != migrationUp {
		t.Fatalf("unexpected parse result: %d %q %s", version, name, direction)
	}

	invalid := []string{
		"0001_init.sql",
		"0001.up.sql",
		"_init.up.sql",
		"0001_init.up.txt",
		"0001_bad-name.down.sql",
		"x_init.up.sql",
	}
	for _, base := range invalid {
		if _, _, _, err := parseMigrationFileName(base); err == nil {
			t.Fatalf("expected parse error for %q", base)
		}
	}
}

func TestLoadMigrationsOrdersByVersion(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0002_more.up.sql":   migrationFile("CREATE TABLE test_b (id INT);"),
		"sql/migrations/0002_more.down.sql": migrationFile("DROP TABLE IF EXISTS test_b;"),
		"sql/migrations/0001_init.up.sql":   migrationFile("CREATE TABLE test_a (id INT);"),
		"sql/migrations/0001_init.down.sql": migrationFile("DROP TABLE IF EXISTS test_a;"),
	}

	migrations, err := loadMigrationsFromFS(fsys)
	if err != nil {
		t.Fatalf("loadMigrationsFromFS: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "init" {
		t.Fatalf("unexpected first migration: %+v", migrations[0])
	}
	if migrations[1].Version != 2 || migrations[1].Name != "more" {
		t.Fatalf("unexpected second migration: %+v", migrations[1])
	}
}

func TestLoadMigrationsRejectsBrokenSets(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		fsys    fstest.MapFS
		wantErr string
	}{
		{
			name:    "no files",
			fsys:    fstest.MapFS{},
			wantErr: "no migration files",
		},
		{
			name: "missing down pair",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql": migrationFile("CREATE TABLE t (id INT);"),
			},
			wantErr: "both up and down",
		},
		{
			name: "name mismatch within version",
			fsys: fstest.MapFS{
				"sql/migrations/0001_one.up.sql":     migrationFile("SELECT 1;"),
				"sql/migrations/0001_other.down.sql": migrationFile("SELECT 1;"),
			},
			wantErr: "name mismatch",
		},
		{
			name: "duplicate up script",
			fsys: fstest.MapFS{
				"sql/migrations/1_init.up.sql":      migrationFile("SELECT 1;"),
				"sql/migrations/0001_init.up.sql":   migrationFile("SELECT 1;"),
				"sql/migrations/0001_init.down.sql": migrationFile("SELECT 1;"),
			},
			wantErr: "duplicate up",
		},
		{
			name: "blank body",
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":   migrationFile("   \n"),
				"sql/migrations/0001_init.down.sql": migrationFile("DROP TABLE IF EXISTS t;"),
			},
			wantErr: "is empty",
		},
		{
			name: "unparsable file name",
			fsys: fstest.MapFS{
				"sql/migrations/not_a_migration.sql": migrationFile("SELECT 1;"),
			},
			wantErr: "invalid migration file name",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := loadMigrationsFromFS(tc.fsys)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestEmbeddedMigrationsAreWellFormed(t *testing.T) {
	t.Parallel()

	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		t.Fatalf("loadMigrationsFromFS on embedded files: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one embedded migration")
	}

	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version <= migrations[i-1].Version {
			t.Fatalf("embedded migrations are not strictly ordered: %d after %d",
				migrations[i].Version, migrations[i-1].Version)
		}
	}
}
