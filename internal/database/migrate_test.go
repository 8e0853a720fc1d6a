// Package database provides connection setup for MariaDB and Redis.
// This file validates migration SQL files to catch schema mistakes early.
package database

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
)

// migrationsDir returns the absolute path to migrations/ from the project root.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	// thisFile is internal/database/migrate_test.go, project root is two dirs up.
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	dir := filepath.Join(projectRoot, "migrations")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations directory not found at %s: %v", dir, err)
	}
	return dir
}

// TestMigrations_UpDownPairs verifies that every up migration has a matching
// down migration. golang-migrate refuses to roll back otherwise.
func TestMigrations_UpDownPairs(t *testing.T) {
	dir := migrationsDir(t)
	ups, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}
	if len(ups) == 0 {
		t.Fatal("no up migrations found")
	}

	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := os.Stat(down); err != nil {
			t.Errorf("missing down migration for %s", filepath.Base(up))
		}
	}
}

// TestMigrations_SequentialVersions verifies migration version numbers are
// unique and strictly sequential starting at 1. Gaps or duplicates make
// golang-migrate's version tracking unreliable.
func TestMigrations_SequentialVersions(t *testing.T) {
	dir := migrationsDir(t)
	ups, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}

	versionRe := regexp.MustCompile(`^(\d{6})_`)
	seen := make(map[string]string)
	for _, up := range ups {
		base := filepath.Base(up)
		m := versionRe.FindStringSubmatch(base)
		if m == nil {
			t.Errorf("migration %s does not follow NNNNNN_name.up.sql naming", base)
			continue
		}
		if prev, dup := seen[m[1]]; dup {
			t.Errorf("duplicate migration version %s: %s and %s", m[1], prev, base)
		}
		seen[m[1]] = base
	}
}

// TestMigrations_NoTagCascade guards the tag referential-integrity design:
// the post_tags foreign key on tag_id must NOT cascade. Deleting a
// referenced tag has to fail at the service layer with a Conflict, and a
// cascade here would silently unlink posts instead.
func TestMigrations_NoTagCascade(t *testing.T) {
	dir := migrationsDir(t)
	ups, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}

	for _, up := range ups {
		content, err := os.ReadFile(up)
		if err != nil {
			t.Fatalf("reading %s: %v", up, err)
		}
		sql := strings.ToLower(string(content))
		if !strings.Contains(sql, "post_tags") {
			continue
		}

		for _, line := range strings.Split(sql, "\n") {
			if strings.Contains(line, "tag_id") &&
				strings.Contains(line, "references tags") &&
				strings.Contains(line, "on delete cascade") {
				t.Errorf("%s: tag_id foreign key must not cascade deletes", filepath.Base(up))
			}
		}
	}
}
