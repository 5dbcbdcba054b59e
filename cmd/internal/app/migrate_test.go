package app

import (
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func TestMigrateURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "postgres://u:p@localhost:5432/pulse", want: "pgx5://u:p@localhost:5432/pulse"},
		{in: "postgresql://localhost/pulse", want: "pgx5://localhost/pulse"},
		{in: "pgx5://localhost/pulse", want: "pgx5://localhost/pulse"},
	}

	for _, tc := range cases {
		if got := migrateURL(tc.in); got != tc.want {
			t.Fatalf("migrateURL(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	t.Parallel()

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("iofs.New: %v", err)
	}
	defer func() { _ = src.Close() }()

	first, err := src.First()
	if err != nil {
		t.Fatalf("First: %v", err)
	}
	if first != 1 {
		t.Fatalf("first version=%d want=1", first)
	}

	next, err := src.Next(first)
	if err != nil {
		t.Fatalf("Next(%d): %v", first, err)
	}
	if next != 2 {
		t.Fatalf("next version=%d want=2", next)
	}
}
