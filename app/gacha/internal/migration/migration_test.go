package migration

import (
	"io/fs"
	"testing"
)

func TestPgxURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u@h:5432/db?sslmode=disable", "pgx5://u@h:5432/db?sslmode=disable"},
		{"postgresql://u@h/db", "pgx5://u@h/db"},
		{"pgx5://u@h/db", "pgx5://u@h/db"},
	}
	for _, tt := range tests {
		if got := pgxURL(tt.in); got != tt.want {
			t.Errorf("pgxURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "sql/*.up.sql")
	if err != nil {
		t.Fatal(err)
	}
	downs, err := fs.Glob(migrationsFS, "sql/*.down.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(ups) == 0 || len(ups) != len(downs) {
		t.Fatalf("expected paired migrations, got %d up / %d down", len(ups), len(downs))
	}
}
