package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nightslip/internal/application/orchestrators"
	"nightslip/internal/application/projections"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("NIGHTSLIP_ENV", "development")
	t.Setenv("NIGHTSLIP_ADMIN_EMAILS", "chair@club.org")
	t.Setenv("NIGHTSLIP_ADMINS_FILE", "")
	t.Setenv("NIGHTSLIP_MIRROR_URL", "")
	return filepath.Join(t.TempDir(), "nightslip.db")
}

func runCtl(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestCtl_ImportDatesAndReset(t *testing.T) {
	db := setupEnv(t)
	csvPath := filepath.Join(t.TempDir(), "members.csv")
	if err := os.WriteFile(csvPath, []byte("Ana,R1,ana@club.org\nBen,R2,ben@club.org\n,R3,\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	admin := []string{"--db", db, "--as", "chair@club.org"}

	out, err := runCtl(t, append(admin, "import", csvPath)...)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "created=2") || !strings.Contains(out, "skipped=1") || !strings.Contains(out, "row 3:") {
		t.Errorf("import output = %q", out)
	}

	out, err = runCtl(t, append(admin, "dates", "add", "2025-03-01")...)
	if err != nil {
		t.Fatalf("dates add: %v", err)
	}
	fields := strings.Fields(out)
	if len(fields) != 3 || fields[0] != "created" {
		t.Fatalf("dates add output = %q", out)
	}
	dateID := fields[1]

	if _, err := runCtl(t, append(admin, "dates", "add", "2025-03-01")...); !errors.Is(err, orchestrators.ErrDateExists) {
		t.Errorf("duplicate date: err = %v, want ErrDateExists", err)
	}

	out, err = runCtl(t, "--db", db, "entries", dateID)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	var entries []projections.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "Ana" || entries[0].Coming != "NOT COMING" {
		t.Errorf("entries = %+v", entries)
	}

	out, err = runCtl(t, append(admin, "reset", dateID)...)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !strings.Contains(out, "0 records removed") {
		t.Errorf("reset output = %q", out)
	}
}

func TestCtl_RequiresAdmin(t *testing.T) {
	db := setupEnv(t)
	tests := []struct {
		name string
		args []string
	}{
		{"no actor", []string{"--db", db, "dates", "add", "2025-03-01"}},
		{"non-admin", []string{"--db", db, "--as", "ana@club.org", "dates", "add", "2025-03-01"}},
		{"case differs", []string{"--db", db, "--as", "Chair@club.org", "reset", "d1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCtl(t, tt.args...); !errors.Is(err, orchestrators.ErrAccessDenied) {
				t.Errorf("err = %v, want ErrAccessDenied", err)
			}
		})
	}
}

func TestCtl_UsageErrors(t *testing.T) {
	db := setupEnv(t)
	for _, args := range [][]string{
		{"--db", db},
		{"--db", db, "frobnicate"},
		{"--db", db, "dates"},
		{"--db", db, "sync"},
	} {
		if _, err := runCtl(t, args...); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}
