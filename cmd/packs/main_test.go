package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--db", db}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestPacksCLI(t *testing.T) {
	db := filepath.Join(t.TempDir(), "packs.db")

	if out, err := run(t, db, "count"); err != nil || strings.TrimSpace(out) != "0" {
		t.Fatalf("count = %q, %v", out, err)
	}
	if out, err := run(t, db, "grant", "3"); err != nil || !strings.Contains(out, "packs: 3") {
		t.Fatalf("grant = %q, %v", out, err)
	}
	if out, err := run(t, db, "consume", "1"); err != nil || !strings.Contains(out, "packs: 2") {
		t.Fatalf("consume = %q, %v", out, err)
	}
	if _, err := run(t, db, "consume", "5"); err == nil {
		t.Error("Expected consuming more than held to fail")
	}
	if _, err := run(t, db, "grant", "zero"); err == nil {
		t.Error("Expected bad count to fail")
	}

	out, err := run(t, db, "history", "--limit", "5")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header and 2 entries, got %q", out)
	}
	if !strings.Contains(lines[1], "-1") || !strings.Contains(lines[1], "consumed") {
		t.Errorf("Expected newest entry first, got %q", lines[1])
	}

	if out, err := run(t, db); err != nil || strings.TrimSpace(out) != "2" {
		t.Errorf("root = %q, %v", out, err)
	}
}
