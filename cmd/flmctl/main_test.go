package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/VanDung-dev/flm-bridge/columnar"
	"github.com/VanDung-dev/flm-bridge/flm"
)

func flmctl(t *testing.T, workdir string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), append([]string{"-workdir", workdir}, args...), &stdout, &stderr)
	return stdout.String(), err
}

func TestConstants(t *testing.T) {
	out, err := flmctl(t, t.TempDir(), "constants")
	if err != nil {
		t.Fatalf("constants failed: %v", err)
	}
	var c flm.Constants
	if err := json.Unmarshal([]byte(out), &c); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if c != flm.GetConstants() {
		t.Errorf("Expected %+v, got %+v", flm.GetConstants(), c)
	}
}

func TestUsage(t *testing.T) {
	tests := [][]string{
		{},
		{"frobnicate"},
		{"enable"},
		{"install"},
		{"export", "extra"},
	}
	for _, args := range tests {
		if _, err := flmctl(t, t.TempDir(), args...); !errors.Is(err, errUsage) {
			t.Errorf("flmctl %v: expected usage error, got %v", args, err)
		}
	}
}

func TestInstallListExport(t *testing.T) {
	dir := t.TempDir()
	listFile := filepath.Join(t.TempDir(), "list.txt")
	if err := os.WriteFile(listFile, []byte("! Title: Local\n||a^\n||b^\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := flmctl(t, dir, "install", "-file", listFile, "-title", "Mine")
	if err != nil {
		t.Fatalf("install failed: %v", err)
	}
	var installed flm.FullFilterList
	if err := json.Unmarshal([]byte(out), &installed); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if installed.Title != "Mine" {
		t.Errorf("Expected title Mine, got %q", installed.Title)
	}

	out, err = flmctl(t, dir, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, `"Mine"`) {
		t.Errorf("Expected installed list in output, got %s", out)
	}

	exported := filepath.Join(t.TempDir(), "rules.arrow")
	if _, err := flmctl(t, dir, "export", "-o", exported); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err := os.ReadFile(exported)
	if err != nil {
		t.Fatal(err)
	}
	record, err := columnar.DeserializeFromIPC(data, nil)
	if err != nil {
		t.Fatalf("DeserializeFromIPC failed: %v", err)
	}
	defer record.Release()

	active, err := columnar.RecordToActiveRules(record)
	if err != nil {
		t.Fatalf("RecordToActiveRules failed: %v", err)
	}
	var found bool
	for _, a := range active {
		if a.FilterID == installed.ID {
			found = len(a.Rules) == 2
		}
	}
	if !found {
		t.Errorf("Expected two exported rules for %d, got %+v", installed.ID, active)
	}
}

func TestDeleteUnknownReportsNothing(t *testing.T) {
	out, err := flmctl(t, t.TempDir(), "delete", "-20000")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(out, `"deleted": 0`) {
		t.Errorf("Expected zero deletions, got %s", out)
	}
}

func TestInvalidID(t *testing.T) {
	if _, err := flmctl(t, t.TempDir(), "rules", "abc"); err == nil || errors.Is(err, errUsage) {
		t.Errorf("Expected invalid id error, got %v", err)
	}
}
