package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestResolveObjectKey(t *testing.T) {
	cases := []struct{ prefix, override, want string }{
		{"exports", "", "exports"},
		{"", "/demo.json", "demo.json"},
		{"exports/", "demo.json", "exports/demo.json"},
		{"exports", "exports/2025/w11.json", "exports/2025/w11.json"},
	}
	for _, tc := range cases {
		if got := resolveObjectKey(tc.prefix, tc.override); got != tc.want {
			t.Errorf("resolveObjectKey(%q, %q) = %q, want %q", tc.prefix, tc.override, got, tc.want)
		}
	}
}

func TestObjectRelativePath(t *testing.T) {
	if got := objectRelativePath("exports", "exports/2025/w11.json"); got != "2025/w11.json" {
		t.Errorf("got %q", got)
	}
	if got := objectRelativePath("", "a/b.json"); got != "a/b.json" {
		t.Errorf("got %q", got)
	}
}

func TestLocalExports(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.JSON", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := localExports(dir)
	if err != nil {
		t.Fatalf("localExports: %v", err)
	}
	want := []string{filepath.Join(dir, "a.JSON"), filepath.Join(dir, "b.json")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := localExports(t.TempDir()); err == nil {
		t.Error("expected an error for a directory without exports")
	}
}
