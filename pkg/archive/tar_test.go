package archive

import (
	"archive/tar"
	"os"
	"path/filepath"
	"testing"
)

func writeSingleEntryTar(t *testing.T, path, entryName, content string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	tw := tar.NewWriter(f)
	if err := tw.WriteHeader(&tar.Header{Name: entryName, Mode: 0o644, Size: int64(len(content))}); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatalf("write body: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
}

func TestExtractFirstEntry(t *testing.T) {
	dir := t.TempDir()
	outer := filepath.Join(dir, "outer.tar")
	// The entry name intentionally differs from the archive file name; the
	// entry name is authoritative.
	writeSingleEntryTar(t, outer, "setup.json", `{"unit": 1}`)

	name, err := ExtractFirstEntry(outer, dir)
	if err != nil {
		t.Fatalf("ExtractFirstEntry failed: %v", err)
	}
	if name != "setup.json" {
		t.Fatalf("entry name = %q, want setup.json", name)
	}
	b, err := os.ReadFile(filepath.Join(dir, "setup.json"))
	if err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if string(b) != `{"unit": 1}` {
		t.Fatalf("unexpected content: %q", string(b))
	}
}

func TestExtractFirstEntry_Empty(t *testing.T) {
	dir := t.TempDir()
	outer := filepath.Join(dir, "empty.tar")
	f, err := os.Create(outer)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	tw := tar.NewWriter(f)
	_ = tw.Close()
	_ = f.Close()

	if _, err := ExtractFirstEntry(outer, dir); err == nil {
		t.Fatalf("expected error for archive without entries")
	}
}
