package growfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()

	if err := os.WriteFile(path, []byte("Date Time P T RH DD FF V U Height Lon Lat VV\r\n"), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("setting times on %s: %v", path, err)
	}
}

func TestSelectLatest(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)

	touch(t, filepath.Join(dir, "RawData_20240101000000_S1.txt"), base)
	touch(t, filepath.Join(dir, "RawData_20240102000000_S2.txt"), base.Add(2*time.Minute))
	touch(t, filepath.Join(dir, "RawData_20240103000000_S3.txt"), base.Add(time.Minute))
	touch(t, filepath.Join(dir, "XData_20240104000000_S4.txt"), base.Add(5*time.Minute))

	got, err := SelectLatest(dir, "RawData*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(dir, "RawData_20240102000000_S2.txt"); got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	// a new flight starts
	newest := filepath.Join(dir, "RawData_20240105000000_S5.txt")
	touch(t, newest, base.Add(10*time.Minute))

	got, err = SelectLatest(dir, "RawData*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != newest {
		t.Errorf("got %s, want %s", got, newest)
	}
}

func TestSelectLatest_NoMatchingFile(t *testing.T) {
	dir := t.TempDir()

	if _, err := SelectLatest(dir, "XData*"); !errors.Is(err, sounding.ErrNoMatchingFile) {
		t.Fatalf("expected ErrNoMatchingFile, got %v", err)
	}

	if _, err := SelectLatest(filepath.Join(dir, "missing"), "XData*"); !errors.Is(err, sounding.ErrNoMatchingFile) {
		t.Fatalf("expected ErrNoMatchingFile for a missing directory, got %v", err)
	}
}

func TestSelectLatest_IgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)

	touch(t, filepath.Join(dir, "XData_1.txt"), base)
	if err := os.Mkdir(filepath.Join(dir, "XData_archive"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := SelectLatest(dir, "XData*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(got) != "XData_1.txt" {
		t.Errorf("got %s", got)
	}
}

func TestLatest_TieBreak(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Now().Add(-time.Minute).Truncate(time.Second)

	touch(t, filepath.Join(dir, "RawData_a.txt"), mtime)
	touch(t, filepath.Join(dir, "RawData_b.txt"), mtime)

	f, err := Latest(dir, "RawData*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(f.Path) != "RawData_b.txt" {
		t.Errorf("got %s", f.Path)
	}
	if f.Size == 0 {
		t.Error("size not reported")
	}
}

func TestLatest_BadPattern(t *testing.T) {
	if _, err := Latest(t.TempDir(), "Raw[*"); !errors.Is(err, filepath.ErrBadPattern) {
		t.Fatalf("expected ErrBadPattern, got %v", err)
	}
}
