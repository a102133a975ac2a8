package sink

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func newTestSink(t *testing.T, opts Options) (*FileSink, string) {
	t.Helper()
	dir := t.TempDir()
	return NewFileSink(slog.New(slog.NewTextHandler(io.Discard, nil)), dir, opts), dir
}

func TestCommitMakesFileVisible(t *testing.T) {
	s, dir := newTestSink(t, Options{})

	h, err := s.Open("a.bin", "application/octet-stream")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := h.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Before commit only the .part file exists.
	if _, err := os.Stat(filepath.Join(dir, "a.bin")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("final visible before commit: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.bin.part")); err != nil {
		t.Fatalf("part missing before commit: %v", err)
	}

	if err := h.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "a.bin"))
	if err != nil || string(b) != "hello" {
		t.Fatalf("final content = %q, %v", b, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.bin.part")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("part left behind after commit: %v", err)
	}
}

func TestDiscardRemovesPartial(t *testing.T) {
	s, dir := newTestSink(t, Options{})

	h, err := s.Open("b.bin", "application/octet-stream")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := h.Write([]byte("partial")); err != nil {
		t.Fatalf("write: %v", err)
	}
	h.Discard()

	for _, name := range []string{"b.bin", "b.bin.part"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("%s left behind after discard: %v", name, err)
		}
	}
	// Idempotent.
	h.Discard()
}

func TestOpenRejectsExistingTarget(t *testing.T) {
	s, dir := newTestSink(t, Options{})
	if err := os.WriteFile(filepath.Join(dir, "c.bin"), []byte("old"), 0644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.Open("c.bin", "application/octet-stream"); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestOpenOverwriteReplacesTarget(t *testing.T) {
	s, dir := newTestSink(t, Options{Overwrite: true})
	if err := os.WriteFile(filepath.Join(dir, "d.bin"), []byte("old"), 0644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	h, err := s.Open("d.bin", "application/octet-stream")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := h.Write([]byte("new")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := h.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	b, _ := os.ReadFile(filepath.Join(dir, "d.bin"))
	if string(b) != "new" {
		t.Fatalf("content = %q, want new", b)
	}
}

func TestOpenRejectsPathyNames(t *testing.T) {
	s, _ := newTestSink(t, Options{})
	for _, name := range []string{"", "x/y.bin", "../z.bin"} {
		if _, err := s.Open(name, ""); err == nil {
			t.Fatalf("expected error for name %q", name)
		}
	}
}

type failRenameFS struct {
	fsOps
	err error
}

func (f failRenameFS) Rename(o, n string) error { return f.err }

func TestCommitFailureLeavesPartForDiscard(t *testing.T) {
	s, dir := newTestSink(t, Options{})
	s.fs = failRenameFS{fsOps: osFS{}, err: errors.New("disk gone")}

	h, err := s.Open("e.bin", "application/octet-stream")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := h.Write([]byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := h.Commit(); err == nil {
		t.Fatalf("expected commit failure")
	}
	h.Discard()
	if _, err := os.Stat(filepath.Join(dir, "e.bin.part")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("part not cleaned up after failed commit: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "e.bin")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("final file appeared despite failed commit")
	}
}
