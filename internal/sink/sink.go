// Package sink owns the partial artifact of a transfer: bytes are staged in
// a ".part" file that becomes visible under its final name only on Commit.
package sink

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	dirPerm  = 0755
	filePerm = 0644

	partSuffix = ".part"
)

// ErrExists is returned by Open when the final name is already taken and
// overwriting is disabled.
var ErrExists = errors.New("target file already exists")

// Opener hands out writable destinations for target file names.
type Opener interface {
	Open(name, mimeType string) (Handle, error)
}

// Handle is one staged destination. Exactly one of Commit or Discard must be
// called per handle. Discard is best-effort and never returns an error; a
// failure there is logged since it runs on already-failing paths.
type Handle interface {
	Write(p []byte) (int, error)
	Commit() error
	Discard()
}

type fsOps interface {
	MkdirAll(path string, perm fs.FileMode) error
	OpenFile(name string, flag int, perm fs.FileMode) (*os.File, error)
	Stat(name string) (fs.FileInfo, error)
	Rename(oldpath, newpath string) error
	Remove(name string) error
}

type osFS struct{}

func (osFS) MkdirAll(p string, perm fs.FileMode) error { return os.MkdirAll(p, perm) }
func (osFS) OpenFile(n string, f int, p fs.FileMode) (*os.File, error) {
	return os.OpenFile(n, f, p)
}
func (osFS) Stat(n string) (fs.FileInfo, error) { return os.Stat(n) }
func (osFS) Rename(o, n string) error           { return os.Rename(o, n) }
func (osFS) Remove(n string) error              { return os.Remove(n) }

// Options tunes a FileSink.
type Options struct {
	// Overwrite allows replacing an existing final file instead of failing.
	Overwrite bool
}

// FileSink stages downloads in a local directory.
type FileSink struct {
	dir  string
	opts Options
	log  *slog.Logger
	fs   fsOps
}

func NewFileSink(log *slog.Logger, dir string, opts Options) *FileSink {
	if log == nil {
		log = slog.Default()
	}
	return &FileSink{dir: dir, opts: opts, log: log, fs: osFS{}}
}

var _ Opener = (*FileSink)(nil)

// Open stages a destination for name. The mime type is recorded for
// observability; a plain filesystem has nowhere else to put it.
func (s *FileSink) Open(name, mimeType string) (Handle, error) {
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("open sink: invalid target name %q", name)
	}
	if err := s.fs.MkdirAll(s.dir, dirPerm); err != nil {
		return nil, fmt.Errorf("open sink: %w", err)
	}
	final := filepath.Join(s.dir, name)
	if !s.opts.Overwrite {
		if _, err := s.fs.Stat(final); err == nil {
			return nil, fmt.Errorf("open sink %q: %w", name, ErrExists)
		}
	}
	part := final + partSuffix
	f, err := s.fs.OpenFile(part, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return nil, fmt.Errorf("open sink %q: %w", name, err)
	}
	s.log.Debug("staged partial artifact", "part", part, "mime_type", mimeType)
	return &fileHandle{f: f, part: part, final: final, fs: s.fs, log: s.log}, nil
}

type fileHandle struct {
	f     *os.File
	part  string
	final string
	fs    fsOps
	log   *slog.Logger
	done  bool
}

func (h *fileHandle) Write(p []byte) (int, error) { return h.f.Write(p) }

// Commit makes the staged file visible under its final name. On failure the
// partial artifact is left for Discard.
func (h *fileHandle) Commit() error {
	if h.done {
		return nil
	}
	if err := h.f.Sync(); err != nil {
		return fmt.Errorf("commit %q: %w", h.final, err)
	}
	if err := h.f.Close(); err != nil {
		return fmt.Errorf("commit %q: %w", h.final, err)
	}
	if err := h.fs.Rename(h.part, h.final); err != nil {
		return fmt.Errorf("commit %q: %w", h.final, err)
	}
	h.done = true
	return nil
}

// Discard removes the partial artifact. Idempotent and safe after a failed
// Commit.
func (h *fileHandle) Discard() {
	if h.done {
		return
	}
	h.done = true
	_ = h.f.Close()
	if err := h.fs.Remove(h.part); err != nil && !errors.Is(err, fs.ErrNotExist) {
		h.log.Error("discard partial artifact", "part", h.part, "err", err)
	}
}
