// Package vfs is the file collaborator of the bridge. The vocoder tools expect
// to open files by path, but the bridge runs without a real filesystem, so a
// small fixed set of roles is backed by an in-memory afero filesystem and
// every other path is refused.
package vfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/spf13/afero"
)

// Role is a descriptor number with a fixed meaning.
type Role int

const (
	RoleStdin  Role = 0
	RoleStdout Role = 1
	RoleStderr Role = 2
	RoleAudio  Role = 3
)

// AudioPath is the only regular file name the bridge may open.
const AudioPath = "sample.wav"

var (
	// ErrPermission is returned for paths outside the allow-list.
	ErrPermission = errors.New("vfs: permission denied")
	// ErrBadDescriptor is returned for unknown roles.
	ErrBadDescriptor = errors.New("vfs: bad descriptor")
)

var rolePaths = map[Role]string{
	RoleStdin:  "/dev/stdin",
	RoleStdout: "/dev/stdout",
	RoleStderr: "/dev/stderr",
	RoleAudio:  "/" + AudioPath,
}

func (r Role) String() string {
	switch r {
	case RoleStdin:
		return "stdin"
	case RoleStdout:
		return "stdout"
	case RoleStderr:
		return "stderr"
	case RoleAudio:
		return "audio"
	default:
		return fmt.Sprintf("fd(%d)", int(r))
	}
}

// Resolve maps a path onto its role.
func Resolve(path string) (Role, error) {
	switch path {
	case "/dev/stdin":
		return RoleStdin, nil
	case "/dev/stdout":
		return RoleStdout, nil
	case "/dev/stderr":
		return RoleStderr, nil
	case AudioPath, "/" + AudioPath:
		return RoleAudio, nil
	}
	return 0, fmt.Errorf("open %q: %w", path, ErrPermission)
}

// OpenAt is the descriptor-returning form of Resolve: the role number, or
// -EPERM for any other path.
func OpenAt(path string) int {
	role, err := Resolve(path)
	if err != nil {
		return -int(syscall.EPERM)
	}
	return int(role)
}

// Table holds the contents of every role.
type Table struct {
	fs afero.Fs
}

// NewTable creates a table on a fresh in-memory filesystem.
func NewTable() *Table {
	return NewTableOn(afero.NewMemMapFs())
}

// NewTableOn creates a table on fs. Tests pass a read-only or failing fs.
func NewTableOn(fs afero.Fs) *Table {
	return &Table{fs: fs}
}

// Fs exposes the backing filesystem.
func (t *Table) Fs() afero.Fs {
	return t.fs
}

func (t *Table) path(role Role) (string, error) {
	p, ok := rolePaths[role]
	if !ok {
		return "", fmt.Errorf("role %s: %w", role, ErrBadDescriptor)
	}
	return p, nil
}

// Open opens role for reading from offset zero.
func (t *Table) Open(role Role) (afero.File, error) {
	p, err := t.path(role)
	if err != nil {
		return nil, err
	}
	f, err := t.fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", role, err)
	}
	return f, nil
}

// Create truncates role and opens it for writing.
func (t *Table) Create(role Role) (afero.File, error) {
	p, err := t.path(role)
	if err != nil {
		return nil, err
	}
	f, err := t.fs.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", role, err)
	}
	return f, nil
}

// ReadFile returns the whole content of role. A role never written reads
// as empty.
func (t *Table) ReadFile(role Role) ([]byte, error) {
	f, err := t.Open(role)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// WriteFile replaces the content of role.
func (t *Table) WriteFile(role Role, data []byte) error {
	p, err := t.path(role)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(t.fs, p, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", role, err)
	}
	return nil
}

// Append adds data to the end of role.
func (t *Table) Append(role Role, data []byte) error {
	p, err := t.path(role)
	if err != nil {
		return err
	}
	f, err := t.fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("append %s: %w", role, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("append %s: %w", role, err)
	}
	return f.Close()
}

// Printf appends formatted text to role. Stages use it for stdout messages.
func (t *Table) Printf(role Role, format string, args ...any) error {
	return t.Append(role, fmt.Appendf(nil, format, args...))
}

// Drain returns the content of role and empties it.
func (t *Table) Drain(role Role) ([]byte, error) {
	data, err := t.ReadFile(role)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return data, nil
	}
	return data, t.WriteFile(role, nil)
}
