package vfs

import (
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want int
	}{
		{"/dev/stdin", 0},
		{"/dev/stdout", 1},
		{"/dev/stderr", 2},
		{"sample.wav", 3},
		{"/sample.wav", 3},
		{"other.wav", -1},
		{"/etc/passwd", -1},
		{"", -1},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, OpenAt(tt.path))
			_, err := Resolve(tt.path)
			if tt.want < 0 {
				assert.ErrorIs(t, err, ErrPermission)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTableRoles(t *testing.T) {
	t.Parallel()

	table := NewTable()
	require.NoError(t, table.WriteFile(RoleAudio, []byte("RIFF")))
	got, err := table.ReadFile(RoleAudio)
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), got)

	empty, err := table.ReadFile(RoleStdout)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = table.Open(Role(9))
	assert.ErrorIs(t, err, ErrBadDescriptor)
	assert.ErrorIs(t, table.WriteFile(Role(-1), nil), ErrBadDescriptor)
}

func TestReopenStartsAtZero(t *testing.T) {
	t.Parallel()

	table := NewTable()
	require.NoError(t, table.WriteFile(RoleAudio, []byte("abcdef")))

	f, err := table.Open(RoleAudio)
	require.NoError(t, err)
	buf := make([]byte, 3)
	_, err = io.ReadFull(f, buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = table.Open(RoleAudio)
	require.NoError(t, err)
	defer f.Close()
	_, err = io.ReadFull(f, buf)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf))
}

func TestAppendAndDrain(t *testing.T) {
	t.Parallel()

	table := NewTable()
	require.NoError(t, table.Printf(RoleStdout, "hello %s\n", "world"))
	require.NoError(t, table.Append(RoleStdout, []byte("again\n")))

	out, err := table.Drain(RoleStdout)
	require.NoError(t, err)
	assert.Equal(t, "hello world\nagain\n", string(out))

	out, err = table.Drain(RoleStdout)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestReadOnlyFs(t *testing.T) {
	t.Parallel()

	table := NewTableOn(afero.NewReadOnlyFs(afero.NewMemMapFs()))
	assert.Error(t, table.WriteFile(RoleAudio, []byte("x")))
	_, err := table.Create(RoleAudio)
	assert.Error(t, err)
	assert.Equal(t, "audio", RoleAudio.String())
}
