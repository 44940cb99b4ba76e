package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedFS(name string) fsDetector {
	return func(string) (string, error) { return name, nil }
}

func TestCheckLocalFilesystem(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "waypoint.db")

	require.NoError(t, checkLocalFilesystemWith(dbPath, fixedFS("apfs")))
	require.NoError(t, checkLocalFilesystemWith(dbPath, fixedFS("0xef53")))

	err := checkLocalFilesystemWith(dbPath, fixedFS("smbfs"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetworkFilesystem))
	assert.Contains(t, err.Error(), "WAYPOINT_DB")

	err = checkLocalFilesystemWith(dbPath, func(string) (string, error) { return "", errors.New("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestCheckLocalFilesystemProbesExistingAncestor(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var probed string
	err := checkLocalFilesystemWith(filepath.Join(root, "a", "b", "waypoint.db"), func(p string) (string, error) {
		probed = p
		return "ext4", nil
	})
	require.NoError(t, err)
	assert.Equal(t, root, probed)
}

func TestIsNetworkFilesystem(t *testing.T) {
	t.Parallel()

	for fs, want := range map[string]bool{
		"nfs":    true,
		" SMBFS": true,
		"nfs4":   true,
		"apfs":   false,
		"0x6969": false,
		"":       false,
	} {
		assert.Equal(t, want, isNetworkFilesystem(fs), fs)
	}
}
