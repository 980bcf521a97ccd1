package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportStoreSaveAndPath(t *testing.T) {
	dir := t.TempDir()
	store, err := NewReportStore(dir)
	require.NoError(t, err)

	name, err := store.Save("behavior/job-1.csv", []byte("Date,Points\n"))
	require.NoError(t, err)
	assert.Equal(t, "behavior/job-1.csv", name)

	path, err := store.Path(name)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "behavior", "job-1.csv"), path)

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Date,Points\n", string(payload))
}

func TestReportStorePathRejectsEscapes(t *testing.T) {
	store, err := NewReportStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../outside.csv", "behavior/../../outside.csv", "/etc/passwd"} {
		_, err := store.Path(name)
		require.Error(t, err, name)
	}
}
