package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "run-log_2026.png", SafeFileName("run-log 2026.png"))
	assert.Equal(t, ".._etc_passwd", SafeFileName("../etc/passwd"))
	assert.Equal(t, "a_b_c.jpg", SafeFileName(`a\b/c.jpg`))
	assert.Equal(t, "upload", SafeFileName("   "))

	long := SafeFileName(strings.Repeat("a", 400) + ".png")
	assert.Len(t, long, 180)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "progress.json")

	require.NoError(t, WriteFileAtomic(path, []byte(`{"v":1}`)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(data))

	// Overwrite in place.
	require.NoError(t, WriteFileAtomic(path, []byte(`{"v":2}`)))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
