package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	archiver := NewArchiver(dir)

	t.Run("SavePayload creates directory and saves file", func(t *testing.T) {
		payload := []byte("Title,Authors,Status\nDune,Frank Herbert,reading\n")

		filename, err := archiver.SavePayload(payload, ".csv")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(filename, ".csv"))

		saved, err := os.ReadFile(filepath.Join(dir, filename))
		require.NoError(t, err)
		assert.Equal(t, payload, saved)
	})

	t.Run("SavePayload generates unique filenames", func(t *testing.T) {
		f1, err := archiver.SavePayload([]byte("{}"), "json")
		require.NoError(t, err)
		f2, err := archiver.SavePayload([]byte("{}"), "json")
		require.NoError(t, err)
		assert.NotEqual(t, f1, f2)
	})

	t.Run("empty extension", func(t *testing.T) {
		filename, err := archiver.SavePayload([]byte("x"), "")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(filename, ".bin"))
	})
}
