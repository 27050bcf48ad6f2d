package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelfport/internal/formats"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

const shelfCSV = "Title,Authors,Status,CurrentPage,Rating,Review\n" +
	"Dune,Frank Herbert,reading,120,5,\n" +
	"Hyperion,Dan Simmons,completed,,4,Great\n"

func createUser(t *testing.T, dbPath, username string) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewCreateUserCommand()
	cmd.Out = &out
	require.NoError(t, cmd.ParseFlags([]string{"-db", dbPath, "-username", username}))
	require.NoError(t, cmd.Run())
	assert.Contains(t, out.String(), "Created user "+username)
	assert.Contains(t, out.String(), "Token: ")
}

func TestImportThenExport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cli.db")
	createUser(t, dbPath, "alice")

	file := filepath.Join(dir, "shelf.csv")
	require.NoError(t, os.WriteFile(file, []byte(shelfCSV), 0o600))

	var out bytes.Buffer
	imp := NewImportCommand()
	imp.Out = &out
	require.NoError(t, imp.ParseFlags([]string{"-db", dbPath, "-user", "alice", "-format", "csv", "-file", file}))
	require.NoError(t, imp.Run())
	assert.Contains(t, out.String(), "Phase: committed")
	assert.Contains(t, out.String(), "added 2")

	target := filepath.Join(dir, "out.json")
	out.Reset()
	exp := NewExportCommand()
	exp.Out = &out
	require.NoError(t, exp.ParseFlags([]string{"-db", dbPath, "-user", "alice", "-output", target}))
	require.NoError(t, exp.Run())
	assert.Contains(t, out.String(), target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	snap, err := formats.NativeCodec{}.Decode(data)
	require.NoError(t, err)
	assert.Len(t, snap.OwnedBooks, 2)
	assert.Equal(t, "alice", snap.Profile.Username)
}

func TestImportDryRunReportsWithoutWriting(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cli.db")
	createUser(t, dbPath, "bob")

	file := filepath.Join(dir, "shelf.csv")
	require.NoError(t, os.WriteFile(file, []byte(shelfCSV), 0o600))

	var out bytes.Buffer
	imp := NewImportCommand()
	imp.Out = &out
	require.NoError(t, imp.ParseFlags([]string{"-db", dbPath, "-user", "bob", "-format", "csv", "-file", file, "-dry-run"}))
	require.NoError(t, imp.Run())
	assert.Contains(t, out.String(), "Phase: dry_run")

	out.Reset()
	exp := NewExportCommand()
	exp.Out = &out
	require.NoError(t, exp.ParseFlags([]string{"-db", dbPath, "-user", "bob", "-format", "csv", "-output", "-"}))
	require.NoError(t, exp.Run())
	assert.Equal(t, "Title,Authors,Status,CurrentPage,Rating,Review\n", out.String())
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cli.db")
	createUser(t, dbPath, "carol")

	t.Run("unknown user", func(t *testing.T) {
		exp := NewExportCommand()
		exp.Out = &bytes.Buffer{}
		require.NoError(t, exp.ParseFlags([]string{"-db", dbPath, "-user", "nobody", "-output", "-"}))
		assert.ErrorIs(t, exp.Run(), snapshot.ErrOwnerNotFound)
	})

	t.Run("unsupported format", func(t *testing.T) {
		exp := NewExportCommand()
		exp.Out = &bytes.Buffer{}
		require.NoError(t, exp.ParseFlags([]string{"-db", dbPath, "-user", "carol", "-format", "xlsx", "-output", "-"}))
		assert.ErrorIs(t, exp.Run(), snapshot.ErrUnsupportedFormat)
	})

	t.Run("malformed file", func(t *testing.T) {
		file := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(file, []byte("{not json"), 0o600))
		imp := NewImportCommand()
		imp.Out = &bytes.Buffer{}
		require.NoError(t, imp.ParseFlags([]string{"-db", dbPath, "-user", "carol", "-file", file}))
		assert.ErrorIs(t, imp.Run(), snapshot.ErrMalformedInput)
	})

	t.Run("missing required flags", func(t *testing.T) {
		assert.Error(t, NewImportCommand().ParseFlags([]string{"-user", "carol"}))
		assert.Error(t, NewExportCommand().ParseFlags(nil))
		assert.Error(t, NewCreateUserCommand().ParseFlags(nil))
	})
}

func TestCreateUserRotateToken(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	createUser(t, dbPath, "frank")

	var out bytes.Buffer
	cmd := NewCreateUserCommand()
	cmd.Out = &out
	require.NoError(t, cmd.ParseFlags([]string{"-db", dbPath, "-username", "frank", "-rotate-token"}))
	require.NoError(t, cmd.Run())
	assert.Contains(t, out.String(), "Rotated token for frank")
	assert.Regexp(t, `Token: [0-9a-f]{64}\n`, out.String())

	missing := NewCreateUserCommand()
	missing.Out = &bytes.Buffer{}
	require.NoError(t, missing.ParseFlags([]string{"-db", dbPath, "-username", "nobody", "-rotate-token"}))
	assert.ErrorIs(t, missing.Run(), snapshot.ErrOwnerNotFound)
}

func TestBackupCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cli.db")
	createUser(t, dbPath, "dave")
	createUser(t, dbPath, "erin")

	var out bytes.Buffer
	cmd := NewBackupCommand()
	cmd.Out = &out
	backups := filepath.Join(dir, "backups")
	require.NoError(t, cmd.ParseFlags([]string{"-db", dbPath, "-dir", backups}))
	require.NoError(t, cmd.Run())
	assert.Contains(t, out.String(), "Wrote 2 snapshot(s)")

	entries, err := os.ReadDir(backups)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.True(t, strings.HasSuffix(e.Name(), ".json"))
	}
}
