// file: cmd/diagnostics_test.go
// version: 2.0.0
// guid: da4660ff-fd68-4655-81c4-432a415e7d41

package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jdfalk/audiobook-catalog/internal/backup"
	"github.com/jdfalk/audiobook-catalog/internal/config"
	"github.com/jdfalk/audiobook-catalog/internal/database"
	"github.com/jdfalk/audiobook-catalog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "this...", truncateString("this is long", 4))
}

func TestPromptYesNo(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"yes\n", true},
		{"YES\n", true},
		{"no\n", false},
		{"yes", true},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := promptYesNo(&out, strings.NewReader(tt.input), "confirm")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Contains(t, out.String(), "confirm?")
	}
}

func TestRunMissingNothingToDo(t *testing.T) {
	store := database.NewMockStore()
	rec := &models.Record{Path: "/lib/present.m4b"}
	_, err := store.Create(rec)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runMissing(&out, store, true, func(string) (bool, error) {
		t.Fatal("should not prompt")
		return false, nil
	}))
	assert.Contains(t, out.String(), "No missing records")
}

func TestRunMissingListOnly(t *testing.T) {
	store := database.NewMockStore()
	_, err := store.Create(&models.Record{Path: "/lib/gone.m4b"})
	require.NoError(t, err)
	_, err = store.MarkMissing(map[string]bool{})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runMissing(&out, store, false, nil))
	assert.Contains(t, out.String(), "Found 1 missing records")
	assert.Contains(t, out.String(), "/lib/gone.m4b")

	all, err := store.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRawPebbleDump(t *testing.T) {
	useTempCatalog(t)
	store, closer, err := openStore()
	require.NoError(t, err)
	defer closer()

	rec := &models.Record{Path: "/lib/dune.m4b"}
	rec.Title = models.NullableString("Dune")
	_, err = store.Create(rec)
	require.NoError(t, err)

	ps, ok := store.(*database.PebbleStore)
	require.True(t, ok)

	var out bytes.Buffer
	require.NoError(t, runRawPebbleDump(&out, ps.DB(), "record:path:", 5))
	assert.Contains(t, out.String(), "Key: record:path:/lib/dune.m4b")

	out.Reset()
	require.NoError(t, runRawPebbleDump(&out, ps.DB(), "nothing:", 5))
	assert.Contains(t, out.String(), "No keys matched")
}

func TestDumpRequiresPebble(t *testing.T) {
	origConfig := config.AppConfig
	defer func() { config.AppConfig = origConfig }()

	config.AppConfig.DatabaseType = "sqlite"
	assert.Error(t, dumpCmd.RunE(dumpCmd, nil))
}

func TestBackupAndRestoreCatalog(t *testing.T) {
	useTempCatalog(t)
	store, closer, err := openStore()
	require.NoError(t, err)

	rec := &models.Record{Path: "/lib/dune.m4b"}
	rec.Title = models.NullableString("Dune")
	_, err = store.Create(rec)
	require.NoError(t, err)

	dir := backupDir("")
	assert.Equal(t, filepath.Join(filepath.Dir(config.AppConfig.DatabasePath), "backups"), dir)

	var out bytes.Buffer
	require.NoError(t, runBackup(&out, store, dir, 3))
	closer()
	assert.Contains(t, out.String(), "Backup written:")

	out.Reset()
	require.NoError(t, runListBackups(&out, dir))
	assert.Contains(t, out.String(), "pebble")

	backups, err := backup.List(dir)
	require.NoError(t, err)
	require.Len(t, backups, 1)

	target := filepath.Join(t.TempDir(), "restored.pebble")
	require.NoError(t, backup.Restore(backups[0].Path, target, true))
	restored, err := database.NewPebbleStore(target)
	require.NoError(t, err)
	defer restored.Close()
	got, err := restored.GetByPath("/lib/dune.m4b")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestBackupRequiresSnapshotSupport(t *testing.T) {
	var out bytes.Buffer
	err := runBackup(&out, database.NewMockStore(), t.TempDir(), 1)
	assert.ErrorContains(t, err, "does not support backups")

	out.Reset()
	require.NoError(t, runListBackups(&out, filepath.Join(t.TempDir(), "none")))
	assert.Contains(t, out.String(), "No backups")
}
