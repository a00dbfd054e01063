// file: internal/config/config_test.go
// version: 2.0.0
// guid: 07b4e226-9c6f-4f2e-9892-fa31a2c27056

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInitConfig tests configuration initialization with defaults
func TestInitConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	InitConfig()

	assert.Equal(t, "pebble", AppConfig.DatabaseType)
	assert.False(t, AppConfig.EnableSQLite)
	assert.True(t, AppConfig.Scan.Recursive)
	assert.Equal(t, 8, AppConfig.Scan.MaxDepth)
	assert.Equal(t, 4, AppConfig.Scan.ExtractWorkers)
	assert.Equal(t, 600, AppConfig.Scan.ShortDurationSeconds)
	assert.Equal(t, int64(5*1024*1024), AppConfig.Scan.SmallFileBytes)
	assert.Equal(t, "largest", AppConfig.Scan.SourcePolicy)
	assert.False(t, AppConfig.Scan.SplitRootFiles)
	assert.Equal(t, 8484, AppConfig.Server.Port)
	assert.Equal(t, 5*time.Second, AppConfig.Server.SnapshotTTL)
	assert.Equal(t, []string{".m4b"}, AppConfig.PreferredExtensions)
}

func TestInitConfigNormalizesDatabaseType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sqlite3", "sqlite"},
		{" SQLite ", "sqlite"},
		{"", "pebble"},
		{"pebble", "pebble"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			viper.Set("database_type", tt.in)
			InitConfig()
			assert.Equal(t, tt.want, AppConfig.DatabaseType)
		})
	}
}

func TestClassifierFromConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("audio_extensions", []string{"mp3"})
	viper.Set("preferred_extensions", []string{".mka"})
	InitConfig()

	c := Classifier()
	assert.True(t, c.IsAudio("a.MP3"))
	assert.True(t, c.IsPreferred("a.mka"))
	assert.False(t, c.IsAudio("a.flac"))

	AppConfig.AudioExtensions = nil
	AppConfig.PreferredExtensions = nil
	c = Classifier()
	assert.True(t, c.IsPreferred("book.m4b"))
	assert.True(t, c.IsAudio("book.flac"))
}

func TestCoverRoot(t *testing.T) {
	AppConfig = Config{DatabasePath: filepath.Join("data", "catalog.pebble")}
	assert.Equal(t, "data", CoverRoot())

	AppConfig.CoverDir = "/srv/art"
	assert.Equal(t, "/srv/art", CoverRoot())

	AppConfig = Config{}
	assert.Equal(t, ".", CoverRoot())
}

func TestSaveAndLoadConfigFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	viper.Set("database_path", filepath.Join(dir, "catalog.pebble"))
	viper.Set("root_dir", "/library")
	viper.Set("audio_extensions", []string{".mp3", ".opus"})
	InitConfig()

	path, err := SaveConfigToFile()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), path)

	viper.Reset()
	viper.Set("database_path", filepath.Join(dir, "catalog.pebble"))
	InitConfig()
	require.Empty(t, AppConfig.RootDir)

	require.NoError(t, LoadConfigFromFile())
	assert.Equal(t, "/library", AppConfig.RootDir)
	assert.Equal(t, []string{".mp3", ".opus"}, AppConfig.AudioExtensions)
}

func TestLoadConfigFileMissingOrBroken(t *testing.T) {
	dir := t.TempDir()
	AppConfig = Config{DatabasePath: filepath.Join(dir, "catalog.pebble")}
	require.NoError(t, LoadConfigFromFile(), "missing file is fine")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("root_dir: [unclosed"), 0o644))
	require.NoError(t, LoadConfigFromFile(), "broken file is logged, not fatal")
	assert.Empty(t, AppConfig.RootDir)
}
