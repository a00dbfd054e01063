// file: internal/config/config.go
// version: 2.0.0
// guid: 79ff6495-d0d4-4e18-baf7-3f904b75a1e9

package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/jdfalk/audiobook-catalog/internal/mediainfo"
	"github.com/spf13/viper"
)

// ScanConfig holds walker and candidate builder settings
type ScanConfig struct {
	Recursive            bool   `yaml:"recursive"`
	MaxDepth             int    `yaml:"max_depth"`
	ExtractWorkers       int    `yaml:"extract_workers"`
	ShortDurationSeconds int    `yaml:"short_duration_seconds"`
	SmallFileBytes       int64  `yaml:"small_file_bytes"`
	SourcePolicy         string `yaml:"source_policy"`
	SplitRootFiles       bool   `yaml:"split_root_files"`
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
	SnapshotTTL        time.Duration `yaml:"snapshot_ttl"`
}

// Config holds application configuration
type Config struct {
	RootDir      string `yaml:"root_dir"`
	DatabasePath string `yaml:"database_path"`
	DatabaseType string `yaml:"database_type"` // "pebble" (default) or "sqlite"
	EnableSQLite bool   `yaml:"enable_sqlite3_i_know_the_risks"`
	CoverDir     string `yaml:"cover_dir"`

	AudioExtensions     []string `yaml:"audio_extensions"`
	PreferredExtensions []string `yaml:"preferred_extensions"`

	Scan   ScanConfig   `yaml:"scan"`
	Server ServerConfig `yaml:"server"`
	Watch  bool         `yaml:"watch"`
}

var AppConfig Config

// SetDefaults registers every default with viper
func SetDefaults() {
	viper.SetDefault("database_type", "pebble")
	viper.SetDefault("enable_sqlite3_i_know_the_risks", false)
	viper.SetDefault("audio_extensions", mediainfo.DefaultAudioExtensions)
	viper.SetDefault("preferred_extensions", mediainfo.DefaultPreferredExtensions)

	viper.SetDefault("scan.recursive", true)
	viper.SetDefault("scan.max_depth", 8)
	viper.SetDefault("scan.extract_workers", 4)
	viper.SetDefault("scan.short_duration_seconds", 600)
	viper.SetDefault("scan.small_file_bytes", 5*1024*1024)
	viper.SetDefault("scan.source_policy", "largest")
	viper.SetDefault("scan.split_root_files", false)

	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8484)
	viper.SetDefault("server.rate_limit_per_minute", 120)
	viper.SetDefault("server.snapshot_ttl", 5*time.Second)
	viper.SetDefault("watch", false)
}

// InitConfig initializes the application configuration
func InitConfig() {
	SetDefaults()

	AppConfig = Config{
		RootDir:             viper.GetString("root_dir"),
		DatabasePath:        viper.GetString("database_path"),
		DatabaseType:        viper.GetString("database_type"),
		EnableSQLite:        viper.GetBool("enable_sqlite3_i_know_the_risks"),
		CoverDir:            viper.GetString("cover_dir"),
		AudioExtensions:     viper.GetStringSlice("audio_extensions"),
		PreferredExtensions: viper.GetStringSlice("preferred_extensions"),
		Scan: ScanConfig{
			Recursive:            viper.GetBool("scan.recursive"),
			MaxDepth:             viper.GetInt("scan.max_depth"),
			ExtractWorkers:       viper.GetInt("scan.extract_workers"),
			ShortDurationSeconds: viper.GetInt("scan.short_duration_seconds"),
			SmallFileBytes:       viper.GetInt64("scan.small_file_bytes"),
			SourcePolicy:         viper.GetString("scan.source_policy"),
			SplitRootFiles:       viper.GetBool("scan.split_root_files"),
		},
		Server: ServerConfig{
			Host:               viper.GetString("server.host"),
			Port:               viper.GetInt("server.port"),
			RateLimitPerMinute: viper.GetInt("server.rate_limit_per_minute"),
			SnapshotTTL:        viper.GetDuration("server.snapshot_ttl"),
		},
		Watch: viper.GetBool("watch"),
	}

	// Normalize database type
	AppConfig.DatabaseType = strings.ToLower(strings.TrimSpace(AppConfig.DatabaseType))
	if AppConfig.DatabaseType == "sqlite3" {
		AppConfig.DatabaseType = "sqlite"
	}
	if AppConfig.DatabaseType == "" {
		AppConfig.DatabaseType = "pebble"
	}

	if AppConfig.Scan.ExtractWorkers < 1 {
		AppConfig.Scan.ExtractWorkers = 1
	}
}

// Classifier builds the audio classification table from the configured
// extension lists, falling back to the defaults when a list is empty.
func Classifier() *mediainfo.Classifier {
	audio := AppConfig.AudioExtensions
	if len(audio) == 0 {
		audio = mediainfo.DefaultAudioExtensions
	}
	preferred := AppConfig.PreferredExtensions
	if len(preferred) == 0 {
		preferred = mediainfo.DefaultPreferredExtensions
	}
	return mediainfo.NewClassifier(audio, preferred)
}

// CoverRoot returns the directory cover paths are relative to. Covers land
// in <root>/covers. It defaults to the directory holding the database.
func CoverRoot() string {
	if AppConfig.CoverDir != "" {
		return AppConfig.CoverDir
	}
	if AppConfig.DatabasePath != "" {
		return filepath.Dir(AppConfig.DatabasePath)
	}
	return "."
}
