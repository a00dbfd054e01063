// file: internal/config/persistence.go
// version: 2.0.0
// guid: bc7742d8-6b04-4b68-91ab-434a6954f664

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jdfalk/audiobook-catalog/internal/mediainfo"
	"gopkg.in/yaml.v3"
)

// ConfigFilePath returns the path to the YAML config file next to the database.
func ConfigFilePath() string {
	if AppConfig.DatabasePath != "" {
		return filepath.Join(filepath.Dir(AppConfig.DatabasePath), "config.yaml")
	}
	if AppConfig.RootDir != "" {
		return filepath.Join(AppConfig.RootDir, "config.yaml")
	}
	return ""
}

// LoadConfigFromFile fills settings that are still empty from the config
// file next to the database. Values already set by flags, env or the main
// config file win.
func LoadConfigFromFile() error {
	path := ConfigFilePath()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		log.Printf("[WARN] config: failed to parse config file %s: %v", path, err)
		return nil
	}

	applied := 0
	stringFallbacks := map[*string]string{
		&AppConfig.RootDir:  fileConfig.RootDir,
		&AppConfig.CoverDir: fileConfig.CoverDir,
	}
	for ptr, val := range stringFallbacks {
		if *ptr == "" && val != "" {
			*ptr = val
			applied++
		}
	}
	if len(fileConfig.AudioExtensions) > 0 && sameStrings(AppConfig.AudioExtensions, mediainfo.DefaultAudioExtensions) {
		AppConfig.AudioExtensions = fileConfig.AudioExtensions
		applied++
	}
	if len(fileConfig.PreferredExtensions) > 0 && sameStrings(AppConfig.PreferredExtensions, mediainfo.DefaultPreferredExtensions) {
		AppConfig.PreferredExtensions = fileConfig.PreferredExtensions
		applied++
	}

	if applied > 0 {
		log.Printf("[INFO] config: applied %d settings from %s", applied, path)
	}
	return nil
}

// SaveConfigToFile writes the effective configuration next to the database
func SaveConfigToFile() (string, error) {
	path := ConfigFilePath()
	if path == "" {
		return "", fmt.Errorf("cannot determine config file path")
	}

	data, err := yaml.Marshal(&AppConfig)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	log.Printf("[INFO] config: saved configuration to %s", path)
	return path, nil
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
