// file: main_test.go
// version: 2.0.0
// guid: 08b1c863-460b-49a6-8335-8f9754604866

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMainHelp(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "db", "catalog.pebble")

	origArgs := os.Args
	defer func() {
		os.Args = origArgs
	}()

	os.Args = []string{
		"audiobook-catalog",
		"--db",
		dbPath,
		"--help",
	}

	main()
}
