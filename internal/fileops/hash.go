// file: internal/fileops/hash.go
// version: 2.0.0
// guid: 5467b6cf-e88e-4a09-b003-56b0e355ed39

package fileops

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// ComputeFileHash computes the SHA256 hash of a file
func ComputeFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifyFileHash reports whether the file at path hashes to expected
func VerifyFileHash(path, expected string) (bool, error) {
	actual, err := ComputeFileHash(path)
	if err != nil {
		return false, err
	}
	return actual == expected, nil
}
