// file: internal/backup/backup.go
// version: 2.0.0
// guid: 822cd380-fabb-4510-844e-47155c08d974

package backup

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jdfalk/audiobook-catalog/internal/database"
	"github.com/jdfalk/audiobook-catalog/internal/fileops"
)

// ErrChecksumMismatch is returned when an archive no longer matches its sidecar checksum
var ErrChecksumMismatch = errors.New("backup checksum mismatch")

// snapshotName is the top-level entry of every archive; it stands for the
// database path on restore.
const snapshotName = "catalog"

// Info describes one backup archive
type Info struct {
	Filename     string    `json:"filename"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	Checksum     string    `json:"checksum"`
	DatabaseType string    `json:"database_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// Config holds backup configuration
type Config struct {
	Dir              string
	MaxBackups       int
	CompressionLevel int
}

// DefaultConfig keeps ten archives in dir
func DefaultConfig(dir string) Config {
	return Config{
		Dir:              dir,
		MaxBackups:       10,
		CompressionLevel: gzip.BestCompression,
	}
}

// Create snapshots store and writes it as a tar.gz archive plus a
// <archive>.sha256 sidecar. Archives beyond MaxBackups are pruned oldest first.
func Create(store database.Snapshotter, databaseType string, cfg Config) (*Info, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	staging, err := os.MkdirTemp("", "catalog-backup-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	snapshot := filepath.Join(staging, snapshotName)
	if err := store.Snapshot(snapshot); err != nil {
		return nil, err
	}

	now := time.Now()
	filename := fmt.Sprintf("catalog_%s_%s.tar.gz", databaseType, now.Format("20060102_150405.000"))
	archivePath := filepath.Join(cfg.Dir, filename)
	if err := writeArchive(archivePath, snapshot, cfg.CompressionLevel); err != nil {
		os.Remove(archivePath)
		return nil, err
	}

	checksum, err := fileops.ComputeFileHash(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum: %w", err)
	}
	if err := fileops.WriteFileAtomic(archivePath+".sha256", []byte(checksum+"  "+filename+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write checksum file: %w", err)
	}
	fi, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup file: %w", err)
	}

	log.Printf("[INFO] backup: wrote %s (%d bytes)", archivePath, fi.Size())
	if err := prune(cfg.Dir, cfg.MaxBackups); err != nil {
		log.Printf("[WARN] backup: failed to prune old backups: %v", err)
	}

	return &Info{
		Filename:     filename,
		Path:         archivePath,
		Size:         fi.Size(),
		Checksum:     checksum,
		DatabaseType: databaseType,
		CreatedAt:    now,
	}, nil
}

func writeArchive(archivePath, snapshot string, level int) error {
	f, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewWriterLevel(f, level)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}
	tw := tar.NewWriter(gz)

	root := filepath.Dir(snapshot)
	err = filepath.Walk(snapshot, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to add snapshot to archive: %w", err)
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to close tar writer: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return f.Close()
}

// Restore unpacks archivePath so that targetPath becomes the database path.
// targetPath must not exist. With verify set the sidecar checksum must match.
func Restore(archivePath, targetPath string, verify bool) error {
	if verify {
		if err := Verify(archivePath); err != nil {
			return err
		}
	}
	if _, err := os.Stat(targetPath); err == nil {
		return fmt.Errorf("restore target %s already exists", targetPath)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		target, err := restorePath(targetPath, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("failed to create parent directory for %s: %w", target, err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, os.FileMode(header.Mode)&0o777)
			if err != nil {
				return fmt.Errorf("failed to create file %s: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("failed to write file %s: %w", target, err)
			}
			if err := out.Close(); err != nil {
				return err
			}
		default:
			log.Printf("[WARN] backup: skipping unsupported entry %s (type %d)", header.Name, header.Typeflag)
		}
	}

	log.Printf("[INFO] backup: restored %s to %s", archivePath, targetPath)
	return nil
}

// restorePath maps an archive entry onto the restore target, rejecting
// entries outside the snapshot.
func restorePath(targetPath, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == snapshotName {
		return targetPath, nil
	}
	rel, ok := strings.CutPrefix(clean, snapshotName+string(filepath.Separator))
	if !ok || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("unexpected archive entry %q", name)
	}
	return filepath.Join(targetPath, rel), nil
}

// Verify compares an archive against its .sha256 sidecar
func Verify(archivePath string) error {
	data, err := os.ReadFile(archivePath + ".sha256")
	if err != nil {
		return fmt.Errorf("failed to read checksum file: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return fmt.Errorf("%w: empty checksum file", ErrChecksumMismatch)
	}
	actual, err := fileops.ComputeFileHash(archivePath)
	if err != nil {
		return fmt.Errorf("failed to calculate checksum: %w", err)
	}
	if actual != fields[0] {
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, filepath.Base(archivePath))
	}
	return nil
}

// List returns the archives in dir, newest first
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tar.gz") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		info := Info{
			Filename:     entry.Name(),
			Path:         filepath.Join(dir, entry.Name()),
			Size:         fi.Size(),
			DatabaseType: "unknown",
			CreatedAt:    fi.ModTime(),
		}
		switch {
		case strings.HasPrefix(entry.Name(), "catalog_pebble_"):
			info.DatabaseType = "pebble"
		case strings.HasPrefix(entry.Name(), "catalog_sqlite_"):
			info.DatabaseType = "sqlite"
		}
		if sum, err := os.ReadFile(info.Path + ".sha256"); err == nil {
			if fields := strings.Fields(string(sum)); len(fields) > 0 {
				info.Checksum = fields[0]
			}
		}
		backups = append(backups, info)
	}

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].CreatedAt.After(backups[j].CreatedAt)
		}
		return backups[i].Filename > backups[j].Filename
	})
	return backups, nil
}

// prune removes the oldest archives beyond keep; keep <= 0 keeps everything
func prune(dir string, keep int) error {
	if keep <= 0 {
		return nil
	}
	backups, err := List(dir)
	if err != nil {
		return err
	}
	for _, b := range backups[min(keep, len(backups)):] {
		if err := os.Remove(b.Path); err != nil {
			log.Printf("[WARN] backup: failed to delete old backup %s: %v", b.Filename, err)
			continue
		}
		_ = os.Remove(b.Path + ".sha256")
	}
	return nil
}
