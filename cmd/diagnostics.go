// file: cmd/diagnostics.go
// version: 2.0.0
// guid: 8cad03c2-d237-4965-967e-242fb9221089

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/pebble/v2"
	"github.com/jdfalk/audiobook-catalog/internal/backup"
	"github.com/jdfalk/audiobook-catalog/internal/config"
	"github.com/jdfalk/audiobook-catalog/internal/database"
	"github.com/jdfalk/audiobook-catalog/internal/models"
	"github.com/spf13/cobra"
)

var (
	diagnosticsCmd = &cobra.Command{
		Use:   "diagnostics",
		Short: "Debugging and cleanup helpers",
		Long:  "Diagnostic utilities for inspecting and repairing the catalog database.",
	}

	missingCmd = &cobra.Command{
		Use:   "missing",
		Short: "List records whose files are gone, optionally purging them",
		RunE: func(cmd *cobra.Command, args []string) error {
			purge, _ := cmd.Flags().GetBool("purge")
			force, _ := cmd.Flags().GetBool("yes")
			store, closer, err := openStore()
			if err != nil {
				return err
			}
			defer closer()
			confirm := func(action string) (bool, error) {
				if force {
					return true, nil
				}
				return promptYesNo(cmd.OutOrStdout(), os.Stdin, action)
			}
			return runMissing(cmd.OutOrStdout(), store, purge, confirm)
		},
	}

	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Show raw Pebble key/value data (Pebble only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			prefix, _ := cmd.Flags().GetString("prefix")
			if limit <= 0 {
				return errors.New("limit must be positive")
			}
			if config.AppConfig.DatabaseType != "pebble" {
				return fmt.Errorf("raw inspection is only available for Pebble databases")
			}
			store, closer, err := openStore()
			if err != nil {
				return err
			}
			defer closer()
			ps, ok := store.(*database.PebbleStore)
			if !ok {
				return fmt.Errorf("raw inspection is only available for Pebble databases")
			}
			return runRawPebbleDump(cmd.OutOrStdout(), ps.DB(), prefix, limit)
		},
	}
)

func init() {
	missingCmd.Flags().Bool("purge", false, "delete the missing records")
	missingCmd.Flags().Bool("yes", false, "skip the confirmation prompt")

	dumpCmd.Flags().Int("limit", 5, "number of keys to display")
	dumpCmd.Flags().String("prefix", "record:", "key prefix to inspect")

	for _, c := range []*cobra.Command{backupCmd, backupsCmd} {
		c.Flags().String("dir", "", "backup directory (default: backups next to the database)")
	}
	backupCmd.Flags().Int("keep", 10, "number of archives to keep (0 keeps all)")
	restoreCmd.Flags().Bool("skip-verify", false, "skip the checksum check")

	diagnosticsCmd.AddCommand(missingCmd)
	diagnosticsCmd.AddCommand(dumpCmd)
	diagnosticsCmd.AddCommand(backupCmd)
	diagnosticsCmd.AddCommand(backupsCmd)
	diagnosticsCmd.AddCommand(restoreCmd)
}

func runMissing(out io.Writer, store database.Store, purge bool, confirm func(string) (bool, error)) error {
	records, err := store.GetAll()
	if err != nil {
		return fmt.Errorf("failed to fetch records: %w", err)
	}
	var missing []models.Record
	for _, rec := range records {
		if rec.MissingFromSource {
			missing = append(missing, rec)
		}
	}

	if len(missing) == 0 {
		fmt.Fprintln(out, "No missing records detected.")
		return nil
	}

	fmt.Fprintf(out, "Found %d missing records:\n", len(missing))
	for i, rec := range missing {
		fmt.Fprintf(out, "%2d. ID: %s\n", i+1, rec.ID)
		fmt.Fprintf(out, "    Title: %s\n", formatValue(rec.Title))
		fmt.Fprintf(out, "    Path:  %s\n", rec.Path)
	}

	if !purge {
		return nil
	}
	confirmed, err := confirm(fmt.Sprintf("Delete %d records", len(missing)))
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(out, "Aborted. No records deleted.")
		return nil
	}

	deleted := 0
	for _, rec := range missing {
		if err := store.Delete(rec.ID); err != nil {
			fmt.Fprintf(out, "Failed to delete %s: %v\n", rec.ID, err)
			continue
		}
		deleted++
	}
	fmt.Fprintf(out, "Deleted %d missing records and their narrator ratings.\n", deleted)
	return nil
}

func backupDir(flag string) string {
	if flag != "" {
		return flag
	}
	return filepath.Join(filepath.Dir(config.AppConfig.DatabasePath), "backups")
}

func runBackup(out io.Writer, store database.Store, dir string, keep int) error {
	snap, ok := store.(database.Snapshotter)
	if !ok {
		return fmt.Errorf("the %s store does not support backups", config.AppConfig.DatabaseType)
	}
	cfg := backup.DefaultConfig(dir)
	cfg.MaxBackups = keep
	info, err := backup.Create(snap, config.AppConfig.DatabaseType, cfg)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	fmt.Fprintf(out, "Backup written: %s (%d bytes)\n", info.Path, info.Size)
	fmt.Fprintf(out, "SHA-256: %s\n", info.Checksum)
	return nil
}

func runListBackups(out io.Writer, dir string) error {
	backups, err := backup.List(dir)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Fprintf(out, "No backups in %s.\n", dir)
		return nil
	}
	for _, b := range backups {
		fmt.Fprintf(out, "%s  %-7s %10d  %s\n", b.CreatedAt.Format("2006-01-02 15:04:05"), b.DatabaseType, b.Size, b.Filename)
	}
	return nil
}

func runRawPebbleDump(out io.Writer, db *pebble.DB, prefix string, limit int) error {
	iterOpts := &pebble.IterOptions{}
	if prefix != "" {
		iterOpts.LowerBound = []byte(prefix)
		iterOpts.UpperBound = append([]byte(prefix), 0xFF)
	}

	iter, err := db.NewIter(iterOpts)
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	count := 0
	for ok := iter.First(); ok && iter.Valid(); ok = iter.Next() {
		fmt.Fprintf(out, "Key: %s\n", string(iter.Key()))
		val := iter.Value()
		fmt.Fprintf(out, "Value length: %d bytes\n", len(val))
		fmt.Fprintf(out, "Value preview: %s\n", truncateString(string(val), 500))
		fmt.Fprintln(out, "---")

		count++
		if count >= limit {
			break
		}
	}

	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterator error: %w", err)
	}
	if count == 0 {
		fmt.Fprintln(out, "No keys matched the requested prefix.")
	}
	return nil
}

func promptYesNo(out io.Writer, in io.Reader, action string) (bool, error) {
	fmt.Fprintf(out, "%s? Type 'yes' to confirm: ", action)
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes", nil
}

func truncateString(in string, max int) string {
	if len(in) <= max {
		return in
	}
	return in[:max] + "..."
}
