// file: cmd/ingest.go
// version: 1.0.0
// guid: 33f2f692-2fae-4393-ac01-f14fd90c36e7

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jdfalk/audiobook-catalog/internal/catalog"
	"github.com/jdfalk/audiobook-catalog/internal/scanner"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

const defaultReviewFile = "review.yaml"

// scanCmd walks the library and writes a review file; it never touches the store
var scanCmd = &cobra.Command{
	Use:   "scan [root]",
	Short: "Scan a library root and write a review file",
	Long: `Scan walks the library root, builds one candidate per book found and
writes them to a YAML review file. Edit "selected" and, for folders holding
several audiobook containers, "user_decision" (single or multiple) before
running commit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := libraryRoot(args)
		if err != nil {
			return err
		}
		opts := scanOptions()
		if cmd.Flags().Changed("max-depth") {
			opts.MaxDepth, _ = cmd.Flags().GetInt("max-depth")
		}
		if noRecurse, _ := cmd.Flags().GetBool("no-recursive"); noRecurse {
			opts.Recursive = false
		}
		if cmd.Flags().Changed("split-root-files") {
			opts.SplitRootFiles, _ = cmd.Flags().GetBool("split-root-files")
		}
		review, _ := cmd.Flags().GetString("review")
		quiet, _ := cmd.Flags().GetBool("quiet")
		return runScan(cmd.Context(), cmd.OutOrStdout(), root, review, opts, !quiet)
	},
}

// commitCmd reconciles a reviewed scan into the store
var commitCmd = &cobra.Command{
	Use:   "commit [review-file]",
	Short: "Commit the selected candidates of a review file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		review := defaultReviewFile
		if len(args) > 0 {
			review = args[0]
		}
		fullRescan, _ := cmd.Flags().GetBool("full-rescan")
		return runCommit(cmd.Context(), cmd.OutOrStdout(), review, fullRescan)
	},
}

func init() {
	scanCmd.Flags().String("review", defaultReviewFile, "where to write the review file")
	scanCmd.Flags().Int("max-depth", 8, "maximum directory depth below the root (-1 for no limit)")
	scanCmd.Flags().Bool("no-recursive", false, "only scan the root directory")
	scanCmd.Flags().Bool("quiet", false, "hide the progress spinner")
	scanCmd.Flags().Bool("split-root-files", false, "treat each audiobook container directly in the root as its own book")

	commitCmd.Flags().Bool("full-rescan", false, "flag records under the scanned root that the review does not mention as missing")
}

func runScan(ctx context.Context, out io.Writer, root, reviewPath string, opts scanner.Options, progress bool) error {
	sc := newScanner()
	if progress {
		bar := progressbar.Default(-1, "scanning")
		sc.OnDirectory = func(string, int) {
			_ = bar.Add(1)
		}
		defer func() { _ = bar.Finish() }()
	}

	res, err := sc.Scan(ctx, root, opts)
	if err != nil && res == nil {
		return fmt.Errorf("scan error: %w", err)
	}
	if err != nil {
		fmt.Fprintf(out, "Scan interrupted (%v); writing partial results\n", err)
	}

	if err := scanner.WriteReview(reviewPath, res); err != nil {
		return err
	}

	fmt.Fprintf(out, "Scanned %d directories under %s\n", res.ScannedDirectories, res.Root)
	fmt.Fprintf(out, "Found %d candidates (%d need a single/multiple decision)\n", len(res.Candidates), res.PendingDecisions())
	if len(res.Warnings) > 0 {
		fmt.Fprintf(out, "%d warnings:\n", len(res.Warnings))
		for _, w := range res.Warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
	}
	fmt.Fprintf(out, "Review file written to %s\n", reviewPath)
	return nil
}

func runCommit(ctx context.Context, out io.Writer, reviewPath string, fullRescan bool) error {
	res, err := scanner.ReadReview(reviewPath)
	if err != nil {
		return err
	}

	store, closer, err := openStore()
	if err != nil {
		return err
	}
	defer closer()

	committer := newCommitter(store, newScanner())
	summary, err := committer.Commit(ctx, res.Candidates, catalog.Options{FullRescan: fullRescan, Root: res.Root})
	var pending *catalog.PendingDecisionError
	if errors.As(err, &pending) {
		fmt.Fprintln(out, "These folders need user_decision set to single or multiple:")
		for _, p := range pending.Paths {
			fmt.Fprintf(out, "  - %s\n", p)
		}
		return err
	}
	if summary != nil {
		printSummary(out, summary)
	}
	return err
}

func printSummary(out io.Writer, s *catalog.Summary) {
	for _, item := range s.Items {
		if item.Action == catalog.ActionError {
			fmt.Fprintf(out, "  error  %s: %s\n", item.Path, item.Error)
		}
	}
	fmt.Fprintf(out, "Inserted: %d\n", s.Inserted)
	fmt.Fprintf(out, "Updated:  %d\n", s.Updated)
	fmt.Fprintf(out, "Skipped:  %d\n", s.Skipped)
	fmt.Fprintf(out, "Errors:   %d\n", s.Errors)
	fmt.Fprintf(out, "Covers:   %d extracted, %d failed\n", s.CoversExtracted, s.CoverErrors)
	if s.MissingCount > 0 {
		fmt.Fprintf(out, "Missing:  %d records no longer found on disk\n", s.MissingCount)
	}
}
