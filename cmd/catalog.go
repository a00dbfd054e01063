// file: cmd/catalog.go
// version: 1.1.0
// guid: 50886cb6-d88e-4239-968f-6a172f0ac231

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jdfalk/audiobook-catalog/internal/catalog"
	"github.com/jdfalk/audiobook-catalog/internal/config"
	"github.com/jdfalk/audiobook-catalog/internal/database"
	"github.com/jdfalk/audiobook-catalog/internal/models"
	"github.com/jdfalk/audiobook-catalog/internal/playlist"
	"github.com/jdfalk/audiobook-catalog/internal/query"
	"github.com/spf13/cobra"
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "List catalog records",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := query.BookFilter{}
		filter.Search, _ = cmd.Flags().GetString("search")
		filter.SeriesKey, _ = cmd.Flags().GetString("series")
		rated, _ := cmd.Flags().GetString("rated")
		filter.Rated = query.RatedFilter(rated)
		statuses, _ := cmd.Flags().GetStringSlice("status")
		for _, raw := range statuses {
			st, err := models.ParseStatus(raw)
			if err != nil {
				return err
			}
			filter.Statuses = append(filter.Statuses, st)
		}
		sortBy, _ := cmd.Flags().GetString("sort")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		asJSON, _ := cmd.Flags().GetBool("json")

		store, closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()
		return runBooks(cmd.OutOrStdout(), store, filter, query.ParseSort(sortBy), query.Page{Limit: limit, Offset: offset}, asJSON)
	},
}

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "List series with completion and rating statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := query.SeriesFilter{}
		filter.Search, _ = cmd.Flags().GetString("search")
		rated, _ := cmd.Flags().GetString("rated")
		filter.Rated = query.SeriesRatedFilter(rated)
		if completion, _ := cmd.Flags().GetString("completion"); completion != "" {
			st, err := models.ParseStatus(completion)
			if err != nil {
				return err
			}
			filter.Completion = st
		}
		sortBy, _ := cmd.Flags().GetString("sort")
		asJSON, _ := cmd.Flags().GetBool("json")
		playlistDir, _ := cmd.Flags().GetString("playlists")

		store, closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()
		if playlistDir != "" {
			return runPlaylists(cmd.OutOrStdout(), store, playlistDir)
		}
		return runSeries(cmd.OutOrStdout(), store, filter, query.ParseSort(sortBy), asJSON)
	},
}

var rateCmd = &cobra.Command{
	Use:   "rate <id> <1-5|clear>",
	Short: "Rate a book, or one of its narrators with --narrator",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, err := parseRating(args[1])
		if err != nil {
			return err
		}
		narrator, _ := cmd.Flags().GetString("narrator")

		store, closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()
		return runRate(cmd.OutOrStdout(), catalog.NewService(store), args[0], narrator, rating)
	},
}

var setCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Set listening status, tags or notes of a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var fields database.UserFields
		if cmd.Flags().Changed("status") {
			raw, _ := cmd.Flags().GetString("status")
			st, err := models.ParseStatus(raw)
			if err != nil {
				return err
			}
			fields.Status = &st
		}
		if cmd.Flags().Changed("tags") {
			tags, _ := cmd.Flags().GetString("tags")
			fields.Tags = &tags
		}
		if cmd.Flags().Changed("notes") {
			notes, _ := cmd.Flags().GetString("notes")
			fields.Notes = &notes
		}

		store, closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()
		svc := catalog.NewService(store)
		if err := svc.Update(args[0], fields); err != nil {
			return err
		}
		rec, err := svc.Get(args[0])
		if err != nil {
			return err
		}
		printRecord(cmd.OutOrStdout(), rec)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Catalog a book by hand",
	Long: `Add a hand-entered record for path. Later commits of the same path
only fill the fields left blank here.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry := catalog.ManualEntry{Path: args[0]}
		kind, _ := cmd.Flags().GetString("kind")
		entry.Kind = models.Kind(kind)
		entry.Title, _ = cmd.Flags().GetString("title")
		entry.Author, _ = cmd.Flags().GetString("author")
		entry.Narrator, _ = cmd.Flags().GetString("narrator")
		entry.Series, _ = cmd.Flags().GetString("series")
		entry.SeriesPosition, _ = cmd.Flags().GetString("position")

		store, closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()
		return runAdd(cmd.OutOrStdout(), catalog.NewService(store), entry)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a record and its narrator ratings from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()
		if err := catalog.NewService(store).DeleteRecord(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()
		return runStatus(cmd.OutOrStdout(), store)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or persist the effective configuration",
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write the effective configuration next to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.SaveConfigToFile()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", path)
		return nil
	},
}

func init() {
	booksCmd.Flags().String("search", "", "case-insensitive text in title, author, series or narrator")
	booksCmd.Flags().StringSlice("status", nil, "listening status filter (not_started, in_progress, finished)")
	booksCmd.Flags().String("rated", "", "fully_rated or unrated")
	booksCmd.Flags().String("series", "", "exact series name, or 'standalone'")
	booksCmd.Flags().String("sort", query.SortTitle, "sort field, prefix with - for descending")
	booksCmd.Flags().Int("limit", 0, "maximum records to show (0 for all)")
	booksCmd.Flags().Int("offset", 0, "records to skip")
	booksCmd.Flags().Bool("json", false, "print JSON")

	seriesCmd.Flags().String("search", "", "case-insensitive text in a series name or its books")
	seriesCmd.Flags().String("rated", "", "fully_rated, partly_rated or unrated")
	seriesCmd.Flags().String("completion", "", "completion status filter")
	seriesCmd.Flags().String("sort", query.SeriesSortName, "sort field, prefix with - for descending")
	seriesCmd.Flags().Bool("json", false, "print JSON")
	seriesCmd.Flags().String("playlists", "", "write one M3U playlist per series into this directory")

	rateCmd.Flags().String("narrator", "", "rate this narrator instead of the book")

	setCmd.Flags().String("status", "", "not_started, in_progress or finished")
	setCmd.Flags().String("tags", "", "free-form tags")
	setCmd.Flags().String("notes", "", "free-form notes")

	addCmd.Flags().String("kind", "", "single_file or folder (default: from the filesystem)")
	addCmd.Flags().String("title", "", "book title")
	addCmd.Flags().String("author", "", "author")
	addCmd.Flags().String("narrator", "", "narrators, comma separated")
	addCmd.Flags().String("series", "", "series name")
	addCmd.Flags().String("position", "", "position within the series")

	configCmd.AddCommand(configSaveCmd)
}

// parseRating reads 1..5, or clear/none/0 for removing a rating
func parseRating(s string) (*int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clear", "none", "0":
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || !models.ValidRating(v) {
		return nil, fmt.Errorf("%w: got %q", catalog.ErrInvalidRating, s)
	}
	return &v, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runBooks(out io.Writer, store database.Store, filter query.BookFilter, sort query.Sort, page query.Page, asJSON bool) error {
	records, err := store.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	matched := query.Books(records, filter, sort)
	items := query.Paginate(matched, page)

	if asJSON {
		if items == nil {
			items = []models.Record{}
		}
		return writeJSON(out, items)
	}

	if len(matched) == 0 {
		fmt.Fprintln(out, "No books found.")
		if filter.SeriesKey != "" {
			if suggestions := query.SuggestSeriesKeys(records, filter.SeriesKey, 5); len(suggestions) > 0 {
				fmt.Fprintf(out, "Did you mean: %s\n", strings.Join(suggestions, ", "))
			}
		}
		return nil
	}
	for i := range items {
		printRecord(out, &items[i])
	}
	fmt.Fprintf(out, "%d of %d books\n", len(items), len(matched))
	return nil
}

func printRecord(out io.Writer, rec *models.Record) {
	fmt.Fprintf(out, "%s  %s\n", rec.ID, formatValue(rec.Title))
	fmt.Fprintf(out, "    Author:   %s\n", formatValue(rec.Author))
	fmt.Fprintf(out, "    Narrator: %s\n", formatValue(rec.Narrator))
	if rec.HasSeries() {
		fmt.Fprintf(out, "    Series:   %s #%s\n", *rec.Series, formatValue(rec.SeriesPosition))
	}
	rating := "(unrated)"
	if rec.BookRating != nil {
		rating = strconv.Itoa(*rec.BookRating) + "/5"
	}
	fmt.Fprintf(out, "    Status:   %s  Rating: %s\n", rec.Status, rating)
	for _, name := range rec.Narrators() {
		if r := rec.NarratorRating(name); r != nil {
			fmt.Fprintf(out, "    Narrator rating: %s %d/5\n", name, *r)
		}
	}
	if rec.MissingFromSource {
		fmt.Fprintf(out, "    MISSING:  %s\n", rec.Path)
	} else {
		fmt.Fprintf(out, "    Path:     %s\n", rec.Path)
	}
}

// formatValue renders a nullable string for display
func formatValue(s *string) string {
	if v := strings.TrimSpace(models.Deref(s)); v != "" {
		return v
	}
	return "(empty)"
}

func runPlaylists(out io.Writer, store database.Store, dir string) error {
	records, err := store.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	playlists := playlist.Build(records, config.Classifier())
	if err := playlist.Write(dir, playlists); err != nil {
		return err
	}
	for _, pl := range playlists {
		fmt.Fprintf(out, "%s  (%d entries)\n", pl.Path, len(pl.Items))
	}
	fmt.Fprintf(out, "Wrote %d playlists.\n", len(playlists))
	return nil
}

func runSeries(out io.Writer, store database.Store, filter query.SeriesFilter, sort query.Sort, asJSON bool) error {
	records, err := store.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	groups := query.Series(records, filter, sort)
	if asJSON {
		if groups == nil {
			groups = []query.SeriesGroup{}
		}
		return writeJSON(out, groups)
	}
	if len(groups) == 0 {
		fmt.Fprintln(out, "No series found.")
		return nil
	}
	for _, g := range groups {
		avg := "-"
		if g.AvgBookRating != nil {
			avg = strconv.FormatFloat(*g.AvgBookRating, 'f', 1, 64)
		}
		fmt.Fprintf(out, "%s  (%d books, %s, %.0f%% finished, avg %s, %d unrated)\n",
			g.Name, g.BookCount, g.CompletionStatus, g.CompletionPercent, avg, g.UnratedCount)
	}
	return nil
}

func runRate(out io.Writer, svc *catalog.Service, id, narrator string, rating *int) error {
	var err error
	if narrator != "" {
		err = svc.SetNarratorRating(id, narrator, rating)
	} else {
		err = svc.SetBookRating(id, rating)
	}
	if err != nil {
		return err
	}
	rec, err := svc.Get(id)
	if err != nil {
		return err
	}
	printRecord(out, rec)
	if rec.IsFullyRated() {
		fmt.Fprintln(out, "    Fully rated.")
	}
	return nil
}

func runAdd(out io.Writer, svc *catalog.Service, entry catalog.ManualEntry) error {
	rec, err := svc.AddManual(entry)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Added manual record:")
	printRecord(out, rec)
	return nil
}

func runStatus(out io.Writer, store database.Store) error {
	records, err := store.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	ov := query.Summarize(records)
	fmt.Fprintf(out, "Database:    %s (%s)\n", config.AppConfig.DatabasePath, config.AppConfig.DatabaseType)
	fmt.Fprintf(out, "Records:     %d\n", ov.Records)
	fmt.Fprintf(out, "Series:      %d\n", ov.Series)
	fmt.Fprintf(out, "Not started: %d\n", ov.ByStatus[models.StatusNotStarted])
	fmt.Fprintf(out, "In progress: %d\n", ov.ByStatus[models.StatusInProgress])
	fmt.Fprintf(out, "Finished:    %d\n", ov.ByStatus[models.StatusFinished])
	fmt.Fprintf(out, "Fully rated: %d\n", ov.FullyRated)
	fmt.Fprintf(out, "With covers: %d\n", ov.WithCovers)
	fmt.Fprintf(out, "Missing:     %d\n", ov.Missing)
	fmt.Fprintf(out, "Duration:    %.1f hours\n", float64(ov.DurationSecs)/3600)
	return nil
}
