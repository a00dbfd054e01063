// file: internal/database/sqlite_store.go
// version: 2.0.0
// guid: 184528c2-b0b0-4ae2-8d85-2e0c1954d98e

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jdfalk/audiobook-catalog/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const recordSelectColumns = `
	id, path, kind, title, author, narrator, series, series_position,
	duration_seconds, total_size_bytes, file_count, has_embedded_cover,
	source, status, book_rating, tags, notes, cover_image_path,
	missing_from_source, date_added, updated_at
`

func scanRecord(scanner rowScanner, rec *models.Record) error {
	var kind, source, status string
	var duration, rating sql.NullInt64
	err := scanner.Scan(
		&rec.ID, &rec.Path, &kind, &rec.Title, &rec.Author, &rec.Narrator,
		&rec.Series, &rec.SeriesPosition, &duration, &rec.TotalSizeBytes,
		&rec.FileCount, &rec.HasEmbeddedCover, &source, &status, &rating,
		&rec.Tags, &rec.Notes, &rec.CoverImagePath, &rec.MissingFromSource,
		&rec.DateAdded, &rec.UpdatedAt,
	)
	if err != nil {
		return err
	}
	rec.Kind = models.Kind(kind)
	rec.Source = models.Source(source)
	rec.Status = models.Status(status)
	if duration.Valid {
		rec.DurationSeconds = models.IntPtr(int(duration.Int64))
	}
	if rating.Valid {
		rec.BookRating = models.IntPtr(int(rating.Int64))
	}
	return nil
}

// SQLiteStore implements the Store interface using SQLite3. Narrator ratings
// live in a side table that cascades on record deletion.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	// Single writer; also keeps the foreign_keys pragma on every query
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, now: time.Now}

	// Create tables
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// Snapshot writes a compacted copy of the database file to dest
func (s *SQLiteStore) Snapshot(dest string) error {
	if _, err := s.db.Exec(`VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("failed to snapshot SQLite database: %w", err)
	}
	return nil
}

// createTables creates all required tables
func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		title TEXT,
		author TEXT,
		narrator TEXT,
		series TEXT,
		series_position TEXT,
		duration_seconds INTEGER,
		total_size_bytes INTEGER NOT NULL DEFAULT 0,
		file_count INTEGER NOT NULL DEFAULT 0,
		has_embedded_cover BOOLEAN NOT NULL DEFAULT 0,
		source TEXT NOT NULL DEFAULT 'scanned',
		status TEXT NOT NULL DEFAULT 'not_started',
		book_rating INTEGER CHECK (book_rating BETWEEN 1 AND 5),
		tags TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		cover_image_path TEXT,
		missing_from_source BOOLEAN NOT NULL DEFAULT 0,
		date_added DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_series ON records(series);

	CREATE TABLE IF NOT EXISTS narrator_ratings (
		record_id TEXT NOT NULL,
		narrator TEXT NOT NULL,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		PRIMARY KEY (record_id, narrator),
		FOREIGN KEY (record_id) REFERENCES records(id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetAll() ([]models.Record, error) {
	rows, err := s.db.Query("SELECT " + recordSelectColumns + " FROM records ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.Record
	index := make(map[string]int)
	for rows.Next() {
		var rec models.Record
		if err := scanRecord(rows, &rec); err != nil {
			return nil, err
		}
		index[rec.ID] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ratings, err := s.db.Query("SELECT record_id, narrator, rating FROM narrator_ratings")
	if err != nil {
		return nil, err
	}
	defer ratings.Close()
	for ratings.Next() {
		var id, narrator string
		var rating int
		if err := ratings.Scan(&id, &narrator, &rating); err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			if records[i].NarratorRatings == nil {
				records[i].NarratorRatings = make(map[string]int)
			}
			records[i].NarratorRatings[narrator] = rating
		}
	}
	return records, ratings.Err()
}

func (s *SQLiteStore) getOne(where string, arg string) (*models.Record, error) {
	var rec models.Record
	row := s.db.QueryRow("SELECT "+recordSelectColumns+" FROM records WHERE "+where+" = ?", arg)
	if err := scanRecord(row, &rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := s.loadRatings(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) loadRatings(rec *models.Record) error {
	rows, err := s.db.Query("SELECT narrator, rating FROM narrator_ratings WHERE record_id = ?", rec.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var narrator string
		var rating int
		if err := rows.Scan(&narrator, &rating); err != nil {
			return err
		}
		if rec.NarratorRatings == nil {
			rec.NarratorRatings = make(map[string]int)
		}
		rec.NarratorRatings[narrator] = rating
	}
	return rows.Err()
}

func (s *SQLiteStore) GetByID(id string) (*models.Record, error) {
	return s.getOne("id", id)
}

func (s *SQLiteStore) GetByPath(path string) (*models.Record, error) {
	return s.getOne("path", path)
}

func nullInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func (s *SQLiteStore) insert(tx *sql.Tx, rec *models.Record) error {
	_, err := tx.Exec(`INSERT INTO records (`+recordSelectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Path, string(rec.Kind), rec.Title, rec.Author, rec.Narrator,
		rec.Series, rec.SeriesPosition, nullInt(rec.DurationSeconds), rec.TotalSizeBytes,
		rec.FileCount, rec.HasEmbeddedCover, string(rec.Source), string(rec.Status),
		nullInt(rec.BookRating), rec.Tags, rec.Notes, rec.CoverImagePath,
		rec.MissingFromSource, rec.DateAdded, rec.UpdatedAt,
	)
	if err != nil {
		return err
	}
	for narrator, rating := range rec.NarratorRatings {
		if _, err := tx.Exec("INSERT INTO narrator_ratings (record_id, narrator, rating) VALUES (?, ?, ?)",
			rec.ID, narrator, rating); err != nil {
			return err
		}
	}
	return nil
}

// withTx runs fn in a transaction, rolling back on error
func (s *SQLiteStore) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Create(rec *models.Record) (*models.Record, error) {
	existing, err := s.GetByPath(rec.Path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePath, rec.Path)
	}
	if err := prepareCreate(rec, s.now()); err != nil {
		return nil, err
	}
	if err := s.withTx(func(tx *sql.Tx) error { return s.insert(tx, rec) }); err != nil {
		return nil, fmt.Errorf("failed to create record %s: %w", rec.Path, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Upsert(path string, fields models.Descriptive) (UpsertResult, error) {
	existing, err := s.GetByPath(path)
	if err != nil {
		return UpsertResult{}, err
	}

	now := s.now()
	if existing == nil {
		id, err := newULID()
		if err != nil {
			return UpsertResult{}, err
		}
		rec := newScannedRecord(id, path, fields, now)
		if err := s.withTx(func(tx *sql.Tx) error { return s.insert(tx, rec) }); err != nil {
			return UpsertResult{}, err
		}
		return UpsertResult{ID: id, WasInsert: true}, nil
	}

	_, err = s.db.Exec(`UPDATE records SET
		kind = ?, title = ?, author = ?, narrator = ?, series = ?, series_position = ?,
		duration_seconds = ?, total_size_bytes = ?, file_count = ?, has_embedded_cover = ?,
		missing_from_source = 0, updated_at = ?
		WHERE id = ?`,
		string(fields.Kind), fields.Title, fields.Author, fields.Narrator, fields.Series,
		fields.SeriesPosition, nullInt(fields.DurationSeconds), fields.TotalSizeBytes,
		fields.FileCount, fields.HasEmbeddedCover, now, existing.ID,
	)
	if err != nil {
		return UpsertResult{}, err
	}
	return UpsertResult{ID: existing.ID}, nil
}

func (s *SQLiteStore) MarkMissing(present map[string]bool) (int, error) {
	rows, err := s.db.Query("SELECT id, path, missing_from_source FROM records")
	if err != nil {
		return 0, err
	}
	type row struct {
		id      string
		missing bool
	}
	var changes []row
	flagged := 0
	for rows.Next() {
		var id, path string
		var wasMissing bool
		if err := rows.Scan(&id, &path, &wasMissing); err != nil {
			rows.Close()
			return 0, err
		}
		missing := !present[path]
		if missing {
			flagged++
		}
		if missing != wasMissing {
			changes = append(changes, row{id: id, missing: missing})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	now := s.now()
	err = s.withTx(func(tx *sql.Tx) error {
		for _, c := range changes {
			if _, err := tx.Exec("UPDATE records SET missing_from_source = ?, updated_at = ? WHERE id = ?",
				c.missing, now, c.id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return flagged, nil
}

func checkAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) SetUserFields(id string, fields UserFields) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{s.now()}
	if fields.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*fields.Status))
	}
	if fields.ClearBookRating {
		sets = append(sets, "book_rating = NULL")
	} else if fields.BookRating != nil {
		sets = append(sets, "book_rating = ?")
		args = append(args, *fields.BookRating)
	}
	if fields.Tags != nil {
		sets = append(sets, "tags = ?")
		args = append(args, *fields.Tags)
	}
	if fields.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *fields.Notes)
	}
	args = append(args, id)

	res, err := s.db.Exec("UPDATE records SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	return checkAffected(res, id)
}

func (s *SQLiteStore) SetNarratorRating(id, narrator string, rating *int) error {
	return s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec("UPDATE records SET updated_at = ? WHERE id = ?", s.now(), id)
		if err != nil {
			return err
		}
		if err := checkAffected(res, id); err != nil {
			return err
		}
		if rating == nil {
			_, err = tx.Exec("DELETE FROM narrator_ratings WHERE record_id = ? AND narrator = ?", id, narrator)
			return err
		}
		_, err = tx.Exec(`INSERT INTO narrator_ratings (record_id, narrator, rating) VALUES (?, ?, ?)
			ON CONFLICT(record_id, narrator) DO UPDATE SET rating = excluded.rating`,
			id, narrator, *rating)
		return err
	})
}

func (s *SQLiteStore) SetCoverPath(id, relativePath string) error {
	res, err := s.db.Exec("UPDATE records SET cover_image_path = ?, updated_at = ? WHERE id = ?",
		relativePath, s.now(), id)
	if err != nil {
		return err
	}
	return checkAffected(res, id)
}

func (s *SQLiteStore) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return err
	}
	return checkAffected(res, id)
}

// Verify SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
