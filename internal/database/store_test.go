// file: internal/database/store_test.go
// version: 3.0.0
// guid: b624aead-301e-4500-a3ac-3bc6f0cfc6cc

package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jdfalk/audiobook-catalog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory struct {
	name string
	open func(t *testing.T) Store
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{name: "pebble", open: func(t *testing.T) Store {
			s, err := NewPebbleStore(filepath.Join(t.TempDir(), "catalog.pebble"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
		{name: "sqlite", open: func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "catalog.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
		{name: "mock", open: func(t *testing.T) Store {
			return NewMockStore()
		}},
	}
}

func strPtr(s string) *string { return &s }

func descriptive(title, author string) models.Descriptive {
	return models.Descriptive{
		Kind:            models.KindFolder,
		Title:           strPtr(title),
		Author:          strPtr(author),
		Narrator:        strPtr("A, B"),
		DurationSeconds: models.IntPtr(3600),
		TotalSizeBytes:  1024,
		FileCount:       2,
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			fn(t, f.open(t))
		})
	}
}

func TestStoreUpsertInsertThenUpdate(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		res, err := s.Upsert("/lib/a", descriptive("First", "Author"))
		require.NoError(t, err)
		assert.True(t, res.WasInsert)
		require.NotEmpty(t, res.ID)

		rec, err := s.GetByPath("/lib/a")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, res.ID, rec.ID)
		assert.Equal(t, models.SourceScanned, rec.Source)
		assert.Equal(t, models.StatusNotStarted, rec.Status)
		assert.Equal(t, "First", models.Deref(rec.Title))
		assert.Equal(t, 3600, *rec.DurationSeconds)
		assert.Nil(t, rec.Series)
		assert.False(t, rec.DateAdded.IsZero())

		require.NoError(t, s.SetUserFields(rec.ID, UserFields{
			Status:     statusPtr(models.StatusFinished),
			BookRating: models.IntPtr(4),
			Notes:      strPtr("great"),
		}))

		again, err := s.Upsert("/lib/a", descriptive("Second", "Other"))
		require.NoError(t, err)
		assert.False(t, again.WasInsert)
		assert.Equal(t, res.ID, again.ID)

		rec, err = s.GetByID(res.ID)
		require.NoError(t, err)
		assert.Equal(t, "Second", models.Deref(rec.Title))
		assert.Equal(t, models.StatusFinished, rec.Status, "user fields survive upsert")
		assert.Equal(t, 4, *rec.BookRating)
		assert.Equal(t, "great", rec.Notes)
	})
}

func statusPtr(s models.Status) *models.Status { return &s }

func TestStoreLookupsMiss(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		rec, err := s.GetByID("nope")
		require.NoError(t, err)
		assert.Nil(t, rec)

		rec, err = s.GetByPath("/nope")
		require.NoError(t, err)
		assert.Nil(t, rec)

		err = s.SetUserFields("nope", UserFields{Tags: strPtr("x")})
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.True(t, errors.Is(s.Delete("nope"), ErrNotFound))
		assert.True(t, errors.Is(s.SetCoverPath("nope", "covers/x.jpg"), ErrNotFound))
		assert.True(t, errors.Is(s.SetNarratorRating("nope", "A", models.IntPtr(3)), ErrNotFound))
	})
}

func TestStoreMarkMissing(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		for _, p := range []string{"/lib/A", "/lib/B", "/lib/C"} {
			_, err := s.Upsert(p, descriptive(p, "x"))
			require.NoError(t, err)
		}

		n, err := s.MarkMissing(map[string]bool{"/lib/A": true, "/lib/C": true})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		all, err := s.GetAll()
		require.NoError(t, err)
		require.Len(t, all, 3)
		for _, rec := range all {
			assert.Equal(t, rec.Path == "/lib/B", rec.MissingFromSource, rec.Path)
		}

		// Observed again: the flag clears on upsert
		_, err = s.Upsert("/lib/B", descriptive("B", "x"))
		require.NoError(t, err)
		rec, err := s.GetByPath("/lib/B")
		require.NoError(t, err)
		assert.False(t, rec.MissingFromSource)
	})
}

func TestStoreNarratorRatingsCascade(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		res, err := s.Upsert("/lib/a", descriptive("T", "A"))
		require.NoError(t, err)

		require.NoError(t, s.SetNarratorRating(res.ID, "A", models.IntPtr(5)))
		require.NoError(t, s.SetNarratorRating(res.ID, "B", models.IntPtr(2)))
		require.NoError(t, s.SetNarratorRating(res.ID, "B", models.IntPtr(3)))

		rec, err := s.GetByID(res.ID)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"A": 5, "B": 3}, rec.NarratorRatings)

		require.NoError(t, s.SetNarratorRating(res.ID, "B", nil))
		rec, err = s.GetByID(res.ID)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"A": 5}, rec.NarratorRatings)

		require.NoError(t, s.Delete(res.ID))
		rec, err = s.GetByID(res.ID)
		require.NoError(t, err)
		assert.Nil(t, rec)

		// A new record at the same path starts without ratings
		res2, err := s.Upsert("/lib/a", descriptive("T", "A"))
		require.NoError(t, err)
		assert.True(t, res2.WasInsert)
		rec, err = s.GetByID(res2.ID)
		require.NoError(t, err)
		assert.Empty(t, rec.NarratorRatings)
	})
}

func TestStoreClearBookRatingAndCover(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		res, err := s.Upsert("/lib/a", descriptive("T", "A"))
		require.NoError(t, err)

		require.NoError(t, s.SetUserFields(res.ID, UserFields{BookRating: models.IntPtr(2)}))
		require.NoError(t, s.SetUserFields(res.ID, UserFields{ClearBookRating: true, Tags: strPtr("sci-fi")}))
		require.NoError(t, s.SetCoverPath(res.ID, "covers/"+res.ID+".jpg"))

		rec, err := s.GetByID(res.ID)
		require.NoError(t, err)
		assert.Nil(t, rec.BookRating)
		assert.Equal(t, "sci-fi", rec.Tags)
		require.NotNil(t, rec.CoverImagePath)
		assert.Equal(t, "covers/"+res.ID+".jpg", *rec.CoverImagePath)
	})
}

func TestStoreCreateManual(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		rec := &models.Record{Path: "/lib/manual", Descriptive: descriptive("Hand Entered", "Me")}
		created, err := s.Create(rec)
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, models.SourceManual, created.Source)

		got, err := s.GetByPath("/lib/manual")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.SourceManual, got.Source)

		// Upsert keeps the manual source
		_, err = s.Upsert("/lib/manual", descriptive("Scanned", "Scanner"))
		require.NoError(t, err)
		got, err = s.GetByPath("/lib/manual")
		require.NoError(t, err)
		assert.Equal(t, models.SourceManual, got.Source)

		_, err = s.Create(&models.Record{Path: "/lib/manual"})
		assert.ErrorIs(t, err, ErrDuplicatePath, "paths are unique")

		_, err = s.Create(&models.Record{})
		assert.Error(t, err, "path is required")
	})
}

func TestInitializeStoreRequiresSQLiteOptIn(t *testing.T) {
	dir := t.TempDir()
	err := InitializeStore("sqlite", filepath.Join(dir, "x.db"), false)
	require.Error(t, err)

	err = InitializeStore("mysql", filepath.Join(dir, "x.db"), true)
	require.Error(t, err)

	require.NoError(t, InitializeStore("", filepath.Join(dir, "x.pebble"), false))
	_, ok := GlobalStore.(*PebbleStore)
	assert.True(t, ok)
	require.NoError(t, CloseStore())
	assert.Nil(t, GlobalStore)
}

func TestMockStoreFuncOverride(t *testing.T) {
	m := NewMockStore()
	boom := errors.New("boom")
	m.UpsertFunc = func(path string, fields models.Descriptive) (UpsertResult, error) {
		return UpsertResult{}, boom
	}
	_, err := m.Upsert("/x", models.Descriptive{})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, m.Close())
	assert.True(t, m.Closed())
}
