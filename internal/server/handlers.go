// file: internal/server/handlers.go
// version: 1.0.0
// guid: ac44fbec-8e75-4c7d-be47-ac9ed45bd087

package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/audiobook-catalog/internal/catalog"
	"github.com/jdfalk/audiobook-catalog/internal/database"
	"github.com/jdfalk/audiobook-catalog/internal/models"
	"github.com/jdfalk/audiobook-catalog/internal/query"
	"github.com/jdfalk/audiobook-catalog/internal/realtime"
)

const suggestionLimit = 5

func (s *Server) listBooks(c *gin.Context) {
	filter := query.BookFilter{
		Search:    c.Query("search"),
		Rated:     query.RatedFilter(c.Query("rated")),
		SeriesKey: c.Query("series"),
	}
	for _, raw := range ParseQueryList(c, "status") {
		st, err := models.ParseStatus(raw)
		if err != nil {
			RespondWithValidationError(c, "status", err.Error())
			return
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	switch filter.Rated {
	case query.RatedAny, query.RatedFully, query.RatedNone:
	default:
		RespondWithValidationError(c, "rated", fmt.Sprintf("unknown value %q", filter.Rated))
		return
	}

	records, ok := s.records(c)
	if !ok {
		return
	}
	page := ParsePaginationParams(c)
	matched := query.Books(records, filter, query.ParseSort(c.DefaultQuery("sort", query.SortTitle)))
	items := query.Paginate(matched, query.Page{Limit: page.Limit, Offset: page.Offset})
	if items == nil {
		items = []models.Record{}
	}

	resp := NewListResponse(items, len(items), len(matched), page)
	if filter.SeriesKey != "" && len(matched) == 0 {
		resp.Suggestions = query.SuggestSeriesKeys(records, filter.SeriesKey, suggestionLimit)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) createBook(c *gin.Context) {
	var req CreateBookRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}

	rec, err := s.deps.Service.AddManual(catalog.ManualEntry{
		Path:           req.Path,
		Kind:           models.Kind(req.Kind),
		Title:          req.Title,
		Author:         req.Author,
		Narrator:       req.Narrator,
		Series:         req.Series,
		SeriesPosition: req.SeriesPosition,
	})
	if err != nil {
		RespondWithDomainError(c, "", err)
		return
	}
	s.mutated()
	s.deps.Events.Publish(realtime.EventRecordCreated, rec.ID, map[string]any{"path": rec.Path})
	c.JSON(http.StatusCreated, ItemResponse{Data: rec})
}

func (s *Server) getBook(c *gin.Context) {
	id := c.Param("id")
	rec, err := s.deps.Service.Get(id)
	if err != nil {
		RespondWithDomainError(c, id, err)
		return
	}
	RespondWithOK(c, rec)
}

func (s *Server) updateBook(c *gin.Context) {
	id := c.Param("id")
	var req UpdateBookRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}

	fields := database.UserFields{
		BookRating:      req.BookRating,
		ClearBookRating: req.ClearBookRating,
		Tags:            req.Tags,
		Notes:           req.Notes,
	}
	if req.Status != nil {
		st, err := models.ParseStatus(*req.Status)
		if err != nil {
			RespondWithValidationError(c, "status", err.Error())
			return
		}
		fields.Status = &st
	}

	if err := s.deps.Service.Update(id, fields); err != nil {
		RespondWithDomainError(c, id, err)
		return
	}
	s.mutated()

	rec, err := s.deps.Service.Get(id)
	if err != nil {
		RespondWithDomainError(c, id, err)
		return
	}
	s.deps.Events.Publish(realtime.EventRecordUpdated, id, map[string]any{"status": rec.Status, "book_rating": rec.BookRating})
	RespondWithOK(c, rec)
}

func (s *Server) deleteBook(c *gin.Context) {
	id := c.Param("id")
	if err := s.deps.Service.DeleteRecord(id); err != nil {
		RespondWithDomainError(c, id, err)
		return
	}
	s.mutated()
	s.deps.Events.Publish(realtime.EventRecordDeleted, id, nil)
	c.JSON(http.StatusOK, DeleteResponse{Deleted: true, ID: id})
}

func (s *Server) rateNarrator(c *gin.Context) {
	id := c.Param("id")
	var req RateNarratorRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	if err := s.deps.Service.SetNarratorRating(id, c.Param("name"), req.Rating); err != nil {
		RespondWithDomainError(c, id, err)
		return
	}
	s.mutated()

	rec, err := s.deps.Service.Get(id)
	if err != nil {
		RespondWithDomainError(c, id, err)
		return
	}
	s.deps.Events.Publish(realtime.EventRecordUpdated, id, map[string]any{"narrator": c.Param("name"), "rating": req.Rating})
	RespondWithOK(c, rec)
}

func (s *Server) listSeries(c *gin.Context) {
	filter := query.SeriesFilter{
		Search: c.Query("search"),
		Rated:  query.SeriesRatedFilter(c.Query("rated")),
	}
	switch filter.Rated {
	case query.SeriesRatedAny, query.SeriesRatedFully, query.SeriesRatedPart, query.SeriesRatedNone:
	default:
		RespondWithValidationError(c, "rated", fmt.Sprintf("unknown value %q", filter.Rated))
		return
	}
	if raw := c.Query("completion"); raw != "" {
		st, err := models.ParseStatus(raw)
		if err != nil {
			RespondWithValidationError(c, "completion", err.Error())
			return
		}
		filter.Completion = st
	}

	records, ok := s.records(c)
	if !ok {
		return
	}
	page := ParsePaginationParams(c)
	groups := query.Series(records, filter, query.ParseSort(c.DefaultQuery("sort", query.SeriesSortName)))
	total := len(groups)
	if page.Offset > total {
		page.Offset = total
	}
	end := total
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}
	items := groups[page.Offset:end]
	if items == nil {
		items = []query.SeriesGroup{}
	}
	c.JSON(http.StatusOK, NewListResponse(items, len(items), total, page))
}

func (s *Server) startScan(c *gin.Context) {
	var req ScanRequest
	if c.Request.ContentLength != 0 {
		if HandleBindError(c, c.ShouldBindJSON(&req)) {
			return
		}
	}

	root := strings.TrimSpace(req.Root)
	if root == "" {
		root = s.deps.Root
	}
	if root == "" {
		RespondWithValidationError(c, "root", "no scan root given and none configured")
		return
	}
	opts := s.deps.ScanOptions
	if req.Recursive != nil {
		opts.Recursive = *req.Recursive
	}
	if req.MaxDepth != nil {
		opts.MaxDepth = *req.MaxDepth
	}
	if req.SplitRootFiles != nil {
		opts.SplitRootFiles = *req.SplitRootFiles
	}

	res, err := s.deps.Scanner.Scan(c.Request.Context(), root, opts)
	if err != nil && res == nil {
		RespondWithDomainError(c, root, err)
		return
	}
	if err != nil {
		log.Printf("[WARN] server: scan of %s stopped early: %v", root, err)
	}

	candidates := res.Candidates
	if candidates == nil {
		candidates = []models.Candidate{}
	}
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	s.deps.Events.Publish(realtime.EventScanCompleted, "", map[string]any{
		"root":              res.Root,
		"candidates":        len(candidates),
		"pending_decisions": res.PendingDecisions(),
	})
	c.JSON(http.StatusOK, ScanResponse{
		Root:               res.Root,
		Candidates:         candidates,
		ScannedDirectories: res.ScannedDirectories,
		PendingDecisions:   res.PendingDecisions(),
		Warnings:           warnings,
	})
}

func (s *Server) commit(c *gin.Context) {
	var req CommitRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	opts := catalog.Options{FullRescan: req.FullRescan, Root: req.Root}
	if opts.FullRescan && opts.Root == "" {
		opts.Root = s.deps.Root
	}

	summary, err := s.deps.Committer.Commit(c.Request.Context(), req.Candidates, opts)
	if summary != nil {
		// Partial commits still changed the store
		s.mutated()
	}
	if err != nil {
		var pending *catalog.PendingDecisionError
		if errors.As(err, &pending) {
			RespondWithPendingDecisions(c, pending)
			return
		}
		RespondWithInternalError(c, "commit failed: "+err.Error())
		return
	}

	if s.deps.Watcher != nil {
		s.deps.Watcher.MarkFresh()
	}
	s.deps.Events.Publish(realtime.EventCommitCompleted, "", map[string]any{
		"inserted": summary.Inserted,
		"updated":  summary.Updated,
		"skipped":  summary.Skipped,
		"errors":   summary.Errors,
		"missing":  summary.MissingCount,
	})
	c.JSON(http.StatusOK, CommitResponse{Summary: summary})
}

func (s *Server) getStatus(c *gin.Context) {
	records, ok := s.records(c)
	if !ok {
		return
	}
	resp := StatusResponse{
		Status:       "ok",
		DatabaseType: s.deps.DatabaseType,
		Overview:     query.Summarize(records),
	}
	if s.deps.Watcher != nil {
		resp.Watching = true
		stale, last := s.deps.Watcher.Stale()
		resp.Stale = stale
		if !last.IsZero() {
			resp.LastChange = &last
		}
	}
	c.JSON(http.StatusOK, resp)
}
