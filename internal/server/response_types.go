// file: internal/server/response_types.go
// version: 2.0.0
// guid: ad7dec28-1b3b-4c85-a3cf-c6774f6f2b90

package server

import (
	"time"

	"github.com/jdfalk/audiobook-catalog/internal/catalog"
	"github.com/jdfalk/audiobook-catalog/internal/models"
	"github.com/jdfalk/audiobook-catalog/internal/query"
)

// ListResponse provides a consistent format for paginated list responses
type ListResponse struct {
	Items  any `json:"items"`
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
	// Suggestions holds near-miss series keys when a series filter matched nothing
	Suggestions []string `json:"suggestions,omitempty"`
}

// ItemResponse provides a consistent format for single item responses
type ItemResponse struct {
	Data any `json:"data"`
}

// DeleteResponse provides a consistent format for deletion responses
type DeleteResponse struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// PaginationParams holds common pagination parameters
type PaginationParams struct {
	Limit  int
	Offset int
	Search string
}

// NewListResponse creates a new ListResponse with pagination info
func NewListResponse(items any, count, total int, page PaginationParams) *ListResponse {
	return &ListResponse{
		Items:  items,
		Count:  count,
		Limit:  page.Limit,
		Offset: page.Offset,
		Total:  total,
	}
}

// CreateBookRequest is the POST body for a hand-entered record
type CreateBookRequest struct {
	Path           string `json:"path" binding:"required"`
	Kind           string `json:"kind"`
	Title          string `json:"title"`
	Author         string `json:"author"`
	Narrator       string `json:"narrator"`
	Series         string `json:"series"`
	SeriesPosition string `json:"series_position"`
}

// UpdateBookRequest is the PATCH body for a record's user fields
type UpdateBookRequest struct {
	Status          *string `json:"status"`
	BookRating      *int    `json:"book_rating"`
	ClearBookRating bool    `json:"clear_book_rating"`
	Tags            *string `json:"tags"`
	Notes           *string `json:"notes"`
}

// RateNarratorRequest sets or, with a null rating, clears one narrator rating
type RateNarratorRequest struct {
	Rating *int `json:"rating"`
}

// ScanRequest starts a synchronous scan
type ScanRequest struct {
	Root           string `json:"root"`
	Recursive      *bool  `json:"recursive"`
	MaxDepth       *int   `json:"max_depth"`
	SplitRootFiles *bool  `json:"split_root_files"`
}

// ScanResponse is the reviewable result of a scan
type ScanResponse struct {
	Root               string             `json:"root"`
	Candidates         []models.Candidate `json:"candidates"`
	ScannedDirectories int                `json:"scanned_directories"`
	PendingDecisions   int                `json:"pending_decisions"`
	Warnings           []string           `json:"warnings"`
}

// CommitRequest carries reviewed candidates back for reconciliation
type CommitRequest struct {
	Candidates []models.Candidate `json:"candidates"`
	FullRescan bool               `json:"full_rescan"`
	Root       string             `json:"root"`
}

// CommitResponse wraps the commit summary
type CommitResponse struct {
	Summary *catalog.Summary `json:"summary"`
}

// StatusResponse reports catalog totals and watcher state
type StatusResponse struct {
	Status       string         `json:"status"`
	DatabaseType string         `json:"database_type"`
	Overview     query.Overview `json:"overview"`
	Stale        bool           `json:"stale"`
	LastChange   *time.Time     `json:"last_change,omitempty"`
	Watching     bool           `json:"watching"`
}
