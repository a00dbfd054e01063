// file: internal/server/error_handler.go
// version: 2.0.0
// guid: 61e64fec-4e88-4e80-8e4d-20cd49d4c2f7

package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/audiobook-catalog/internal/catalog"
	"github.com/jdfalk/audiobook-catalog/internal/database"
	"github.com/jdfalk/audiobook-catalog/internal/models"
	"github.com/jdfalk/audiobook-catalog/internal/scanner"
)

// ErrorResponse provides a consistent error response format
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Status int    `json:"status"`
	// Paths lists the candidates that blocked a commit
	Paths []string `json:"paths,omitempty"`
}

// RespondWithError sends a standardized error response and logs the error
func RespondWithError(c *gin.Context, statusCode int, message string, code string) {
	logErrorWithContext(c, statusCode, message)

	c.JSON(statusCode, ErrorResponse{
		Error:  message,
		Code:   code,
		Status: statusCode,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error response
func RespondWithBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, message, "BAD_REQUEST")
}

// RespondWithValidationError sends a 400 error for validation failures
func RespondWithValidationError(c *gin.Context, field string, reason string) {
	message := "validation error: " + field
	if reason != "" {
		message = message + " (" + reason + ")"
	}
	RespondWithError(c, http.StatusBadRequest, message, "VALIDATION_ERROR")
}

// RespondWithNotFound sends a 404 Not Found error response
func RespondWithNotFound(c *gin.Context, resourceType string, id string) {
	message := resourceType + " not found"
	if id != "" {
		message = message + ": " + id
	}
	RespondWithError(c, http.StatusNotFound, message, "NOT_FOUND")
}

// RespondWithInternalError sends a 500 Internal Server Error response
func RespondWithInternalError(c *gin.Context, message string) {
	RespondWithError(c, http.StatusInternalServerError, message, "INTERNAL_ERROR")
}

// RespondWithPendingDecisions sends a 409 naming the undecided candidates
func RespondWithPendingDecisions(c *gin.Context, pending *catalog.PendingDecisionError) {
	message := catalog.ErrPendingDecision.Error()
	logErrorWithContext(c, http.StatusConflict, message)
	c.JSON(http.StatusConflict, ErrorResponse{
		Error:  message,
		Code:   "PENDING_DECISION",
		Status: http.StatusConflict,
		Paths:  pending.Paths,
	})
}

// RespondWithOK sends a 200 OK response
func RespondWithOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, ItemResponse{Data: data})
}

// RespondWithNoContent sends a 204 No Content response
func RespondWithNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RespondWithDomainError maps catalog and store errors onto status codes
func RespondWithDomainError(c *gin.Context, id string, err error) {
	var pending *catalog.PendingDecisionError
	switch {
	case errors.As(err, &pending):
		RespondWithPendingDecisions(c, pending)
	case errors.Is(err, database.ErrNotFound):
		RespondWithNotFound(c, "record", id)
	case errors.Is(err, database.ErrDuplicatePath):
		RespondWithError(c, http.StatusConflict, err.Error(), "DUPLICATE_PATH")
	case errors.Is(err, catalog.ErrInvalidEntry):
		RespondWithValidationError(c, "entry", err.Error())
	case errors.Is(err, catalog.ErrInvalidRating):
		RespondWithValidationError(c, "rating", err.Error())
	case errors.Is(err, models.ErrInvalidStatus):
		RespondWithValidationError(c, "status", err.Error())
	case errors.Is(err, catalog.ErrUnknownNarrator):
		RespondWithValidationError(c, "narrator", err.Error())
	case errors.Is(err, scanner.ErrInvalidRoot):
		RespondWithValidationError(c, "root", err.Error())
	default:
		RespondWithInternalError(c, err.Error())
	}
}

// logErrorWithContext logs an error with request context for debugging
func logErrorWithContext(c *gin.Context, statusCode int, message string) {
	logLevel := "WARN"
	if statusCode >= 500 {
		logLevel = "ERROR"
	}
	log.Printf("[%s] server: %s %s %d - %s (from %s)", logLevel,
		c.Request.Method, c.Request.URL.Path, statusCode, message, c.ClientIP())
}

// HandleBindError handles JSON binding errors with a consistent response
func HandleBindError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()
	if strings.Contains(errMsg, "required") || strings.Contains(errMsg, "binding") {
		RespondWithValidationError(c, "request body", errMsg)
	} else {
		RespondWithBadRequest(c, "invalid request: "+errMsg)
	}
	return true
}

// ParseQueryInt parses an integer query parameter with a default value
func ParseQueryInt(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.DefaultQuery(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// ParseQueryList splits a comma separated query parameter, dropping blanks
func ParseQueryList(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ParsePaginationParams parses common pagination parameters from query string
func ParsePaginationParams(c *gin.Context) PaginationParams {
	limit := ParseQueryInt(c, "limit", 0)
	offset := ParseQueryInt(c, "offset", 0)

	// 0 means everything
	if limit < 0 {
		limit = 0
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return PaginationParams{Limit: limit, Offset: offset, Search: c.Query("search")}
}
