package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	var cooldown *service.CooldownError
	if errors.As(err, &cooldown) {
		seconds := int(cooldown.Remaining.Seconds())
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error:             err.Error(),
			RetryAfterSeconds: seconds,
		})
		return
	}

	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// idParam parses a numeric path parameter, responding 400 on failure.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name})
		return 0, false
	}
	return id, true
}

// queryInt64 parses a required numeric query parameter.
func queryInt64(c *gin.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Query(name), 10, 64)
}

// queryIntDefault parses an optional numeric query parameter.
func queryIntDefault(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidClientID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidOrderID),
		errors.Is(err, service.ErrInvalidAddress),
		errors.Is(err, service.ErrInvalidPassengers),
		errors.Is(err, service.ErrInvalidArrivalMinutes),
		errors.Is(err, service.ErrInvalidRating):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrActiveOrderExists),
		errors.Is(err, service.ErrOrderClosed),
		errors.Is(err, service.ErrAlreadyTerminal),
		errors.Is(err, service.ErrDuplicateBid),
		errors.Is(err, service.ErrDriverBusy),
		errors.Is(err, service.ErrWrongState),
		errors.Is(err, service.ErrOrderNotCompleted),
		errors.Is(err, service.ErrAlreadyRated):
		return http.StatusConflict

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrNotOwner),
		errors.Is(err, service.ErrNotAssigned),
		errors.Is(err, service.ErrOwnOrder),
		errors.Is(err, service.ErrNotParticipant):
		return http.StatusForbidden

	// Selecting a driver that never bid
	case errors.Is(err, service.ErrNoBidFromDriver):
		return http.StatusUnprocessableEntity

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
