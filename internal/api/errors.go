package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"coin-ledger/internal/auth"
	"coin-ledger/internal/storage"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrMissingFields),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidPassword):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrAccountNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicateContact):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the client-facing message. Internal errors are not echoed.
func messageFor(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		return "Missing fields"
	case errors.Is(err, auth.ErrPasswordTooLong):
		return "Password too long"
	case errors.Is(err, storage.ErrDuplicateContact):
		return "Email already registered"
	case errors.Is(err, auth.ErrAccountNotFound):
		return "User not found"
	case errors.Is(err, auth.ErrInvalidPassword):
		return "Invalid password"
	case errors.Is(err, storage.ErrIdentityMismatch):
		return "Ledger integrity violation"
	}
	if code := statusFor(err); code != http.StatusInternalServerError {
		return http.StatusText(code)
	}
	return "Server error"
}

func (s *Server) writeError(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("request_id", c.GetString(requestIDKey)).Error("request failed")
	}
	c.AbortWithStatusJSON(code, gin.H{"error": messageFor(err)})
}
