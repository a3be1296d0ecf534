package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/joywufn/portfolio-insight/backend/internal/contracts"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// Envelope is the body of every JSON response
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type userKey struct{}

// WithUser stores the acting user name in ctx
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom returns the acting user stored by WithUser
func UserFrom(ctx context.Context) string {
	user, _ := ctx.Value(userKey{}).(string)
	return user
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, Envelope{Success: true, Data: data, Timestamp: time.Now()})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Envelope{Success: false, Error: message, Timestamp: time.Now()})
}

// respondServiceError maps repository and validation errors to statuses
func respondServiceError(w http.ResponseWriter, log *logger.Logger, err error, action string) {
	switch {
	case errors.Is(err, contracts.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contracts.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, contracts.ErrDuplicate):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled):
		respondError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		log.WithError(err).Error("Failed to " + action)
		respondError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

// decodeJSON reads the request body into dst
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", contracts.ErrInvalidInput, err)
	}
	return nil
}

// pathID parses a positive integer path variable
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", contracts.ErrInvalidInput, name)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func invalidInput(message string) error {
	return fmt.Errorf("%w: %s", contracts.ErrInvalidInput, message)
}
