package domain

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrNetwork          = errors.New("network error")
	ErrNotFound         = errors.New("not found")
	ErrLeadNotFound     = fmt.Errorf("lead %w", ErrNotFound)
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrStaleResponse    = errors.New("response superseded by a newer request")
	ErrPageOutOfRange   = errors.New("page out of range")
	ErrNoSession        = errors.New("no persisted session")
	ErrCorruptSession   = errors.New("persisted session is corrupt")
)

// ValidationError carries field-scoped messages produced before any request is sent.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, "; ")
}

// Is lets errors.Is(err, ErrValidation) match any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PageRangeError reports a list page past the last page of the result.
// Callers step back by listing LastPage instead.
type PageRangeError struct {
	Page     int
	LastPage int
}

func (e *PageRangeError) Error() string {
	return fmt.Sprintf("%s: %d not in [1, %d]", ErrPageOutOfRange, e.Page, e.LastPage)
}

// Is lets errors.Is(err, ErrPageOutOfRange) match any *PageRangeError.
func (e *PageRangeError) Is(target error) bool {
	return target == ErrPageOutOfRange
}

// APIError is a response the backend rejected with a 4xx/5xx status.
// Message is the server's own text and is shown to the user verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// Is maps 404 to ErrNotFound and 401 to ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

// FailureKind tags a failed operation for observers.
type FailureKind string

const (
	FailureNone            FailureKind = ""
	FailureValidation      FailureKind = "validation"
	FailureNetwork         FailureKind = "network"
	FailureServer          FailureKind = "server"
	FailureNotFound        FailureKind = "not_found"
	FailureUnauthenticated FailureKind = "unauthenticated"
	FailureStale           FailureKind = "stale"
	FailureUnknown         FailureKind = "unknown"
)

// Classify maps an error onto the failure taxonomy. Not-found wins over the
// generic server classification so single-record views can branch on it.
func Classify(err error) FailureKind {
	var apiErr *APIError
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrValidation):
		return FailureValidation
	case errors.Is(err, ErrNotFound):
		return FailureNotFound
	case errors.Is(err, ErrStaleResponse):
		return FailureStale
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, ErrUnauthorized):
		return FailureUnauthenticated
	case errors.Is(err, ErrNetwork):
		return FailureNetwork
	case errors.As(err, &apiErr):
		return FailureServer
	default:
		return FailureUnknown
	}
}

// UserMessage renders err for a transient notification.
func UserMessage(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, ErrLeadNotFound):
		return "Lead not found"
	case errors.Is(err, ErrNetwork):
		return "Network error, please try again"
	case errors.Is(err, ErrNotAuthenticated):
		return "Please log in first"
	default:
		return err.Error()
	}
}
