package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/beetrack-client/internal/errors"
)

// APIError is returned for every non-2xx response
type APIError struct {
	Status    int
	Detail    string
	Method    string
	Path      string
	RequestID string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is lets callers match on the status class with the shared sentinels
func (e *APIError) Is(target error) bool {
	switch target {
	case errors.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case errors.ErrForbidden:
		return e.Status == http.StatusForbidden
	case errors.ErrNotFound:
		return e.Status == http.StatusNotFound
	case errors.ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case errors.ErrInternal:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}

// StatusCode extracts the HTTP status from err, or 0 when err carries none
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type validationIssue struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// parseDetail reads the {"detail": ...} body the backend uses for errors.
// detail is a plain string for handled errors and a list of issues for
// request validation failures.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}

	var issues []validationIssue
	if err := json.Unmarshal(envelope.Detail, &issues); err == nil {
		parts := make([]string, 0, len(issues))
		for _, issue := range issues {
			field := ""
			if n := len(issue.Loc); n > 0 {
				field = fmt.Sprint(issue.Loc[n-1])
			}
			if field != "" {
				parts = append(parts, field+": "+issue.Msg)
			} else {
				parts = append(parts, issue.Msg)
			}
		}
		return strings.Join(parts, "; ")
	}

	return string(envelope.Detail)
}
