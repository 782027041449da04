package ftrack

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"shotbridge/internal/tracking"
)

// APIError is the exception payload returned by the server.
type APIError struct {
	Exception string `json:"exception"`
	Content   string `json:"content"`
	ErrorCode string `json:"error_code,omitempty"`
}

func (e *APIError) Error() string {
	if e.Content == "" {
		return e.Exception
	}
	return fmt.Sprintf("%s: %s", e.Exception, e.Content)
}

func (e *APIError) marker() error {
	text := strings.ToLower(e.Exception + " " + e.Content + " " + e.ErrorCode)
	switch {
	case containsAny(text, "invalidcredentials", "api key", "api_key", "authenticat", "not authorized to access"):
		return tracking.ErrAuthentication
	case containsAny(text, "permission", "not allowed", "forbidden"):
		return tracking.ErrPermission
	case containsAny(text, "duplicate", "integrityerror", "unique constraint", "already exists"):
		return tracking.ErrDuplicate
	case containsAny(text, "noresultfound", "not found", "does not exist"):
		return tracking.ErrNotFound
	default:
		return tracking.ErrValidation
	}
}

func containsAny(text string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

func decodeAPIError(body []byte) *APIError {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Exception == "" {
		return nil
	}
	return &apiErr
}

type statusFailure struct {
	marker  error
	message string
	cause   error
}

// statusError classifies non-2xx responses; nil means success.
func statusError(status int, body []byte) *statusFailure {
	apiErr := decodeAPIError(body)
	var cause error
	if apiErr != nil {
		cause = apiErr
	}
	message := fmt.Sprintf("server returned %d", status)
	switch {
	case status < http.StatusMultipleChoices:
		return nil
	case status == http.StatusUnauthorized:
		return &statusFailure{tracking.ErrAuthentication, message, cause}
	case status == http.StatusForbidden:
		if apiErr != nil && apiErr.marker() == tracking.ErrAuthentication {
			return &statusFailure{tracking.ErrAuthentication, message, cause}
		}
		return &statusFailure{tracking.ErrPermission, message, cause}
	case status == http.StatusNotFound && apiErr == nil:
		return &statusFailure{tracking.ErrConnectivity, "api endpoint not found (check server_url)", nil}
	case status >= http.StatusInternalServerError:
		if apiErr == nil {
			message += ": " + snippet(body)
		}
		return &statusFailure{tracking.ErrConnectivity, message, cause}
	case apiErr != nil:
		return &statusFailure{apiErr.marker(), message, cause}
	default:
		return &statusFailure{tracking.ErrValidation, message + ": " + snippet(body), nil}
	}
}

func snippet(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200] + "…"
	}
	return text
}
