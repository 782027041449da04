package tracking

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAuthentication = errors.New("authentication error")
	ErrConnectivity   = errors.New("connectivity error")
	ErrNotFound       = errors.New("not found")
	ErrDuplicate      = errors.New("duplicate entity")
	ErrUpload         = errors.New("upload error")
	ErrPermission     = errors.New("permission denied")
	ErrValidation     = errors.New("validation error")
)

// Wrap builds an error message that includes entity and operation context
// while tagging it with the provided marker for later classification. The
// marker should be one of the exported sentinel errors above.
func Wrap(marker error, entity, operation, message string, err error) error {
	detail := buildDetail(entity, operation, message)
	if marker == nil {
		marker = ErrConnectivity
	}
	if err != nil {
		if errors.Is(err, marker) {
			return fmt.Errorf("%s: %w", detail, err)
		}
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsConnectionLevel reports whether err should abort the current operation
// instead of being recorded against a single entity.
func IsConnectionLevel(err error) bool {
	return errors.Is(err, ErrAuthentication) || errors.Is(err, ErrConnectivity)
}

// Kind returns a short label for the marker carried by err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrConnectivity):
		return "connectivity"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrUpload):
		return "upload"
	case errors.Is(err, ErrPermission):
		return "permission"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "unknown"
	}
}

func buildDetail(entity, operation, message string) string {
	parts := make([]string, 0, 3)
	if entity = strings.TrimSpace(entity); entity != "" {
		parts = append(parts, entity)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "tracking failure"
	}
	return strings.Join(parts, ": ")
}
