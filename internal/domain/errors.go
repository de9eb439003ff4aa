package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// FetchError reports a failure reaching a source page or image.
// StatusCode is zero for network and timeout failures.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s failed", e.URL)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Timeout reports whether the fetch failed because its deadline expired.
func (e *FetchError) Timeout() bool {
	if e.Err == nil {
		return false
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// ErrExtraction is matched by every ExtractionError via errors.Is.
var ErrExtraction = errors.New("could not extract recipe data from this URL")

// ExtractionError reports that neither extractor produced a candidate.
type ExtractionError struct {
	URL string
}

func (e *ExtractionError) Error() string { return ErrExtraction.Error() }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// FieldViolation is one failed schema rule on a draft field.
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError reports a draft that failed schema checks.
type ValidationError struct {
	Violations []FieldViolation `json:"violations"`
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "recipe validation failed"
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Message
	}
	return "recipe validation failed: " + strings.Join(parts, "; ")
}

// HasField reports whether any violation names field.
func (e *ValidationError) HasField(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

// PersistenceError reports a failed storage write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
