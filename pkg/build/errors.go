package build

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/teselagen-client/pkg/client"
)

// ErrMissingID is returned when a record id argument is empty.
var ErrMissingID = errors.New("id is required")

// NotFoundError is returned when neither the direct fetch nor the
// bruteforce scan produced the record.
type NotFoundError struct {
	// Kind is "aliquot" or "sample"
	Kind string
	ID   string

	// Cause is the error of the direct fetch, if any
	Cause error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", capitalize(e.Kind), e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, client.ErrNotFound) hold for every NotFoundError,
// whatever the direct fetch failed with.
func (e *NotFoundError) Is(target error) bool {
	return target == client.ErrNotFound
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
