package patient

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("patient not found")

// ValidationError reports a missing or malformed patient field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
