package riskassessment

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("risk assessment not found")
	ErrPatientNotFound = errors.New("patient not found")
)

// ValidationError reports a rejected form value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
