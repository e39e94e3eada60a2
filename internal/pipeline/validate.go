// Copyright 2026 The Auditor Authors
// SPDX-License-Identifier: MIT

package pipeline

import (
	"fmt"
	"strings"

	"github.com/athola/auditor/internal/model"
)

// ValidationError describes a single validation failure for a piece of
// Evidence.
type ValidationError struct {
	// Field is the struct field that failed validation.
	Field string

	// Message describes what went wrong.
	Message string
}

// Error implements the error interface.
func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidateEvidence checks a piece of Evidence for validity and returns all
// validation errors found. An empty slice means the Evidence is valid.
func ValidateEvidence(e model.Evidence) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(e.ArtifactID) == "" {
		errs = append(errs, ValidationError{
			Field:   "ArtifactID",
			Message: "must not be empty",
		})
	}

	if strings.TrimSpace(string(e.Source)) == "" {
		errs = append(errs, ValidationError{
			Field:   "Source",
			Message: "must not be empty",
		})
	}

	if strings.TrimSpace(e.SignalKind) == "" {
		errs = append(errs, ValidationError{
			Field:   "SignalKind",
			Message: "must not be empty",
		})
	}

	if e.Weight < 0.0 || e.Weight > 1.0 {
		errs = append(errs, ValidationError{
			Field:   "Weight",
			Message: fmt.Sprintf("must be between 0.0 and 1.0, got %v", e.Weight),
		})
	}

	if e.Confidence < 0.0 || e.Confidence > 1.0 {
		errs = append(errs, ValidationError{
			Field:   "Confidence",
			Message: fmt.Sprintf("must be between 0.0 and 1.0, got %v", e.Confidence),
		})
	}

	return errs
}
