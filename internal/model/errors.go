package model

import (
	"fmt"
	"strings"
)

// DataError reports malformed or insufficient training data. Training aborts
// and no artifact is written.
type DataError struct {
	Reason string
	Err    error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return "data error: " + e.Reason + ": " + e.Err.Error()
	}
	return "data error: " + e.Reason
}

func (e *DataError) Unwrap() error { return e.Err }

// ArtifactError reports a missing, unreadable or inconsistent model file.
type ArtifactError struct {
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("artifact %s: %v", e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// SchemaMismatchError reports a prediction row whose columns do not line up
// with the ones the artifact was fitted on.
type SchemaMismatchError struct {
	Missing    []string
	Unexpected []string
	Invalid    []string
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Unexpected, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return "schema mismatch: " + strings.Join(parts, "; ")
}

func (e *SchemaMismatchError) empty() bool {
	return len(e.Missing) == 0 && len(e.Unexpected) == 0 && len(e.Invalid) == 0
}
