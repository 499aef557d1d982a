package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/tasksync/internal/checklist"
	"github.com/roach88/tasksync/internal/parse"
)

// EngineError is an error detected while reconciling or linking.
type EngineError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Artifact is the artifact the operation was about, if any.
	Artifact checklist.ArtifactRef

	// EntryID identifies the affected entry, if one was resolved.
	EntryID string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeParseFailed indicates the content could not be parsed at all.
	ErrCodeParseFailed ErrorCode = "PARSE_FAILED"

	// ErrCodeLinkConflict indicates an artifact is already linked to a
	// different entry and the link policy forbids moving it.
	ErrCodeLinkConflict ErrorCode = "LINK_CONFLICT"

	// ErrCodeUnknownSourceType indicates a source type outside the closed set.
	ErrCodeUnknownSourceType ErrorCode = "UNKNOWN_SOURCE_TYPE"

	// ErrCodeInvalidArtifact indicates a malformed artifact reference or
	// link request.
	ErrCodeInvalidArtifact ErrorCode = "INVALID_ARTIFACT"
)

func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Artifact.Type != "" {
		msg += fmt.Sprintf(" (artifact=%s", e.Artifact)
		if e.EntryID != "" {
			msg += ", entry=" + e.EntryID
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// IsLinkConflict returns true if err is a link conflict.
// Uses errors.As to handle wrapped errors.
func IsLinkConflict(err error) bool {
	return hasCode(err, ErrCodeLinkConflict)
}

// IsParseFailure returns true if err came from a parse that failed outright.
func IsParseFailure(err error) bool {
	return hasCode(err, ErrCodeParseFailed) || parse.IsParseError(err)
}

// CodeOf returns the code of the first EngineError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func newParseError(ref checklist.ArtifactRef, err error) *EngineError {
	return &EngineError{
		Code:     ErrCodeParseFailed,
		Message:  "content could not be parsed",
		Artifact: ref,
		Err:      err,
	}
}

func newLinkConflict(ref checklist.ArtifactRef, owner, target string) *EngineError {
	return &EngineError{
		Code:     ErrCodeLinkConflict,
		Message:  fmt.Sprintf("already linked to entry %s", owner),
		Artifact: ref,
		EntryID:  target,
	}
}

func newInvalidArtifact(ref checklist.ArtifactRef, msg string) *EngineError {
	return &EngineError{Code: ErrCodeInvalidArtifact, Message: msg, Artifact: ref}
}

// checkRef validates an artifact reference before any lookup.
func checkRef(t checklist.SourceType, artifactID string) error {
	ref := checklist.ArtifactRef{Type: t, ID: artifactID}
	if !t.Valid() {
		return &EngineError{
			Code:    ErrCodeUnknownSourceType,
			Message: fmt.Sprintf("unknown source type %q", t),
		}
	}
	if artifactID == "" {
		return newInvalidArtifact(ref, "artifact id is empty")
	}
	return nil
}
