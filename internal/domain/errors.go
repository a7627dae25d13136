package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery signals a missing search query.
	ErrEmptyQuery = errors.New("query is required")
	// ErrSemanticNotSupported signals that the backend rejected a semantic query.
	ErrSemanticNotSupported = errors.New("semantic queries not supported by backend")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrPlannerUnavailable signals that the query planner could not be reached.
	ErrPlannerUnavailable = errors.New("query planner unavailable")
	// ErrMalformedPlan signals that the planner returned unusable output.
	ErrMalformedPlan = errors.New("malformed query plan")
	// ErrTextSearchFailed signals a failure of the mandatory text retrieval branch.
	ErrTextSearchFailed = errors.New("text search failed")
)

// Retrieval branch names used in BranchError.
const (
	BranchText   = "text"
	BranchVector = "vector"
)

// BranchError wraps a failure of one retrieval branch so the coordinator can
// decide recoverability by kind instead of inspecting error strings. The
// vector branch is supplementary and its BranchError is absorbed; a text
// BranchError is fatal for the request.
type BranchError struct {
	Branch string
	Err    error
}

func (e *BranchError) Error() string {
	return fmt.Sprintf("%s branch: %v", e.Branch, e.Err)
}

func (e *BranchError) Unwrap() error { return e.Err }

// NewBranchError creates a branch failure error.
func NewBranchError(branch string, err error) error {
	return &BranchError{Branch: branch, Err: err}
}
