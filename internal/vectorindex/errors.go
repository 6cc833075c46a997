// Package vectorindex stores chunk embeddings in a flat matrix and answers exact nearest-neighbour queries.
//
// Rows of the matrix and entries of the chunk list always pair up one to one. Deleting a domain rebuilds
// the whole matrix from the surviving chunks, which costs O(n·d) and is the scalability limit of this index.
package vectorindex

import "fmt"

// ValidationError is returned when input would break the index invariant. The index is left unchanged.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("vector index validation error: %s", e.Message)
}

// PersistenceError represents a failure to write or read a snapshot.
type PersistenceError struct {
	Path    string
	Message string
	Cause   error
}

func (e *PersistenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("vector index persistence error for %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("vector index persistence error for %s: %s", e.Path, e.Message)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}
