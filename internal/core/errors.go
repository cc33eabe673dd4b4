package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
	ErrReserved = errors.New("reserved dataset id")
)

// Backing stores named in StoreError.
const (
	SourceGraph = "Neo4j"
	SourceIndex = "Weaviate"
	SourceFiles = "filesystem"
)

// StoreError tags a failure with the backing store it came from.
type StoreError struct {
	Source string
	Op     string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func graphError(op string, err error) error {
	return &StoreError{Source: SourceGraph, Op: op, Err: err}
}
