// Package uuid generates run identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates time-ordered UUIDv7 run IDs so runs sort by start time.
type Generator struct{}

// New creates a Generator.
func New() *Generator {
	return &Generator{}
}

// NewRunID returns a fresh UUIDv7.
func (Generator) NewRunID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generate run id: %w", err)
	}
	return id, nil
}
