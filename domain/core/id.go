package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	ForecastID  ID
	DatasetName ID
)

func (id ForecastID) String() string  { return ID(id).String() }
func (id DatasetName) String() string { return ID(id).String() }

// NewForecastID creates an identifier for one forecast call
func NewForecastID() ForecastID {
	return ForecastID(NewID())
}

// ParseDatasetName parses a string into DatasetName
func ParseDatasetName(s string) (DatasetName, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("dataset name cannot be empty")
	}
	return DatasetName(strings.TrimSpace(s)), nil
}
