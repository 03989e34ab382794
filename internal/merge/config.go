package merge

import (
	"errors"
	"fmt"
)

// ErrConfiguration indicates the engine was constructed with an incomplete
// column mapping. It is a precondition failure: the run aborts before any
// rows are processed.
var ErrConfiguration = errors.New("merge: invalid configuration")

// Config maps worksheet columns to the engine's semantic fields and sets
// the active-status predicate. The mapping is explicit and validated once
// at construction; there is no global fallback.
type Config struct {
	// StatusColumn is the header of the column holding the subscription
	// status (required).
	StatusColumn string

	// EmailColumn is the header of the column holding the email address
	// that serves as the identity key (required).
	EmailColumn string

	// NameColumn is the header of the column holding the display name
	// (required; values may be empty and are then backfilled).
	NameColumn string

	// ActiveStatusValue is the status value that keeps a row, compared
	// case-insensitively. Default: "Active".
	ActiveStatusValue string
}

// DefaultActiveStatus is used when Config.ActiveStatusValue is empty.
const DefaultActiveStatus = "Active"

// Validate checks that the required column mappings are present.
func (c Config) Validate() error {
	if c.StatusColumn == "" {
		return fmt.Errorf("%w: status column not specified", ErrConfiguration)
	}
	if c.EmailColumn == "" {
		return fmt.Errorf("%w: email column not specified", ErrConfiguration)
	}
	if c.NameColumn == "" {
		return fmt.Errorf("%w: name column not specified", ErrConfiguration)
	}
	return nil
}

// withDefaults returns a copy of the config with defaults applied.
func (c Config) withDefaults() Config {
	if c.ActiveStatusValue == "" {
		c.ActiveStatusValue = DefaultActiveStatus
	}
	return c
}
