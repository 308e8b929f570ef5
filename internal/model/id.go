package model

import "github.com/oklog/ulid/v2"

// NewID generates a new ULID string for batches and work items.
func NewID() string {
	return ulid.Make().String()
}
