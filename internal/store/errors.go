package store

import "errors"

// ErrNotFound is returned when a point lookup matches no record.
var ErrNotFound = errors.New("record not found")
