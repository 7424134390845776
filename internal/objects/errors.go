package objects

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by LoadObject when the backend has no object at the key.
	ErrNotFound = errors.New("object not found")
	// ErrTimeout is returned when a backend call exceeds its configured timeout.
	ErrTimeout = errors.New("storage operation timed out")
	// ErrUnknownType is returned by Registry.Lookup.
	ErrUnknownType = errors.New("unknown object type")
	// ErrInvalidKey is returned for logical keys that cannot map to exactly one object.
	ErrInvalidKey = errors.New("invalid object key")
)

// DeserializationError reports a payload that does not decode into the type's schema.
type DeserializationError struct {
	Key string
	Err error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("unable to deserialize object (key: %s): %v", e.Key, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }
