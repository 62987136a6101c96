// Package id provides unique identifier generators.
//
// Two formats are supported:
//   - UUID v4: random, widely interoperable
//   - ULID: time-ordered, compact, suited for query and document IDs
package id

import "errors"

var (
	// ErrInvalidUUID indicates the string is not a valid UUID.
	ErrInvalidUUID = errors.New("id: invalid UUID")

	// ErrInvalidULID indicates the string is not a valid ULID.
	ErrInvalidULID = errors.New("id: invalid ULID")
)

// Type identifies an ID format.
type Type string

const (
	// TypeUUID selects UUID v4 generation.
	TypeUUID Type = "uuid"
	// TypeULID selects ULID generation.
	TypeULID Type = "ulid"
)

// 包级默认生成器，供便捷函数使用。
var (
	defaultUUID = NewUUIDGenerator()
	defaultULID = NewULIDGenerator()
)

// NewUUID generates a UUID v4 string using the default generator.
func NewUUID() string {
	return defaultUUID.Generate()
}

// NewULID generates a ULID string using the default generator.
func NewULID() string {
	return defaultULID.Generate()
}

// New generates an ID of the given type. Unknown types fall back to ULID.
func New(t Type) string {
	switch t {
	case TypeUUID:
		return NewUUID()
	default:
		return NewULID()
	}
}
