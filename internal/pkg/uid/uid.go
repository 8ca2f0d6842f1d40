// Package uid generates identifiers: time-ordered UUID strings for request and
// message ids, and snowflake numbers for in-memory records.
package uid

// StringID generates opaque string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates unique, roughly time-ordered integers.
type NumberID interface {
	Generate() int64
}
