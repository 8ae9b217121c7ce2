package cache

import "errors"

var (
	// ErrInvalidScanFrequency is returned by New for a non-positive scan frequency.
	ErrInvalidScanFrequency = errors.New("cache: scan frequency must be positive")

	// ErrNilKey is returned when a key (or tag) is a nil interface value.
	ErrNilKey = errors.New("cache: key must not be nil")

	// ErrNilProducer is returned when a compute call has no producer.
	ErrNilProducer = errors.New("cache: producer must not be nil")

	// ErrTypeMismatch is returned by the typed helpers when the cached value
	// does not have the requested type.
	ErrTypeMismatch = errors.New("cache: cached value has unexpected type")
)
