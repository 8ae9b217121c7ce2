// This file defines how cache entries expire over time.

package expiration

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidLifetime is returned when a policy carries a non-positive lifetime.
var ErrInvalidLifetime = errors.New("expiration: lifetime must be positive")

/*
Policy describes when a cache entry stops being valid.

Two flavours exist:
  - absolute: the deadline is fixed at creation (created + Lifetime) and never moves
  - sliding:  the deadline is pushed to now + Lifetime on every successful read

Policy is a small value type. It is copied into every entry, so an entry never
observes a policy change made after it was written.
*/
type Policy struct {

	// Sliding selects sliding expiration. When false the policy is absolute.
	Sliding bool

	// Lifetime is how long the entry stays valid after creation (absolute)
	// or after its last access (sliding). Must be > 0.
	Lifetime time.Duration
}

// Absolute returns a policy that expires lifetime after the entry is written.
func Absolute(lifetime time.Duration) Policy {
	return Policy{Lifetime: lifetime}
}

// Until returns an absolute policy whose lifetime ends at deadline.
// A deadline in the past yields a policy that fails validation.
func Until(deadline time.Time) Policy {
	return Policy{Lifetime: time.Until(deadline)}
}

// Validate reports whether the policy can be used for a write.
func (p Policy) Validate() error {
	if p.Lifetime <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidLifetime, p.Lifetime)
	}
	return nil
}

// Deadline returns the first deadline of an entry written at now.
func (p Policy) Deadline(now time.Time) time.Time {
	return now.Add(p.Lifetime)
}

// String implements fmt.Stringer, used in log fields.
func (p Policy) String() string {
	if p.Sliding {
		return "sliding(" + p.Lifetime.String() + ")"
	}
	return "absolute(" + p.Lifetime.String() + ")"
}
