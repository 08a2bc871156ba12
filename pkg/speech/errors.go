package speech

import (
	"errors"
	"fmt"
)

// Common speech errors.
var (
	// ErrUnknownProvider indicates a provider name outside the registry.
	ErrUnknownProvider = errors.New("unknown speech provider")

	// ErrProviderUnavailable indicates the provider's static dependencies
	// are unmet.
	ErrProviderUnavailable = errors.New("speech provider unavailable")

	// ErrNoProvider indicates no provider could be made runtime-available.
	ErrNoProvider = errors.New("no speech provider available")

	// ErrPipelineStall indicates the producer aborted because the playback
	// queue stayed full past the stall ceiling.
	ErrPipelineStall = errors.New("playback pipeline stalled")

	// ErrSpawnFailed indicates a pipeline worker failed to start.
	ErrSpawnFailed = errors.New("pipeline worker failed to start")
)

// Category classifies provider errors by how the pipeline must react.
type Category string

const (
	// CategoryCapability: static dependency absent. Excluded permanently at
	// probe time.
	CategoryCapability Category = "CAPABILITY_MISSING"

	// CategoryCredential: no usable secret. Provider is runtime-unavailable.
	CategoryCredential Category = "CREDENTIAL_MISSING"

	// CategoryAuth: the remote API rejected our credential. Cancels the
	// utterance and marks the provider runtime-unavailable.
	CategoryAuth Category = "AUTH_FAILED"

	// CategoryRateLimit: fatal for this utterance, no retry.
	CategoryRateLimit Category = "RATE_LIMITED"

	// CategoryTransient: batch-scoped, skip and continue.
	CategoryTransient Category = "TRANSIENT"

	// CategoryDevice: utterance-scoped, cancel and release the device.
	CategoryDevice Category = "DEVICE_FAILED"
)

// Error is a categorized provider error. Everything below the facade is
// absorbed and converted into either "skip and continue" or "cancel this
// utterance" based on the category.
type Error struct {
	Category Category
	Op       string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Category, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Category, e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a categorized error.
func NewError(cat Category, op, message string, cause error) *Error {
	return &Error{Category: cat, Op: op, Message: message, Cause: cause}
}

// CategoryOf extracts the category from err, defaulting to transient:
// an unclassified failure should cost one batch, not the utterance.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return CategoryTransient
}

// CancelsUtterance reports whether the category must stop the whole
// pipeline rather than skip one batch.
func (c Category) CancelsUtterance() bool {
	switch c {
	case CategoryAuth, CategoryRateLimit, CategoryDevice:
		return true
	default:
		return false
	}
}
