package intake

import "errors"

// Sentinel errors for every failure signal the lifecycle operations can
// return. Handlers map these to stable machine-readable kinds so clients can
// distinguish "retry safely" from "do not retry" without string matching.
var (
	ErrClinicNotFound   = errors.New("intake: clinic not found")
	ErrSessionNotFound  = errors.New("intake: session not found")
	ErrSessionNotActive = errors.New("intake: session is not active")
	// ErrSessionCompleted guards repeated CompleteSession calls.
	ErrSessionCompleted   = errors.New("intake: session already completed")
	ErrSessionNotComplete = errors.New("intake: session not completed yet")
	ErrRatingExists       = errors.New("intake: rating already exists")
	ErrEmptyMessage       = errors.New("intake: message must not be empty")
	ErrEmptyClinicCode    = errors.New("intake: clinic code must not be empty")
	ErrInvalidScore       = errors.New("intake: score must be between 1 and 5")
	ErrProviderFailure    = errors.New("intake: provider call failed")
	ErrProviderTimeout    = errors.New("intake: provider call timed out")
	ErrExtractionFailed   = errors.New("intake: anamnesis extraction failed")
	ErrSessionBusy        = errors.New("intake: session has another operation in flight")
)

// Kind is the wire-level error classification.
type Kind string

const (
	KindClinicNotFound      Kind = "clinic_not_found"
	KindSessionNotFound     Kind = "session_not_found"
	KindSessionNotActive    Kind = "session_not_active"
	KindSessionCompleted    Kind = "session_already_completed"
	KindSessionNotCompleted Kind = "session_not_completed"
	KindRatingExists        Kind = "rating_exists"
	KindValidation          Kind = "validation"
	KindProviderError       Kind = "provider_error"
	KindProviderTimeout     Kind = "provider_timeout"
	KindExtractionFailed    Kind = "extraction_failed"
	KindInternal            Kind = "internal"
)

// KindOf classifies an error returned by the engine.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrClinicNotFound):
		return KindClinicNotFound
	case errors.Is(err, ErrSessionNotFound):
		return KindSessionNotFound
	case errors.Is(err, ErrSessionNotActive):
		return KindSessionNotActive
	case errors.Is(err, ErrSessionCompleted):
		return KindSessionCompleted
	case errors.Is(err, ErrSessionNotComplete):
		return KindSessionNotCompleted
	case errors.Is(err, ErrRatingExists):
		return KindRatingExists
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrEmptyClinicCode), errors.Is(err, ErrInvalidScore):
		return KindValidation
	case errors.Is(err, ErrProviderTimeout), errors.Is(err, ErrSessionBusy):
		return KindProviderTimeout
	case errors.Is(err, ErrExtractionFailed):
		return KindExtractionFailed
	case errors.Is(err, ErrProviderFailure):
		return KindProviderError
	default:
		return KindInternal
	}
}

// Retryable reports whether a caller may safely repeat the same request.
// Provider faults and timeouts are transient; everything else requires the
// caller to change state or input first.
func (k Kind) Retryable() bool {
	switch k {
	case KindProviderError, KindProviderTimeout, KindExtractionFailed:
		return true
	default:
		return false
	}
}
