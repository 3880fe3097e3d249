package types

import "errors"

// Error kinds. Every failure surfaced by the lifecycle components matches
// exactly one of these with errors.Is; transport failures additionally match
// ErrTransport.
var (
	// ErrInvalidInput is a client-side precondition failure. No call is issued.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthenticated is returned when no session has been established.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNothingToSave is returned when save is attempted with no held bundle.
	ErrNothingToSave = errors.New("nothing to save")

	// ErrAlreadyPublishing rejects a re-entrant publish for the same campaign and platform.
	ErrAlreadyPublishing = errors.New("already publishing")

	// ErrOnboardingFailed wraps a failed onboarding call.
	ErrOnboardingFailed = errors.New("onboarding failed")

	// ErrGenerationFailed wraps a failed generation call.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrPersistenceFailed wraps a failed save or list call.
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrPublishFailed wraps a failed publish call.
	ErrPublishFailed = errors.New("publish failed")

	// ErrTransport marks a failure where no HTTP response was obtained.
	ErrTransport = errors.New("transport failure")

	// ErrSuperseded is returned to a generate call whose result was dropped
	// because a later call had been initiated.
	ErrSuperseded = errors.New("superseded by a newer generate request")

	// ErrGenerationInFlight rejects an overlapping generate in strict mode.
	ErrGenerationInFlight = errors.New("generation already in flight")
)

// Generic messages used when a service response carries no message.
const (
	FallbackOnboarding  = "Onboarding failed"
	FallbackGeneration  = "Failed to generate content"
	FallbackPersistence = "Failed to save campaign"
	FallbackList        = "Failed to load campaigns"
	FallbackPublish     = "Publish failed"
)

// Error is a lifecycle failure carrying a user-facing message.
type Error struct {
	Kind    error  // one of the Err* kinds above
	Message string // rendered to the user as-is
	Status  int    // HTTP status, 0 when no response was obtained
	Err     error  // underlying cause, may be nil
}

// Fail builds an Error of the given kind.
func Fail(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	return "unknown error"
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Transport reports whether no HTTP response was obtained.
func (e *Error) Transport() bool {
	return errors.Is(e, ErrTransport)
}

// Rekind returns a copy of err under a new kind, keeping message, status and cause.
// A nil or empty message is replaced by fallback. Errors that are not *Error
// become the cause of the new one.
func Rekind(err error, kind error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		out := &Error{Kind: kind, Message: e.Message, Status: e.Status, Err: e.Err}
		if e.Kind != nil && e.Kind != kind {
			out.Err = errors.Join(e.Kind, e.Err)
		}
		if out.Message == "" {
			out.Message = fallback
		}
		return out
	}
	return &Error{Kind: kind, Message: fallback, Err: err}
}

// KindOf returns the taxonomy kind of err, or nil when err is not classified.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrInvalidInput, ErrUnauthenticated, ErrNothingToSave, ErrAlreadyPublishing,
		ErrOnboardingFailed, ErrGenerationFailed, ErrPersistenceFailed, ErrPublishFailed,
		ErrSuperseded, ErrGenerationInFlight, ErrTransport,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Message returns the user-facing text of err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

// KindName is a short label for logs ("transport", "generation_failed", ...).
func KindName(err error) string {
	kind := KindOf(err)
	switch kind {
	case nil:
		return "unclassified"
	case ErrTransport:
		return "transport"
	default:
		var e *Error
		if errors.As(err, &e) && e.Transport() {
			return "transport"
		}
		return kindLabels[kind]
	}
}

var kindLabels = map[error]string{
	ErrInvalidInput:       "invalid_input",
	ErrUnauthenticated:    "unauthenticated",
	ErrNothingToSave:      "nothing_to_save",
	ErrAlreadyPublishing:  "already_publishing",
	ErrOnboardingFailed:   "onboarding_failed",
	ErrGenerationFailed:   "generation_failed",
	ErrPersistenceFailed:  "persistence_failed",
	ErrPublishFailed:      "publish_failed",
	ErrSuperseded:         "superseded",
	ErrGenerationInFlight: "generation_in_flight",
}
