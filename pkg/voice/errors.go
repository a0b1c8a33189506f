package voice

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes pipeline errors.
type ErrorKind string

const (
	// KindDeviceUnavailable means no usable capture device was found.
	// Recoverable: the caller should switch to an alternate input modality.
	KindDeviceUnavailable ErrorKind = "device_unavailable"
	// KindModelLoad means the speech-recognition model failed to load.
	// Fatal: indicates a broken installation, not absence of input.
	KindModelLoad ErrorKind = "model_load_error"
	// KindSynthesisProvider means a TTS backend failed (network, auth,
	// timeout, playback). Recoverable: triggers same-utterance fallback.
	KindSynthesisProvider ErrorKind = "synthesis_provider_error"
	// KindTranscription means inference failed on a non-empty buffer.
	KindTranscription ErrorKind = "transcription_error"
	// KindEngine means the external content engine reported an error while
	// handling a response. Recoverable: the turn is treated as skipped.
	KindEngine ErrorKind = "engine_error"
)

// Error is a typed pipeline error.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Recoverable reports whether the turn loop may continue past this error.
func (e *Error) Recoverable() bool {
	return e.Kind != KindModelLoad
}

// NewError creates a typed error wrapping an optional cause.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// IsKind reports whether err is (or wraps) a pipeline error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ve *Error
	return errors.As(err, &ve) && ve.Kind == kind
}

// IsDeviceUnavailable reports whether err indicates a missing capture device.
func IsDeviceUnavailable(err error) bool {
	return IsKind(err, KindDeviceUnavailable)
}

// IsModelLoad reports whether err indicates a model load failure.
func IsModelLoad(err error) bool {
	return IsKind(err, KindModelLoad)
}
