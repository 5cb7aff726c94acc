package session

import "errors"

var (
	ErrInput         = errors.New("invalid transcription input")
	ErrTranscription = errors.New("transcription failed")
)

// InputError reports a request without usable audio. Nothing has been
// written to disk when it is returned.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string        { return e.Reason }
func (e *InputError) Is(target error) bool { return target == ErrInput }

// TranscriptionError wraps a failure of the backend inference call.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string        { return "Transcription error: " + e.Err.Error() }
func (e *TranscriptionError) Is(target error) bool { return target == ErrTranscription }
func (e *TranscriptionError) Unwrap() error        { return e.Err }
