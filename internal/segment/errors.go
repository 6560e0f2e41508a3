package segment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maauso/wavsegment/internal/audio"
)

// Error kinds. Every error returned by a Segmenter operation matches exactly
// one of them with errors.Is.
var (
	// ErrValidation is the kind for out-of-range or inconsistent parameters.
	// It is always reported before any file is touched.
	ErrValidation = errors.New("validation error")
	// ErrFileAccess is the kind for missing, unreadable or undecodable inputs.
	ErrFileAccess = errors.New("file access error")
	// ErrProcessing is the kind for failures while planning or writing audio.
	ErrProcessing = errors.New("processing error")
)

// Error carries the kind of a failure and the parameter or path it concerns.
type Error struct {
	// Kind is ErrValidation, ErrFileAccess or ErrProcessing.
	Kind error
	// Param names the offending option, if any.
	Param string
	// Path names the offending file, if any.
	Path string
	// Msg is a human-readable description.
	Msg string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Param != "" {
		fmt.Fprintf(&b, ": %s", e.Param)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, ": %s", e.Path)
	}
	if e.Msg != "" {
		fmt.Fprintf(&b, ": %s", e.Msg)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns a short name for the kind of err: "validation",
// "file_access", "processing" or "" if err is not a segment error.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrFileAccess):
		return "file_access"
	case errors.Is(err, ErrProcessing):
		return "processing"
	default:
		return ""
	}
}

func validationError(param, msg string) *Error {
	return &Error{Kind: ErrValidation, Param: param, Msg: msg}
}

func processingError(path, msg string, err error) *Error {
	return &Error{Kind: ErrProcessing, Path: path, Msg: msg, Err: err}
}

// readError classifies a decoder failure. Layout problems in an otherwise
// readable file are processing errors; anything else means the file could
// not be accessed or decoded.
func readError(path string, err error) *Error {
	if errors.Is(err, audio.ErrInvalidLayout) || errors.Is(err, audio.ErrUnsupportedEncoding) {
		return &Error{Kind: ErrProcessing, Path: path, Msg: "unsupported audio layout", Err: err}
	}
	return &Error{Kind: ErrFileAccess, Path: path, Err: err}
}
