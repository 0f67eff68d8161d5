package apperror

import "errors"

// Kind describes a stable error category the orchestration layer can branch on.
type Kind string

const (
	// KindConfiguration marks a missing or invalid required setting.
	// Fatal to the current operation; never fall back to weaker behavior.
	KindConfiguration Kind = "configuration"
	// KindNotFound marks an expected entity that is absent.
	KindNotFound Kind = "not_found"
	// KindDuplicate marks a create rejected by a uniqueness constraint.
	// Recoverable: treat as "already exists", re-fetch and continue.
	KindDuplicate Kind = "duplicate"
	// KindUnavailable marks a transient failure talking to a backing store.
	KindUnavailable Kind = "unavailable"
)

// Error is a typed error with a stable Kind and a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Configuration(msg string, err error) error { return New(KindConfiguration, msg, err) }
func NotFound(msg string, err error) error      { return New(KindNotFound, msg, err) }
func Duplicate(msg string, err error) error     { return New(KindDuplicate, msg, err) }
func Unavailable(msg string, err error) error   { return New(KindUnavailable, msg, err) }

func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
