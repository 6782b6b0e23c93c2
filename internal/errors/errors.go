package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies every user-facing failure of the reservation engine.
type Kind int

const (
	KindUnknown Kind = iota
	NoCapacity
	InvalidDuration
	UnknownLot
	NotFound
	InvalidTransition
	DuplicateID
	InvalidLot
	Unauthorized
)

func (k Kind) String() string {
	switch k {
	case NoCapacity:
		return "NoCapacity"
	case InvalidDuration:
		return "InvalidDuration"
	case UnknownLot:
		return "UnknownLot"
	case NotFound:
		return "NotFound"
	case InvalidTransition:
		return "InvalidTransition"
	case DuplicateID:
		return "DuplicateId"
	case InvalidLot:
		return "InvalidLot"
	case Unauthorized:
		return "Unauthorized"
	default:
		return "Unknown"
	}
}

// Error is a classified engine error. Two errors match under errors.Is when
// their kinds are equal, so callers can compare against the Err* values.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return KindUnknown, false
}

var (
	ErrNoCapacity        = &Error{Kind: NoCapacity}
	ErrInvalidDuration   = &Error{Kind: InvalidDuration}
	ErrUnknownLot        = &Error{Kind: UnknownLot}
	ErrNotFound          = &Error{Kind: NotFound}
	ErrInvalidTransition = &Error{Kind: InvalidTransition}
	ErrDuplicateID       = &Error{Kind: DuplicateID}
	ErrInvalidLot        = &Error{Kind: InvalidLot}
	ErrInvalidCreds      = &Error{Kind: Unauthorized, Message: "invalid credentials"}
)
