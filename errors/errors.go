package errors

import (
	// Go internal packages
	"bytes"
	"encoding/json"
	"errors"
)

// Error defines a standard application error.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	// Wrapped underlying error.
	WrappedErr error `json:"wrapped_err,omitempty"`
}

// Error returns the string representation of the error message.
func (e *Error) Error() string {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(e)
	return buf.String()
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.WrappedErr
}

// NewError returns standard go error with given string
func NewError(e string) error {
	return errors.New(e)
}

// Kind defines the kind or class of an error.
type Kind uint8

// Transport agnostic error "kinds". The assignment-specific kinds mirror the
// outcomes the engine reports to its caller; they are never thrown across the
// component boundary, only carried inside structured results.
const (
	Other                 Kind = iota // Unclassified error
	Internal                          // Internal error
	Invalid                           // Invalid input, validation error etc
	NotFound                          // Entity does not exist
	NoAvailableCounselors             // No counselor in the pool is available
	NoCapacity                        // Every available counselor is at capacity
	TransactionConflict               // Commit lost a race and exhausted its retries
	AlreadyAssigned                   // Request was no longer pending at commit time
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "unclassified error"
	case Internal:
		return "internal error"
	case Invalid:
		return "invalid input"
	case NotFound:
		return "entity not found"
	case NoAvailableCounselors:
		return "no available counselors"
	case NoCapacity:
		return "no counselor capacity"
	case TransactionConflict:
		return "transaction conflict"
	case AlreadyAssigned:
		return "request already assigned"
	default:
		return "unknown error kind"
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func E(args ...interface{}) error {
	e := &Error{}
	for _, arg := range args {
		switch arg := arg.(type) {
		case Kind:
			e.Kind = arg
		case error:
			e.WrappedErr = arg
		case string:
			e.Message = arg
		}
	}
	return e
}

// KindOf extracts the Kind from err. Errors that are not *Error (or do not
// wrap one) report as Other.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// NewInternalError creates a new internal error
func NewInternalError(msg string) error {
	return E(Internal, msg)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(msg string) error {
	return E(NotFound, msg)
}

// NewInvalidParamsError creates a new invalid parameters error
func NewInvalidParamsError(msg string) error {
	return E(Invalid, msg)
}

var (
	As = errors.As
	Is = errors.Is
)
