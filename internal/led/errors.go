package led

import "fmt"

// ErrorCode identifies the kind of controller failure.
type ErrorCode string

// ErrorCode constants for controller errors.
const (
	CodeInvalidIdentifier     ErrorCode = "INVALID_IDENTIFIER"
	CodeAcquisitionFailed     ErrorCode = "ACQUISITION_FAILED"
	CodeDirectionConfigFailed ErrorCode = "DIRECTION_CONFIG_FAILED"
	CodeRegistrationFailed    ErrorCode = "REGISTRATION_FAILED"
	CodeNotRegistered         ErrorCode = "NOT_REGISTERED"
	CodeAlreadyRegistered     ErrorCode = "ALREADY_REGISTERED"
)

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrInvalidIdentifier     = &Error{Code: CodeInvalidIdentifier}
	ErrAcquisitionFailed     = &Error{Code: CodeAcquisitionFailed}
	ErrDirectionConfigFailed = &Error{Code: CodeDirectionConfigFailed}
	ErrRegistrationFailed    = &Error{Code: CodeRegistrationFailed}
	ErrNotRegistered         = &Error{Code: CodeNotRegistered}
	ErrAlreadyRegistered     = &Error{Code: CodeAlreadyRegistered}
)

// Error is a controller failure.
type Error struct {
	Code    ErrorCode
	Message string
	Line    int
	Cause   error
}

func newError(code ErrorCode, line int, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Line:    line,
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] line %d: %s: %v", e.Code, e.Line, e.Message, e.Cause)
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("[%s] line %d: %s", e.Code, e.Line, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// HasCode checks if the error matches a specific code.
func (e *Error) HasCode(code ErrorCode) bool {
	return e.Code == code
}
