package updater

import "fmt"

// ErrorCode classifies update failures. The API maps codes to HTTP status.
type ErrorCode string

// Error codes for update operations.
const (
	ErrCodeInvalidState   ErrorCode = "INVALID_STATE"
	ErrCodeCheckFailed    ErrorCode = "CHECK_FAILED"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeNoUpdate       ErrorCode = "NO_UPDATE"
	ErrCodeApplyFailed    ErrorCode = "APPLY_FAILED"
	ErrCodeBackupFailed   ErrorCode = "BACKUP_FAILED"
	ErrCodeRollbackFailed ErrorCode = "ROLLBACK_FAILED"
	ErrCodeNoBackup       ErrorCode = "NO_BACKUP"
	ErrCodeDisabled       ErrorCode = "DISABLED"
)

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrNoUpdate    = &Error{Code: ErrCodeNoUpdate}
	ErrApplyFailed = &Error{Code: ErrCodeApplyFailed}
	ErrNoBackup    = &Error{Code: ErrCodeNoBackup}
	ErrDisabled    = &Error{Code: ErrCodeDisabled}
)

// Error is an update failure.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
