package errs

import (
	"errors"
	"fmt"
)

// Application error codes. The code string is what clients see in the
// "error_type" field of an error response, so it doubles as the error kind.
const (
	EUNAUTHORIZED    = "Unauthorized"
	EFORBIDDEN       = "Forbidden"
	ENOTFOUND        = "NotFound"
	EMETHOD          = "MethodNotAllowed"
	ENOTACCEPTABLE   = "NotAcceptable"
	EFILETOOSMALL    = "FileTooSmall"
	EFILETOOLARGE    = "FileTooLarge"
	EINVALID         = "ValidationError"
	ETOOMANYREQUESTS = "TooManyRequests"
	EINTERNAL        = "InternalError"
	EUPLOAD          = "UploadError"
)

// Error represents an application-specific error. Application errors can be
// unwrapped by the caller to extract out the code & message.
//
// Any non-application error (such as a database or disk error) should be
// reported as an EINTERNAL error and the human user should only see
// "Internal error." as the message. These low-level internal error details
// should only be logged and reported to the operator of the application.
type Error struct {
	// Machine-readable error code.
	Code string

	// Human-readable error message.
	Message string
}

// Error implements the error interface. Not used by the application otherwise.
func (e *Error) Error() string {
	return fmt.Sprintf("tweetty error: code=%s message=%s", e.Code, e.Message)
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error.".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// Is reports whether err is an application error with the given code.
func Is(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
