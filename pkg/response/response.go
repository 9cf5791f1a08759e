package response

import "errors"

type Response struct {
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// Error Codes
type ErrCode string

var (
	FAILED_REQUEST     ErrCode = "REQUEST_FAILED"
	BAD_REQUEST        ErrCode = "FAILED_TO_DECODE"
	VALIDATION_FAILED  ErrCode = "VALIDATION_FAILED"
	NOT_FOUND          ErrCode = "NOT_FOUND"
	LOCKED             ErrCode = "LOCKED"
	CONFLICT           ErrCode = "CONFLICT"
	SLOT_NOT_AVAILABLE ErrCode = "SLOT_NOT_AVAILABLE"
	UNAUTHORIZED       ErrCode = "UNAUTHORIZED"
	TOO_MANY_ATTEMPTS  ErrCode = "TOO_MANY_ATTEMPTS"
	TOO_LARGE          ErrCode = "PAYLOAD_TOO_LARGE"
)

var (
	ErrBadRequest       = errors.New("bad request")
	ErrNotFound         = errors.New("resource not found")
	ErrLocked           = errors.New("resource is locked")
	ErrConflict         = errors.New("conflict")
	ErrSlotNotAvailable = errors.New("slot is not available")
	ErrSlotExists       = errors.New("slot already exists")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrWrongPassword    = errors.New("wrong password")
	ErrTooManyAttempts  = errors.New("too many login attempts")
)

func Error(code ErrCode, msg string) Response {
	return Response{
		Error: msg,
		Code:  string(code),
	}
}

// ValidationError carries a message safe to show to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Invalid(msg string) error {
	return &ValidationError{Message: msg}
}
