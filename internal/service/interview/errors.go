package interview

import "errors"

var (
	ErrInvalidRoleProfile      = errors.New("invalid role profile")
	ErrSessionNotFound         = errors.New("session not found")
	ErrSessionAlreadyCompleted = errors.New("session already completed")
	ErrEmptyAnswer             = errors.New("answer text is empty")
	ErrConcurrentModification  = errors.New("session is being modified concurrently")
	ErrReportNotAvailable      = errors.New("report not available: no scored turns yet")
	ErrStoreFailure            = errors.New("session store failure")
)

// Stable error codes exposed to clients.
const (
	CodeInvalidRoleProfile      = "INVALID_ROLE_PROFILE"
	CodeSessionNotFound         = "SESSION_NOT_FOUND"
	CodeSessionAlreadyCompleted = "SESSION_ALREADY_COMPLETED"
	CodeEmptyAnswer             = "EMPTY_ANSWER"
	CodeConcurrentModification  = "CONCURRENT_MODIFICATION"
	CodeReportNotAvailable      = "REPORT_NOT_AVAILABLE"
	CodeStoreFailure            = "STORE_FAILURE"
	CodeInternal                = "INTERNAL"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidRoleProfile, CodeInvalidRoleProfile},
	{ErrSessionNotFound, CodeSessionNotFound},
	{ErrSessionAlreadyCompleted, CodeSessionAlreadyCompleted},
	{ErrEmptyAnswer, CodeEmptyAnswer},
	{ErrConcurrentModification, CodeConcurrentModification},
	{ErrReportNotAvailable, CodeReportNotAvailable},
	{ErrStoreFailure, CodeStoreFailure},
}

// Code maps an engine error to its stable code. nil maps to "".
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
