package errors

import "fmt"

var (
	ErrAuthRejected       = fmt.Errorf("authentication rejected")
	ErrInvalidPayload     = fmt.Errorf("invalid inbound payload")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrUnknownGroup       = fmt.Errorf("unknown group")
	ErrSessionClosed      = fmt.Errorf("session already closed")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)
