package model

import "fmt"

// AuthError indicates the interactive sign-in failed or the session can no
// longer be refreshed. It is terminal: the user must sign in again.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ApiError is a 4xx/5xx response from Microsoft Graph. Code and Message carry
// the service's own error body verbatim so it can be reported to the user as-is.
type ApiError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ApiError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph api error (HTTP %d, %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("graph api error (HTTP %d): %s", e.StatusCode, e.Message)
}

// NetworkError is a transport-level failure (DNS, connect, timeout). The run
// aborts; the user may retry by re-running the operation.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IOError indicates the export destination could not be written.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cannot write %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
