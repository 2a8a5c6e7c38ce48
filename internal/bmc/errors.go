package bmc

import "fmt"

// AuthError indicates that the BMC rejected the login credentials or that
// the login endpoint could not produce a usable session.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bmc authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("bmc authentication failed: %s", e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// TransientIOError indicates a network failure or timeout that is expected
// to recover on its own. Callers retry with backoff.
type TransientIOError struct {
	Op  string
	Err error
}

func (e *TransientIOError) Error() string {
	return fmt.Sprintf("bmc %s: %v", e.Op, e.Err)
}

func (e *TransientIOError) Unwrap() error {
	return e.Err
}

// SessionExpiredError indicates that the BMC no longer accepts the current
// session token. Callers re-authenticate before retrying.
type SessionExpiredError struct {
	StatusCode int
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("bmc session expired (status %d)", e.StatusCode)
}
