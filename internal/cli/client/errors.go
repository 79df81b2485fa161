package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthenticated means no token is stored locally. No request was sent.
	ErrUnauthenticated = errors.New("not authenticated. Please run 'biocom login' first")

	// ErrAuthorizationExpired means the server rejected the stored token. The
	// session has been cleared; the caller must go back to login and must not
	// retry.
	ErrAuthorizationExpired = errors.New("authorization expired or invalid. Please log in again")

	// ErrNoAnalyses is returned by GetLatestAnalysisID when the user has none.
	ErrNoAnalyses = errors.New("no analyses found")
)

// AuthExpiredError is returned when an authenticated request gets 401 or 403.
type AuthExpiredError struct {
	Method     string
	Endpoint   string
	StatusCode int
}

func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf("%s %s: %v (status %d)", e.Method, e.Endpoint, ErrAuthorizationExpired, e.StatusCode)
}

func (e *AuthExpiredError) Is(target error) bool {
	return target == ErrAuthorizationExpired
}

// RequestError is an HTTP-level failure other than an authorization failure.
type RequestError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       []byte
}

func (e *RequestError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		body = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s failed (status %d): %s", e.Method, e.Endpoint, e.StatusCode, body)
}

// NetworkError is a transport failure: no response was received.
type NetworkError struct {
	Method   string
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: failed to send request: %v", e.Method, e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsLoginRequired reports whether err means the user has to log in again.
func IsLoginRequired(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrAuthorizationExpired)
}

// StatusCode returns the HTTP status carried by err, or 0 if there is none.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	var authErr *AuthExpiredError
	if errors.As(err, &authErr) {
		return authErr.StatusCode
	}
	return 0
}
