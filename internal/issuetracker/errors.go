package issuetracker

import (
	"errors"
	"fmt"
)

// ConfigError reports tracker configuration that cannot be used to reach
// the remote API, such as a malformed repository URL.
type ConfigError struct {
	Field   string
	Value   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

// RequestError reports a failed round trip: either the request never
// completed (Err is set) or the server answered with a non-2xx status.
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("executing request %s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("unexpected status %d on %s %s: %s", e.StatusCode, e.Method, e.URL, e.Body)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// AuthError indicates that the remote API rejected the credentials.
type AuthError struct {
	TrackerType string
	StatusCode  int
	Message     string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s, %d): %s", e.TrackerType, e.StatusCode, e.Message)
}

// ParseError reports a response body that is not valid JSON for the
// expected shape.
type ParseError struct {
	Method string
	URL    string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unmarshaling response from %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ShapeError reports a well-formed response that lacks a field the
// caller depends on.
type ShapeError struct {
	Object string
	Field  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s response is missing %q", e.Object, e.Field)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsRemoteError reports whether err belongs to the failure taxonomy of a
// remote tracker round trip: configuration, transport, HTTP status,
// authentication, decoding or missing response fields.
func IsRemoteError(err error) bool {
	var (
		cfgErr   *ConfigError
		reqErr   *RequestError
		authErr  *AuthError
		parseErr *ParseError
		shapeErr *ShapeError
	)
	return errors.As(err, &cfgErr) ||
		errors.As(err, &reqErr) ||
		errors.As(err, &authErr) ||
		errors.As(err, &parseErr) ||
		errors.As(err, &shapeErr)
}
