// Package apierrors contains the errors returned by the dcctl client packages.
//
// Every failure that can reach a caller is one of the types below, possibly wrapped with
// github.com/pkg/errors. Callers should use errors.As to recover the type and Message to obtain
// the text that is shown to the user.
//
// If several validation errors occur at once, the function returns a *multierror.Error from
// github.com/hashicorp/go-multierror wrapping the individual ErrInvalidArgument values.
package apierrors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// VulnerableScriptMarker is the text the backend includes when it rejects an uploaded script.
const VulnerableScriptMarker = "Vulnerable script detected"

// ErrInvalidArgument is returned when input fails local validation. It never reaches the network.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "password"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %q is invalid for field %q", err.Value, err.Name)
	}
	return fmt.Sprintf("value %q is invalid for field %q; %s", err.Value, err.Name, err.Message)
}

// ErrUnauthenticated is returned when the backend rejects the credential (HTTP 401) or the
// caller attempts a protected operation without a session.
type ErrUnauthenticated struct {
	Message string
}

func (err *ErrUnauthenticated) Error() string {
	if err.Message == "" {
		return "authentication required"
	}
	return err.Message
}

// ErrSessionExpired is returned to callers after a request was rejected with HTTP 401 and the
// session has been reconciled with the server. It asks the user to log in again rather than retry.
type ErrSessionExpired struct {
	Cause error
}

func (err *ErrSessionExpired) Error() string {
	return "session expired, please log in again"
}

func (err *ErrSessionExpired) Unwrap() error {
	return err.Cause
}

// ErrTransport covers timeouts and connectivity failures, i.e. no HTTP response was received.
type ErrTransport struct {
	Method string
	Path   string
	Cause  error
}

func (err *ErrTransport) Error() string {
	return fmt.Sprintf("%s %s failed: %s", err.Method, err.Path, err.Cause)
}

func (err *ErrTransport) Unwrap() error {
	return err.Cause
}

// Timeout reports whether the failure was caused by a request deadline.
func (err *ErrTransport) Timeout() bool {
	var t interface{ Timeout() bool }
	if errors.As(err.Cause, &t) {
		return t.Timeout()
	}
	return strings.Contains(err.Cause.Error(), "deadline exceeded")
}

// ErrServer is a non-2xx response from the backend. Message holds the server's literal text
// when the body carried one.
type ErrServer struct {
	StatusCode int
	Message    string
}

func (err *ErrServer) Error() string {
	if err.Message != "" {
		return err.Message
	}
	return fmt.Sprintf("HTTP error! status: %d", err.StatusCode)
}

// ErrVulnerableScript is returned when the backend refuses a job or group script as unsafe.
type ErrVulnerableScript struct {
	Message string
}

func (err *ErrVulnerableScript) Error() string {
	if err.Message == "" {
		return VulnerableScriptMarker
	}
	return err.Message
}

// ErrChunkUpload is returned when a chunk of a chunked upload fails. No later chunk was sent.
type ErrChunkUpload struct {
	File        string
	ChunkIndex  int
	TotalChunks int
	Cause       error
}

func (err *ErrChunkUpload) Error() string {
	return fmt.Sprintf("upload of %s failed at chunk %d of %d: %s", err.File, err.ChunkIndex+1, err.TotalChunks, Message(err.Cause))
}

func (err *ErrChunkUpload) Unwrap() error {
	return err.Cause
}

// FromResponse maps a non-2xx status and the message extracted from its body to an error.
func FromResponse(statusCode int, message string) error {
	switch {
	case statusCode == http.StatusUnauthorized:
		return &ErrUnauthenticated{Message: message}
	case strings.Contains(message, VulnerableScriptMarker):
		return &ErrVulnerableScript{Message: message}
	default:
		return &ErrServer{StatusCode: statusCode, Message: message}
	}
}

// IsUnauthenticated reports whether err, or any error it wraps, is an ErrUnauthenticated.
func IsUnauthenticated(err error) bool {
	var e *ErrUnauthenticated
	return errors.As(err, &e)
}

// IsSessionExpired reports whether err, or any error it wraps, is an ErrSessionExpired.
func IsSessionExpired(err error) bool {
	var e *ErrSessionExpired
	return errors.As(err, &e)
}

// Message returns the human readable text for err: the cause of a pkg/errors chain for the types
// declared in this package, or the full error text otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		msgs := make([]string, 0, len(merr.Errors))
		for _, e := range merr.Errors {
			msgs = append(msgs, Message(e))
		}
		return strings.Join(msgs, "; ")
	}
	{
		var e *ErrSessionExpired
		if errors.As(err, &e) {
			return e.Error()
		}
	}
	{
		var e *ErrChunkUpload
		if errors.As(err, &e) {
			return e.Error()
		}
	}
	{
		var e *ErrVulnerableScript
		if errors.As(err, &e) {
			return e.Error()
		}
	}
	{
		var e *ErrServer
		if errors.As(err, &e) {
			return e.Error()
		}
	}
	{
		var e *ErrUnauthenticated
		if errors.As(err, &e) {
			return e.Error()
		}
	}
	{
		var e *ErrInvalidArgument
		if errors.As(err, &e) {
			return e.Error()
		}
	}
	return errors.Cause(err).Error()
}
