package apierrors

import (
	"context"
	"net/http"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestFromResponse(t *testing.T) {
	tests := map[string]struct {
		status  int
		message string
		check   func(t *testing.T, err error)
	}{
		"401 is unauthenticated": {
			status:  http.StatusUnauthorized,
			message: "Not authenticated",
			check: func(t *testing.T, err error) {
				assert.True(t, IsUnauthenticated(err))
			},
		},
		"vulnerable script": {
			status:  http.StatusBadRequest,
			message: "Vulnerable script detected: os.system",
			check: func(t *testing.T, err error) {
				var e *ErrVulnerableScript
				assert.True(t, errors.As(err, &e))
			},
		},
		"generic server error keeps literal text": {
			status:  http.StatusBadRequest,
			message: "Invalid username or password",
			check: func(t *testing.T, err error) {
				var e *ErrServer
				assert.True(t, errors.As(err, &e))
				assert.Equal(t, http.StatusBadRequest, e.StatusCode)
				assert.Equal(t, "Invalid username or password", err.Error())
			},
		},
		"server error without body": {
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				assert.Equal(t, "HTTP error! status: 500", err.Error())
			},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			tc.check(t, FromResponse(tc.status, tc.message))
		})
	}
}

func TestMessage(t *testing.T) {
	tests := map[string]struct {
		err  error
		want string
	}{
		"nil": {nil, ""},
		"wrapped server error": {
			errors.Wrap(&ErrServer{StatusCode: 400, Message: "Job not found"}, "get job 7"),
			"Job not found",
		},
		"session expired wins over cause": {
			&ErrSessionExpired{Cause: &ErrUnauthenticated{Message: "token expired"}},
			"session expired, please log in again",
		},
		"chunk upload": {
			&ErrChunkUpload{File: "data.csv", ChunkIndex: 1, TotalChunks: 3, Cause: &ErrServer{StatusCode: 500, Message: "disk full"}},
			"upload of data.csv failed at chunk 2 of 3: disk full",
		},
		"multierror joins": {
			multierror.Append(nil,
				&ErrInvalidArgument{Name: "username", Value: "", Message: "must not be empty"},
				&ErrInvalidArgument{Name: "password", Value: "abc", Message: "must be at least 6 characters"},
			),
			`value "" is invalid for field "username"; must not be empty; value "abc" is invalid for field "password"; must be at least 6 characters`,
		},
		"plain error uses cause": {
			errors.Wrap(errors.New("boom"), "context"),
			"boom",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, Message(tc.err))
		})
	}
}

func TestErrTransportTimeout(t *testing.T) {
	err := &ErrTransport{Method: http.MethodGet, Path: "/api/auth/me", Cause: context.DeadlineExceeded}
	assert.True(t, err.Timeout())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = &ErrTransport{Method: http.MethodGet, Path: "/api/auth/me", Cause: errors.New("connection refused")}
	assert.False(t, err.Timeout())
}
