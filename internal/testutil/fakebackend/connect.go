package fakebackend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/distcompute/dcctl/pkg/client"
)

// Details returns connection details for the backend with short timeouts.
func (b *Backend) Details() *client.ApiConnectionDetails {
	return &client.ApiConnectionDetails{
		BaseUrl:         b.URL,
		Timeout:         5 * time.Second,
		DownloadTimeout: 5 * time.Second,
		UploadTimeout:   5 * time.Second,
		TokenStore:      "memory",
	}
}

// LoggedIn creates a user and returns a connection holding its session.
func (b *Backend) LoggedIn(t testing.TB, name string) *client.Connection {
	t.Helper()
	b.AddUser(name, name+"@example.com", "password", "user")
	conn, err := client.NewConnection(b.Details(), nil)
	require.NoError(t, err)
	err = conn.PostJSON(context.Background(), "/api/auth/login", map[string]string{
		"username_or_email": name,
		"password":          "password",
	}, nil)
	require.NoError(t, err)
	return conn
}
