package session

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/distcompute/dcctl/internal/common/apierrors"
	"github.com/distcompute/dcctl/pkg/client"
)

const (
	LoginPath    = "/api/auth/login"
	RegisterPath = "/api/auth/register"
	MePath       = "/api/auth/me"
	LogoutPath   = "/api/auth/logout"
)

// AuthAPI is the backend's authentication surface.
type AuthAPI interface {
	Login(ctx context.Context, identifier, secret string) (*AuthResponse, error)
	Register(ctx context.Context, username, email, secret string) (*AuthResponse, error)
	Me(ctx context.Context) (*MeResponse, error)
	Logout(ctx context.Context) error
}

type AuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    *User  `json:"user"`
}

type MeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	User    *User  `json:"user"`
}

const statusAuthenticated = "authenticated"

type loginRequest struct {
	UsernameOrEmail string `json:"username_or_email"`
	Password        string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type HttpAuthAPI struct {
	conn *client.Connection
}

func NewHttpAuthAPI(conn *client.Connection) *HttpAuthAPI {
	return &HttpAuthAPI{conn: conn}
}

func (a *HttpAuthAPI) Login(ctx context.Context, identifier, secret string) (*AuthResponse, error) {
	resp := &AuthResponse{}
	err := a.conn.PostJSON(client.WithoutUnauthorizedHooks(ctx), LoginPath, loginRequest{UsernameOrEmail: identifier, Password: secret}, resp)
	if err != nil {
		return nil, credentialsRejected(err)
	}
	return resp, nil
}

func (a *HttpAuthAPI) Register(ctx context.Context, username, email, secret string) (*AuthResponse, error) {
	resp := &AuthResponse{}
	err := a.conn.PostJSON(client.WithoutUnauthorizedHooks(ctx), RegisterPath, registerRequest{Username: username, Email: email, Password: secret}, resp)
	if err != nil {
		return nil, credentialsRejected(err)
	}
	return resp, nil
}

func (a *HttpAuthAPI) Me(ctx context.Context) (*MeResponse, error) {
	resp := &MeResponse{}
	if err := a.conn.GetJSON(ctx, MePath, nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (a *HttpAuthAPI) Logout(ctx context.Context) error {
	return a.conn.PostJSON(client.WithoutUnauthorizedHooks(ctx), LogoutPath, nil, nil)
}

// credentialsRejected turns a 401 from login or register into a plain server error: it reports
// wrong credentials, not an expired session.
func credentialsRejected(err error) error {
	var e *apierrors.ErrUnauthenticated
	if errors.As(err, &e) {
		return &apierrors.ErrServer{StatusCode: http.StatusUnauthorized, Message: e.Message}
	}
	return err
}
