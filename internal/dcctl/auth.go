package dcctl

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/distcompute/dcctl/pkg/client/session"
)

// Login authenticates and prints the server's answer. A failed login leaves any previous session
// in place.
func (a *App) Login(ctx context.Context, identifier, secret string) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	return a.report(a.session.Login(ctx, identifier, secret))
}

func (a *App) Register(ctx context.Context, username, email, secret string) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	result := a.session.Register(ctx, username, email, secret)
	if err := a.report(result); err != nil {
		return err
	}
	if result.Next == session.ViewLogin {
		a.printf("Run 'dcctl login' to sign in as %s.\n", username)
	}
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	return a.report(a.session.Logout(ctx))
}

// WhoAmI prints the logged in user.
func (a *App) WhoAmI(ctx context.Context) error {
	s, err := a.authenticated(ctx)
	if err != nil {
		return err
	}
	return a.printUser(s)
}

// Refresh re-checks the stored session with the backend.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.start(ctx); err != nil {
		return err
	}
	s, ok := a.session.RefreshSession(ctx)
	if !ok {
		a.printf("Not logged in.\n")
		return nil
	}
	return a.printUser(s)
}

func (a *App) printUser(s *session.Session) error {
	a.printf("Logged in as %s <%s> (id %s, role %s)\n", s.User.Name, s.User.Email, s.User.Id, s.User.Role)
	return nil
}

// report prints the message of result and turns a failed result into an error carrying it.
func (a *App) report(result session.Result) error {
	log.WithField("next", result.Next).Debug("session operation finished")
	if !result.OK {
		return errors.New(result.Message)
	}
	a.printf("%s\n", result.Message)
	return nil
}
