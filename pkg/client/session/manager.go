// Package session owns the client's belief about who is logged in.
//
// A Manager is constructed once per client context and injected wherever identity is needed.
// It is the only writer of the current Session; other components read snapshots through its
// accessors. The credential itself is an opaque client.Token held in the connection's TokenJar
// and mirrored into a TokenStore so that consecutive runs share the session.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/distcompute/dcctl/internal/common/apierrors"
	"github.com/distcompute/dcctl/pkg/client"
)

const MinPasswordLength = 6

type Manager struct {
	api    AuthAPI
	tokens *client.TokenJar
	store  TokenStore

	// ops serialises operations that talk to the backend.
	ops sync.Mutex

	mu        sync.RWMutex
	state     State
	session   *Session
	observers []Observer
	// cleared counts credential wipes so a failed login does not resurrect a token that was
	// invalidated while the request was in flight.
	cleared uint64
}

func NewManager(api AuthAPI, tokens *client.TokenJar, store TokenStore) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{
		api:    api,
		tokens: tokens,
		store:  store,
		state:  StateUnknown,
	}
}

// NewManagerForConnection wires a Manager to conn: the HTTP auth API, the connection's token jar,
// persistence of token changes to store, and invalidation on any HTTP 401.
func NewManagerForConnection(conn *client.Connection, store TokenStore) *Manager {
	m := NewManager(NewHttpAuthAPI(conn), conn.Tokens(), store)
	conn.OnUnauthorized(m.Invalidate)
	return m
}

// Subscribe registers o to receive every Event emitted by the manager. Observers run after the
// operation that produced the event has released its locks, so they may call back into m.
func (m *Manager) Subscribe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Start restores a stored credential, begins mirroring credential changes into the store, and
// runs the initial session check.
func (m *Manager) Start(ctx context.Context) (*Session, bool) {
	token, ok, err := m.store.Load()
	if err != nil {
		log.WithError(err).Warn("could not restore stored session")
	}
	if ok {
		m.tokens.Set(token)
	}
	m.tokens.OnChange(m.persist)
	return m.CheckSession(ctx)
}

// CheckSession asks the backend who is logged in. Any failure, including transport errors, leaves
// the manager Anonymous; the error is only logged.
func (m *Manager) CheckSession(ctx context.Context) (*Session, bool) {
	m.ops.Lock()
	defer m.ops.Unlock()
	return m.checkSession(ctx)
}

// RefreshSession reconciles local state with the server, typically after a request was rejected.
func (m *Manager) RefreshSession(ctx context.Context) (*Session, bool) {
	return m.CheckSession(ctx)
}

func (m *Manager) checkSession(ctx context.Context) (*Session, bool) {
	resp, err := m.api.Me(ctx)
	if err != nil {
		log.WithError(err).Debug("session check failed")
		if apierrors.IsUnauthenticated(err) {
			m.clear()
		} else {
			// The credential was not rejected, so it is kept for the next attempt.
			m.forget()
		}
		return nil, false
	}
	if resp.Status != statusAuthenticated || resp.User == nil {
		log.WithField("message", resp.Message).Debug("not authenticated")
		m.clear()
		return nil, false
	}
	return m.establish(*resp.User), true
}

// Login authenticates with a username or email and a password. A failed attempt leaves any
// existing session untouched.
func (m *Manager) Login(ctx context.Context, identifier, secret string) Result {
	var errs *multierror.Error
	if strings.TrimSpace(identifier) == "" {
		errs = multierror.Append(errs, &apierrors.ErrInvalidArgument{Name: "usernameOrEmail", Value: identifier, Message: "must not be empty"})
	}
	if secret == "" {
		errs = multierror.Append(errs, &apierrors.ErrInvalidArgument{Name: "password", Value: "", Message: "must not be empty"})
	}
	if err := errs.ErrorOrNil(); err != nil {
		return m.fail(EventLoginFailed, apierrors.Message(err))
	}

	result, event := m.login(ctx, identifier, secret)
	m.emit(event)
	return result
}

func (m *Manager) login(ctx context.Context, identifier, secret string) (Result, Event) {
	m.ops.Lock()
	defer m.ops.Unlock()

	previous, generation := m.snapshot()
	resp, err := m.api.Login(ctx, identifier, secret)
	if err != nil {
		m.restore(previous, generation)
		return failure(EventLoginFailed, apierrors.Message(err))
	}
	if !resp.Success || resp.User == nil {
		m.restore(previous, generation)
		return failure(EventLoginFailed, messageOr(resp.Message, "Login failed"))
	}

	s := m.establish(*resp.User)
	message := messageOr(resp.Message, "Login successful")
	return Result{OK: true, Message: message, Next: ViewDashboard, Session: s}, Event{Kind: EventLoginSucceeded, Message: message}
}

// Register creates an account. When the backend logs the new user in, the session is
// established; otherwise the result directs the user to the login view.
func (m *Manager) Register(ctx context.Context, username, email, secret string) Result {
	if err := ValidateRegistration(username, email, secret); err != nil {
		return m.fail(EventRegisterFailed, apierrors.Message(err))
	}
	result, event := m.register(ctx, username, email, secret)
	m.emit(event)
	return result
}

func (m *Manager) register(ctx context.Context, username, email, secret string) (Result, Event) {
	m.ops.Lock()
	defer m.ops.Unlock()

	previous, generation := m.snapshot()
	resp, err := m.api.Register(ctx, username, email, secret)
	if err != nil {
		m.restore(previous, generation)
		return failure(EventRegisterFailed, apierrors.Message(err))
	}
	if !resp.Success {
		m.restore(previous, generation)
		return failure(EventRegisterFailed, messageOr(resp.Message, "Registration failed"))
	}

	message := messageOr(resp.Message, "Registration successful")
	event := Event{Kind: EventRegistered, Message: message}
	if resp.User == nil {
		return Result{OK: true, Message: message, Next: ViewLogin}, event
	}
	s := m.establish(*resp.User)
	return Result{OK: true, Message: message, Next: ViewDashboard, Session: s}, event
}

// Logout asks the backend to end the session and always clears it locally, whether or not the
// request succeeded.
func (m *Manager) Logout(ctx context.Context) Result {
	m.ops.Lock()
	if err := m.api.Logout(ctx); err != nil {
		log.WithError(err).Warn("logout request failed, clearing local session anyway")
	}
	m.clear()
	m.ops.Unlock()

	m.emit(Event{Kind: EventLoggedOut, Message: "Logged out"})
	return Result{OK: true, Message: "Logged out", Next: ViewHome}
}

// Invalidate drops an authenticated session without contacting the backend. It is installed as
// the connection's HTTP 401 hook and may run concurrently with other operations.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	wasAuthenticated := m.state == StateAuthenticated
	m.mu.Unlock()
	m.clear()
	if wasAuthenticated {
		m.emit(Event{Kind: EventSessionInvalidated, Message: "Session expired, please log in again"})
	}
}

// HandleError reconciles the session when err reports a rejected credential, returning an
// ErrSessionExpired in its place. Other errors are returned unchanged.
func (m *Manager) HandleError(ctx context.Context, err error) error {
	if err == nil || !apierrors.IsUnauthenticated(err) || apierrors.IsSessionExpired(err) {
		return err
	}
	if _, ok := m.RefreshSession(ctx); ok {
		// The server still accepts the session, so the rejection was about this request only.
		return err
	}
	return &apierrors.ErrSessionExpired{Cause: err}
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Current returns the current session, or nil when nobody is logged in.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// RequireAuthenticated is the guard of protected operations.
func (m *Manager) RequireAuthenticated() (*Session, error) {
	s := m.Current()
	if s == nil {
		return nil, &apierrors.ErrUnauthenticated{Message: "not logged in, please run 'dcctl login' first"}
	}
	return s, nil
}

// ValidateRegistration performs the local checks made before a registration request is sent.
func ValidateRegistration(username, email, secret string) error {
	var errs *multierror.Error
	if strings.TrimSpace(username) == "" {
		errs = multierror.Append(errs, &apierrors.ErrInvalidArgument{Name: "username", Value: username, Message: "must not be empty"})
	}
	if strings.TrimSpace(email) == "" {
		errs = multierror.Append(errs, &apierrors.ErrInvalidArgument{Name: "email", Value: email, Message: "must not be empty"})
	}
	if len(secret) < MinPasswordLength {
		errs = multierror.Append(errs, &apierrors.ErrInvalidArgument{Name: "password", Value: strings.Repeat("*", len(secret)), Message: "must be at least 6 characters"})
	}
	return errs.ErrorOrNil()
}

func (m *Manager) establish(user User) *Session {
	s := &Session{User: user, Credential: m.tokens.Get()}
	m.mu.Lock()
	m.state = StateAuthenticated
	m.session = s
	m.mu.Unlock()
	c := *s
	return &c
}

// forget drops the session but keeps the credential.
func (m *Manager) forget() {
	m.mu.Lock()
	m.state = StateAnonymous
	m.session = nil
	m.mu.Unlock()
}

func (m *Manager) clear() {
	m.mu.Lock()
	m.state = StateAnonymous
	m.session = nil
	m.cleared++
	m.mu.Unlock()
	m.tokens.Clear()
}

func (m *Manager) snapshot() (client.Token, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens.Get(), m.cleared
}

// restore puts back the credential held before a failed attempt, unless it was cleared since.
func (m *Manager) restore(previous client.Token, generation uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cleared != generation {
		m.tokens.Clear()
		return
	}
	m.tokens.Set(previous)
}

func (m *Manager) fail(kind EventKind, message string) Result {
	result, event := failure(kind, message)
	m.emit(event)
	return result
}

func failure(kind EventKind, message string) (Result, Event) {
	return Result{OK: false, Message: message, Next: ViewNone}, Event{Kind: kind, Message: message}
}

func (m *Manager) emit(e Event) {
	m.mu.RLock()
	observers := append([]Observer{}, m.observers...)
	m.mu.RUnlock()
	for _, o := range observers {
		o(e)
	}
}

func (m *Manager) persist(token client.Token) {
	var err error
	if token.IsZero() {
		err = m.store.Delete()
	} else {
		err = m.store.Save(token)
	}
	if err != nil {
		log.WithError(err).Warn("could not persist session")
	}
}

func messageOr(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}
