package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pageza/recipehub/internal/apiclient"
	"github.com/pageza/recipehub/internal/logger"
	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/service"
	"github.com/pageza/recipehub/internal/session"
	"github.com/pageza/recipehub/internal/types"
)

// AuthStatus is the lifecycle state of the client session.
type AuthStatus string

const (
	StatusUnauthenticated AuthStatus = "unauthenticated"
	StatusLoading         AuthStatus = "loading"
	StatusAuthenticated   AuthStatus = "authenticated"
)

// AuthState is what views observe about the session.
type AuthState struct {
	Status AuthStatus   `json:"status"`
	User   *models.User `json:"user"`
}

// IsAdmin reports whether the signed-in user is an admin.
func (s AuthState) IsAdmin() bool { return s.User.IsAdmin() }

// AuthResult reports the outcome of Login or Register without an error
// value, for views that only render a message.
type AuthResult struct {
	Success bool              `json:"success"`
	User    *models.User      `json:"user,omitempty"`
	Error   string            `json:"error,omitempty"`
	Kind    apiclient.Kind    `json:"kind,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// AuthProvider owns the signed-in user. At most one user is signed in.
type AuthProvider struct {
	auth    service.IAuthService
	session *session.Session
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.RWMutex
	state AuthState
	hub   Hub[AuthState]
}

// NewAuthProvider creates a provider in the loading state; call Init to
// restore a persisted session.
func NewAuthProvider(auth service.IAuthService, sess *session.Session, log *zap.Logger) *AuthProvider {
	p := &AuthProvider{
		auth:    auth,
		session: sess,
		logger:  logger.OrNop(log).Named("auth_state"),
		now:     time.Now,
		state:   AuthState{Status: StatusLoading},
	}
	p.hub.Publish(p.state)
	return p
}

func (p *AuthProvider) set(st AuthState) {
	p.mu.Lock()
	p.state = st
	p.mu.Unlock()
	p.hub.Publish(st)
}

// Init restores the session: an expired or missing token signs out without
// a request, otherwise the user is refreshed from the server.
func (p *AuthProvider) Init(ctx context.Context) AuthState {
	p.set(AuthState{Status: StatusLoading})

	token, err := p.session.Token(ctx)
	if err != nil {
		p.logger.Warn("failed to read session token", zap.Error(err))
	}
	if token == "" {
		p.set(AuthState{Status: StatusUnauthenticated})
		return p.State()
	}
	if session.TokenExpired(token, p.now()) {
		p.logger.Info("stored token expired")
		if err := p.session.Clear(ctx); err != nil {
			p.logger.Warn("failed to clear expired session", zap.Error(err))
		}
		p.set(AuthState{Status: StatusUnauthenticated})
		return p.State()
	}

	user, err := p.auth.GetCurrentUser(ctx)
	if err != nil {
		p.logger.Info("session restore failed", zap.Error(err))
		p.set(AuthState{Status: StatusUnauthenticated})
		return p.State()
	}
	p.set(AuthState{Status: StatusAuthenticated, User: user})
	return p.State()
}

// Login signs in; on failure the prior state is kept.
func (p *AuthProvider) Login(ctx context.Context, req types.LoginRequest) AuthResult {
	return p.signIn(ctx, "Login failed", func() (*types.AuthResponse, error) {
		return p.auth.Login(ctx, req)
	})
}

// Register creates an account and signs it in.
func (p *AuthProvider) Register(ctx context.Context, req types.RegisterRequest) AuthResult {
	return p.signIn(ctx, "Registration failed", func() (*types.AuthResponse, error) {
		return p.auth.Register(ctx, req)
	})
}

func (p *AuthProvider) signIn(ctx context.Context, fallback string, call func() (*types.AuthResponse, error)) AuthResult {
	prior := p.State()
	p.set(AuthState{Status: StatusLoading, User: prior.User})

	resp, err := call()
	if err != nil {
		p.set(prior)
		res := AuthResult{Error: messageOr(err, fallback), Kind: apiclient.KindOf(err)}
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) {
			res.Fields = apiErr.Fields
		}
		return res
	}
	p.set(AuthState{Status: StatusAuthenticated, User: resp.User})
	return AuthResult{Success: true, User: resp.User}
}

// Logout signs out locally without a network round trip.
func (p *AuthProvider) Logout() {
	if err := p.auth.Logout(context.Background()); err != nil {
		p.logger.Warn("failed to clear session", zap.Error(err))
	}
	p.set(AuthState{Status: StatusUnauthenticated})
}

// UpdateUser replaces the signed-in user, e.g. after a profile edit made
// elsewhere. It is a no-op when signed out.
func (p *AuthProvider) UpdateUser(ctx context.Context, user *models.User) {
	if user == nil || p.State().Status != StatusAuthenticated {
		return
	}
	if err := p.session.SetUser(ctx, user); err != nil {
		p.logger.Warn("failed to cache user", zap.Error(err))
	}
	p.set(AuthState{Status: StatusAuthenticated, User: user})
}

// UpdateProfile saves the profile and refreshes the signed-in user.
func (p *AuthProvider) UpdateProfile(ctx context.Context, req types.UpdateProfileRequest) (*models.User, error) {
	user, err := p.auth.UpdateProfile(ctx, req)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			p.set(AuthState{Status: StatusUnauthenticated})
		}
		return nil, err
	}
	p.UpdateUser(ctx, user)
	return user, nil
}

// Expire moves to unauthenticated after the API rejected the token.
func (p *AuthProvider) Expire() {
	if p.State().Status == StatusUnauthenticated {
		return
	}
	p.logger.Info("session expired")
	p.set(AuthState{Status: StatusUnauthenticated})
}

// State returns the current state.
func (p *AuthProvider) State() AuthState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// User returns the signed-in user or nil.
func (p *AuthProvider) User() *models.User {
	st := p.State()
	if st.Status != StatusAuthenticated {
		return nil
	}
	return st.User
}

// IsAdmin reports whether the signed-in user is an admin.
func (p *AuthProvider) IsAdmin() bool { return p.User().IsAdmin() }

// Subscribe streams state changes.
func (p *AuthProvider) Subscribe() (<-chan AuthState, func()) { return p.hub.Subscribe() }
