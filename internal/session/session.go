package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/types"
)

// Fixed keys of the persisted client state.
const (
	KeyToken    = "token"
	KeyUser     = "user"
	KeyBaseline = "dashboard_baseline"
)

// Baseline is the total-users value the dashboard growth rate is measured against.
type Baseline struct {
	Value int       `json:"value"`
	At    time.Time `json:"at"`
}

// Session is the persisted token and user snapshot of the one signed-in user.
type Session struct {
	store  Store
	logger *zap.Logger
}

// New creates a session over store.
func New(store Store, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{store: store, logger: log.Named("session")}
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token(ctx context.Context) (string, error) {
	v, err := s.store.Get(ctx, KeyToken)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// User returns the cached user snapshot, or nil when signed out. A corrupt
// snapshot is discarded.
func (s *Session) User(ctx context.Context) (*models.User, error) {
	raw, err := s.store.Get(ctx, KeyUser)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.logger.Warn("discarding unreadable user snapshot", zap.Error(err))
		if err := s.store.Delete(ctx, KeyUser); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &u, nil
}

// Save persists token and user together.
func (s *Session) Save(ctx context.Context, token string, user *models.User) error {
	if err := s.store.Set(ctx, KeyToken, token); err != nil {
		return err
	}
	return s.SetUser(ctx, user)
}

// SetUser replaces the cached user snapshot.
func (s *Session) SetUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return s.store.Delete(ctx, KeyUser)
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	return s.store.Set(ctx, KeyUser, string(raw))
}

// Clear removes the token and user. The dashboard baseline survives.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, KeyToken, KeyUser); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.logger.Debug("session cleared")
	return nil
}

// Baseline returns the stored growth baseline; ok is false when none exists.
func (s *Session) Baseline(ctx context.Context) (b Baseline, ok bool, err error) {
	raw, err := s.store.Get(ctx, KeyBaseline)
	if errors.Is(err, ErrNotFound) {
		return Baseline{}, false, nil
	}
	if err != nil {
		return Baseline{}, false, err
	}
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		s.logger.Warn("discarding unreadable baseline", zap.Error(err))
		return Baseline{}, false, nil
	}
	return b, true, nil
}

// SetBaseline stores the growth baseline.
func (s *Session) SetBaseline(ctx context.Context, b Baseline) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode baseline: %w", err)
	}
	return s.store.Set(ctx, KeyBaseline, string(raw))
}

// TokenExpired reports whether token carries an exp claim before now. The
// signature is not checked; opaque tokens are never considered expired.
func TokenExpired(token string, now time.Time) bool {
	if token == "" {
		return true
	}
	var claims types.SessionClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Before(now)
}
