package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTokenTemplate = "supabase"
	defaultFullName      = "User"
	defaultSessionTTL    = 5 * time.Minute
	sessionCacheSize     = 1000
)

// ProfileStore reads and creates user profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (core.UserProfile, error)
	CreateProfile(ctx context.Context, p core.UserProfile) (core.UserProfile, error)
}

// Session is an established database session for a signed-in user.
type Session struct {
	UserID    string            `json:"user_id"`
	Email     string            `json:"email"`
	FullName  string            `json:"full_name"`
	Token     string            `json:"-"`
	ExpiresAt time.Time         `json:"expires_at"`
	Profile   *core.UserProfile `json:"profile"`
}

// Role is the stored profile's role; a session without a profile is a viewer.
func (s *Session) Role() Role {
	if s == nil || s.Profile == nil {
		return RoleViewer
	}
	return ParseRole(s.Profile.Role)
}

func (s *Session) Can(c Capability) bool {
	return s.Role().Can(c)
}

type BridgeConfig struct {
	Template   string
	DBSecret   []byte
	SessionTTL time.Duration
}

// Bridge turns identity-provider session tokens into database sessions and
// makes sure every signed-in user has a profile.
type Bridge struct {
	provider IdentityProvider
	profiles ProfileStore
	template string
	dbSecret []byte
	ttl      time.Duration
	sessions *cache.LRUCache[*Session]
	logger   *applog.Logger
	now      func() time.Time
}

func NewBridge(provider IdentityProvider, profiles ProfileStore, cfg BridgeConfig, logger *applog.Logger) *Bridge {
	template := cfg.Template
	if template == "" {
		template = DefaultTokenTemplate
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Bridge{
		provider: provider,
		profiles: profiles,
		template: template,
		dbSecret: cfg.DBSecret,
		ttl:      ttl,
		sessions: cache.NewLRUCache[*Session](sessionCacheSize, ttl),
		logger:   logger.WithComponent(applog.ComponentAuth),
		now:      time.Now,
	}
}

// WithClock replaces time.Now for the bridge and its session cache.
func (b *Bridge) WithClock(now func() time.Time) *Bridge {
	b.now = now
	b.sessions.WithClock(now)
	return b
}

// Sessions exposes the session cache for periodic cleanup.
func (b *Bridge) Sessions() cache.Cleaner {
	return b.sessions
}

// Establish verifies the identity token, installs a database session minted
// from the configured template and loads the user's profile, creating it on
// first sign-in. Sessions are reused for the same token until they expire.
func (b *Bridge) Establish(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	if s, ok := b.sessions.Get(token); ok {
		return s, nil
	}

	id, err := b.provider.VerifySession(ctx, token)
	if err != nil {
		b.logger.WarnContext(ctx, "Session verification failed", applog.FieldError, err)
		return nil, err
	}

	dbToken, err := b.provider.MintToken(ctx, id, b.template)
	if err != nil {
		b.logger.ErrorContext(ctx, "Failed to mint database token",
			applog.FieldUserID, id.UserID, "template", b.template, applog.FieldError, err)
		return nil, err
	}
	expiresAt, err := b.verifyDBToken(dbToken, id.UserID)
	if err != nil {
		b.logger.ErrorContext(ctx, "Database token rejected", applog.FieldUserID, id.UserID, applog.FieldError, err)
		return nil, err
	}

	s := &Session{
		UserID:    id.UserID,
		Email:     id.Email,
		FullName:  id.FullName,
		Token:     dbToken,
		ExpiresAt: expiresAt,
		Profile:   b.loadProfile(ctx, id),
	}

	// A cached session never outlives either token.
	now := b.now()
	ttl := min(b.ttl, expiresAt.Sub(now))
	if !id.ExpiresAt.IsZero() {
		ttl = min(ttl, id.ExpiresAt.Sub(now))
	}
	if ttl > 0 {
		b.sessions.SetWithTTL(token, s, ttl)
	}

	b.logger.InfoContext(ctx, "Session established",
		applog.FieldUserID, s.UserID,
		applog.FieldRole, s.Role())
	return s, nil
}

// End tears down the session established for token.
func (b *Bridge) End(ctx context.Context, token string) {
	b.sessions.Delete(token)
	b.logger.DebugContext(ctx, "Session ended")
}

func (b *Bridge) verifyDBToken(token, userID string) (time.Time, error) {
	var claims DBClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return b.dbSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithSubject(userID),
		jwt.WithTimeFunc(b.now),
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: database token: %v", ErrInvalidToken, err)
	}
	return claims.ExpiresAt.Time, nil
}

// loadProfile fetches the profile, creating it when it does not exist yet.
// Any other failure leaves the session without a profile.
func (b *Bridge) loadProfile(ctx context.Context, id Identity) *core.UserProfile {
	p, err := b.profiles.GetProfile(ctx, id.UserID)
	if err == nil {
		return &p
	}
	if !errors.Is(err, core.ErrNotFound) {
		b.logger.ErrorContext(ctx, "Failed to load user profile", applog.FieldUserID, id.UserID, applog.FieldError, err)
		return nil
	}

	fullName := id.FullName
	if fullName == "" {
		fullName = defaultFullName
	}
	created, err := b.profiles.CreateProfile(ctx, core.UserProfile{
		ID:          id.UserID,
		Email:       id.Email,
		FullName:    fullName,
		Role:        string(ParseRole(id.Role)),
		CompanyName: id.CompanyName,
		Phone:       id.Phone,
	})
	if err != nil {
		b.logger.ErrorContext(ctx, "Failed to create user profile", applog.FieldUserID, id.UserID, applog.FieldError, err)
		return nil
	}
	b.logger.InfoContext(ctx, "User profile created", applog.FieldUserID, id.UserID, applog.FieldRole, created.Role)
	return &created
}

type sessionKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session installed by the session middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
