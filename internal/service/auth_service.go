package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mockprep/coach-gateway/internal/backend"
	"github.com/mockprep/coach-gateway/internal/config"
	"github.com/mockprep/coach-gateway/internal/model"
)

// AuthBackend is the account part of the interview backend.
type AuthBackend interface {
	Signup(ctx context.Context, req model.SignupRequest) error
	Login(ctx context.Context, email, password string) (backend.Credentials, error)
	Logout(ctx context.Context, creds backend.Credentials) error
	Me(ctx context.Context, creds backend.Credentials) (model.User, error)
	ForgotPassword(ctx context.Context, req model.ForgotPasswordRequest) error
}

// Claims extends JWT standard claims with the user's display name.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// AuthService handles login through the backend, gateway tokens and session
// storage.
type AuthService struct {
	cfg      *config.Config
	backend  AuthBackend
	sessions SessionStore
	log      zerolog.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, b AuthBackend, sessions SessionStore, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:      cfg,
		backend:  b,
		sessions: sessions,
		log:      log.With().Str("component", "auth_service").Logger(),
		now:      time.Now,
	}
}

func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) error {
	return s.backend.Signup(ctx, req)
}

func (s *AuthService) ForgotPassword(ctx context.Context, req model.ForgotPasswordRequest) error {
	return s.backend.ForgotPassword(ctx, req)
}

// Login verifies the credentials with the backend, resolves the user and
// registers a gateway session. It returns the signed token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (string, Session, error) {
	creds, err := s.backend.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, backend.ErrInvalidCredentials) {
			return "", Session{}, ErrInvalidCredentials
		}
		return "", Session{}, err
	}

	user, err := s.backend.Me(ctx, creds)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthenticated) {
			return "", Session{}, ErrInvalidCredentials
		}
		return "", Session{}, fmt.Errorf("resolve user: %w", err)
	}

	now := s.now()
	sess := Session{
		TokenID:   uuid.New().String(),
		UserID:    user.UserID,
		Username:  user.Username,
		Email:     user.Email,
		Cookie:    creds.Cookie,
		ExpiresAt: now.Add(s.cfg.JWTExpiry),
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.TokenID,
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
		Username: sess.Username,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", Session{}, fmt.Errorf("sign token: %w", err)
	}

	// Store session in Redis with same expiry as JWT.
	if err := s.sessions.Save(ctx, sess, s.cfg.JWTExpiry); err != nil {
		return "", Session{}, err
	}

	s.log.Info().Str("user_id", sess.UserID).Msg("User logged in")
	return signed, sess, nil
}

// Logout ends the backend session and drops the gateway session.
func (s *AuthService) Logout(ctx context.Context, tokenID string) error {
	sess, err := s.sessions.Load(ctx, tokenID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.backend.Logout(ctx, backend.Credentials{Cookie: sess.Cookie}); err != nil &&
		!errors.Is(err, backend.ErrUnauthenticated) {
		s.log.Warn().Err(err).Str("user_id", sess.UserID).Msg("Backend logout failed")
	}
	return s.sessions.Delete(ctx, tokenID)
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Session returns the stored session for a token ID.
func (s *AuthService) Session(ctx context.Context, tokenID string) (Session, error) {
	sess, err := s.sessions.Load(ctx, tokenID)
	if err != nil {
		return Session{}, err
	}
	if !sess.ExpiresAt.IsZero() && s.now().After(sess.ExpiresAt) {
		return Session{}, ErrSessionExpired
	}
	return sess, nil
}

// Refresh re-reads the user from the backend. A session the backend no longer
// accepts is dropped.
func (s *AuthService) Refresh(ctx context.Context, tokenID string) (Session, error) {
	sess, err := s.Session(ctx, tokenID)
	if err != nil {
		return Session{}, err
	}
	user, err := s.backend.Me(ctx, backend.Credentials{Cookie: sess.Cookie})
	if err != nil {
		if errors.Is(err, backend.ErrUnauthenticated) {
			if delErr := s.sessions.Delete(ctx, tokenID); delErr != nil {
				s.log.Warn().Err(delErr).Msg("Drop expired session")
			}
			return Session{}, ErrSessionExpired
		}
		return Session{}, err
	}
	if user.Username != sess.Username || user.Email != sess.Email {
		sess.Username, sess.Email = user.Username, user.Email
		if err := s.sessions.Save(ctx, sess, sess.ExpiresAt.Sub(s.now())); err != nil {
			return Session{}, err
		}
	}
	return sess, nil
}

// Credentials returns the backend credentials of a session.
func (sess Session) Credentials() backend.Credentials {
	return backend.Credentials{Cookie: sess.Cookie}
}

// User returns the session's user.
func (sess Session) User() model.User {
	return model.User{UserID: sess.UserID, Username: sess.Username, Email: sess.Email}
}
