// Package auth signs operators in against the catalog API and keeps their
// sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"catalog-admin-console/internal/domain"
	"catalog-admin-console/internal/i18n"
	"catalog-admin-console/internal/store"
)

var (
	// ErrLoginFailed is returned when the catalog refuses the credentials.
	ErrLoginFailed = errors.New("auth: login failed")
	// ErrUnauthenticated is returned for a missing, unknown or expired session.
	ErrUnauthenticated = errors.New("auth: not authenticated")
	// ErrUnsupportedLocale is returned by SetLocale for a language the console does not speak.
	ErrUnsupportedLocale = errors.New("auth: unsupported locale")
)

// LoginAPI is the part of the catalog client used to sign in.
type LoginAPI interface {
	Login(ctx context.Context, email, password string) (*domain.LoginResponse, error)
}

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Service manages operator sessions.
type Service struct {
	api           LoginAPI
	sessions      store.SessionStorer
	logger        *zap.Logger
	validate      *validator.Validate
	defaultLocale string
	now           func() time.Time
}

func NewService(api LoginAPI, sessions store.SessionStorer, defaultLocale string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !i18n.Supported(defaultLocale) {
		defaultLocale = i18n.DefaultLocale
	}
	return &Service{
		api:           api,
		sessions:      sessions,
		logger:        logger.Named("auth"),
		validate:      validator.New(),
		defaultLocale: defaultLocale,
		now:           time.Now,
	}
}

// Login exchanges credentials for catalog tokens and stores them as the
// operator's session. lang may be empty.
func (s *Service) Login(ctx context.Context, email, password, lang string) (*domain.Session, error) {
	in := credentials{Email: strings.TrimSpace(email), Password: password}
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	resp, err := s.api.Login(ctx, in.Email, in.Password)
	if err != nil {
		s.logger.Warn("catalog login failed", zap.String("operator", in.Email), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if !resp.Success || resp.Data.Access == "" {
		s.logger.Warn("catalog login refused", zap.String("operator", in.Email), zap.String("message", resp.Message))
		return nil, fmt.Errorf("%w: %s", ErrLoginFailed, resp.Message)
	}

	if !i18n.Supported(lang) {
		lang = s.defaultLocale
	}
	session, err := s.sessions.SaveSession(ctx, &domain.Session{
		Operator:     in.Email,
		AccessToken:  resp.Data.Access,
		RefreshToken: resp.Data.Refresh,
		Lang:         lang,
	})
	if err != nil {
		return nil, fmt.Errorf("auth: save session: %w", err)
	}
	s.logger.Info("operator logged in", zap.String("operator", session.Operator), zap.String("session_id", session.ID))
	return session, nil
}

// Logout forgets a session.
func (s *Service) Logout(ctx context.Context, id string) error {
	if err := s.sessions.DeleteSession(ctx, id); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return ErrUnauthenticated
		}
		return fmt.Errorf("auth: delete session: %w", err)
	}
	return nil
}

// Session returns an authenticated session by id.
func (s *Service) Session(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, ErrUnauthenticated
	}
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("auth: load session: %w", err)
	}
	if !IsAuthenticated(session.AccessToken, s.now()) {
		return nil, ErrUnauthenticated
	}
	return session, nil
}

// SetLocale changes the language of a session.
func (s *Service) SetLocale(ctx context.Context, id, lang string) (*domain.Session, error) {
	if !i18n.Supported(lang) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLocale, lang)
	}
	session, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	session.Lang = lang
	saved, err := s.sessions.SaveSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("auth: save session: %w", err)
	}
	return saved, nil
}

// IsAuthenticated reports whether token is usable at now. Tokens that are
// JWTs must not be expired; the signature is the catalog's business and is
// not checked here.
func IsAuthenticated(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return now.Before(claims.ExpiresAt.Time)
}
