package auth

import (
	"context"

	"catalog-admin-console/internal/domain"
	"catalog-admin-console/internal/i18n"
)

type sessionKey struct{}

// WithSession attaches an authenticated session to ctx.
func WithSession(ctx context.Context, s *domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session attached to ctx, or nil.
func FromContext(ctx context.Context) *domain.Session {
	s, _ := ctx.Value(sessionKey{}).(*domain.Session)
	return s
}

// ContextTokens reads the catalog token and language from the session in the
// request context. It satisfies catalog.TokenSource and catalog.LocaleSource.
type ContextTokens struct {
	// DefaultLocale is used when the context carries no session.
	DefaultLocale string
}

func (ContextTokens) AccessToken(ctx context.Context) string {
	if s := FromContext(ctx); s != nil {
		return s.AccessToken
	}
	return ""
}

func (t ContextTokens) Locale(ctx context.Context) string {
	if s := FromContext(ctx); s != nil && s.Lang != "" {
		return s.Lang
	}
	if t.DefaultLocale != "" {
		return t.DefaultLocale
	}
	return i18n.DefaultLocale
}
