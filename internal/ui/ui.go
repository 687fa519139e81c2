// Package ui defines the capability surfaces the composition workflow calls
// into: notifications (toasts), interactive confirmation and translation.
package ui

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Kind classifies a notification.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
)

// Notifier shows a short message to the operator.
type Notifier interface {
	Notify(kind Kind, message string)
}

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(message string) bool
}

// Translator resolves a message key into the operator's language.
type Translator interface {
	T(key string) string
}

// Notification is one recorded message.
type Notification struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Recorder collects notifications, typically for the lifetime of one HTTP request.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(kind Kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{Kind: kind, Message: message})
}

// Notifications returns a copy of everything recorded so far.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Has reports whether a notification of the given kind was recorded.
func (r *Recorder) Has(kind Kind) bool {
	for _, n := range r.Notifications() {
		if n.Kind == kind {
			return true
		}
	}
	return false
}

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	Logger *zap.Logger
}

func (l LogNotifier) Notify(kind Kind, message string) {
	if l.Logger == nil {
		return
	}
	if kind == Error {
		l.Logger.Warn("notification", zap.String("kind", string(kind)), zap.String("message", message))
		return
	}
	l.Logger.Info("notification", zap.String("kind", string(kind)), zap.String("message", message))
}

// Fanout delivers each notification to every wrapped Notifier.
type Fanout []Notifier

func (f Fanout) Notify(kind Kind, message string) {
	for _, n := range f {
		if n != nil {
			n.Notify(kind, message)
		}
	}
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(message string) bool

func (f ConfirmFunc) Confirm(message string) bool { return f(message) }

// AlwaysConfirm and NeverConfirm answer every question the same way.
var (
	AlwaysConfirm Confirmer = ConfirmFunc(func(string) bool { return true })
	NeverConfirm  Confirmer = ConfirmFunc(func(string) bool { return false })
)

// Keys is a Translator that returns keys unchanged.
type Keys struct{}

func (Keys) T(key string) string { return key }

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(Kind, string) {}

type notifierKey struct{}

type translatorKey struct{}

// WithNotifier scopes an additional Notifier to ctx, e.g. one HTTP request.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, notifierKey{}, n)
}

// NotifierFrom returns fallback combined with the Notifier scoped to ctx, if any.
func NotifierFrom(ctx context.Context, fallback Notifier) Notifier {
	scoped, _ := ctx.Value(notifierKey{}).(Notifier)
	switch {
	case scoped == nil && fallback == nil:
		return Discard{}
	case scoped == nil:
		return fallback
	case fallback == nil:
		return scoped
	}
	return Fanout{fallback, scoped}
}

// WithTranslator scopes a Translator to ctx.
func WithTranslator(ctx context.Context, t Translator) context.Context {
	return context.WithValue(ctx, translatorKey{}, t)
}

// TranslatorFrom returns the Translator scoped to ctx, or fallback.
func TranslatorFrom(ctx context.Context, fallback Translator) Translator {
	if t, ok := ctx.Value(translatorKey{}).(Translator); ok {
		return t
	}
	if fallback == nil {
		return Keys{}
	}
	return fallback
}
