// Package registry holds the in-memory reference lists (categories, colours,
// feature types) shared by the product editors.
package registry

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"catalog-admin-console/internal/catalog"
	"catalog-admin-console/internal/ui"
)

// Env carries the collaborators every registry needs.
type Env struct {
	Notifier   ui.Notifier
	Translator ui.Translator
	Logger     *zap.Logger
	// Locale pins the Accept-Language of registry calls. Entries are shared by
	// every operator and localized on read with LocalName.
	Locale string
}

func (e Env) withDefaults() Env {
	if e.Notifier == nil {
		e.Notifier = ui.Discard{}
	}
	if e.Translator == nil {
		e.Translator = ui.Keys{}
	}
	if e.Logger == nil {
		e.Logger = zap.NewNop()
	}
	return e
}

func (e Env) pin(ctx context.Context) context.Context {
	if e.Locale == "" {
		return ctx
	}
	return catalog.WithLocale(ctx, e.Locale)
}

func (e Env) notify(ctx context.Context, kind ui.Kind, key string) {
	msg := ui.TranslatorFrom(ctx, e.Translator).T(key)
	ui.NotifierFrom(ctx, e.Notifier).Notify(kind, msg)
}

// Registry is a read-through list of one reference entity. Entries are only
// ever appended after a successful create or replaced wholesale by Refresh.
type Registry[T any] struct {
	name    string
	fetch   func(ctx context.Context) ([]T, error)
	idOf    func(T) int64
	failKey string
	env     Env

	mu     sync.RWMutex
	items  []T
	loaded bool
}

func newRegistry[T any](name string, env Env, failKey string, fetch func(context.Context) ([]T, error), idOf func(T) int64) *Registry[T] {
	return &Registry[T]{name: name, fetch: fetch, idOf: idOf, failKey: failKey, env: env.withDefaults()}
}

// Refresh reloads the list from the API. On failure the previous list is kept
// and the operator is notified.
func (r *Registry[T]) Refresh(ctx context.Context) error {
	items, err := r.fetch(r.env.pin(ctx))
	if err != nil {
		r.env.Logger.Warn("registry refresh failed", zap.String("registry", r.name), zap.Error(err))
		r.env.notify(ctx, ui.Error, r.failKey)
		return fmt.Errorf("registry: refresh %s: %w", r.name, err)
	}
	r.mu.Lock()
	r.items = append([]T(nil), items...)
	r.loaded = true
	r.mu.Unlock()
	return nil
}

// Loaded reports whether at least one Refresh succeeded.
func (r *Registry[T]) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// List returns a copy of the entries in API order.
func (r *Registry[T]) List() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]T(nil), r.items...)
}

// Len returns the number of entries.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Find looks an entry up by id.
func (r *Registry[T]) Find(id int64) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, it := range r.items {
		if r.idOf(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func (r *Registry[T]) add(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, item)
}
