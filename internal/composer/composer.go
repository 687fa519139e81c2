// Package composer implements the product composition workflow: the product
// form itself, the colour variant and feature editors that attach
// sub-resources to a saved product, and the image attachment editor.
package composer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"catalog-admin-console/internal/domain"
	"catalog-admin-console/internal/registry"
	"catalog-admin-console/internal/ui"
)

var (
	// ErrSubmitInProgress is returned when Submit is called while a previous
	// submission has not settled.
	ErrSubmitInProgress = errors.New("composer: submit already in progress")
	// ErrNotConfirmed is returned when the operator declined a destructive action.
	ErrNotConfirmed = errors.New("composer: not confirmed")
	// ErrMissingID is returned when a product write succeeds without telling us the product id.
	ErrMissingID = errors.New("composer: product id missing from response")
)

// Env carries the collaborators shared by every editor in this package.
type Env struct {
	Notifier   ui.Notifier
	Confirmer  ui.Confirmer
	Translator ui.Translator
	Logger     *zap.Logger

	// MediaBaseURL prefixes relative image paths returned by the API.
	MediaBaseURL string
	// Lang selects the language of reference entity names.
	Lang string
}

func (e Env) withDefaults() Env {
	if e.Notifier == nil {
		e.Notifier = ui.Discard{}
	}
	if e.Confirmer == nil {
		e.Confirmer = ui.NeverConfirm
	}
	if e.Translator == nil {
		e.Translator = ui.Keys{}
	}
	if e.Logger == nil {
		e.Logger = zap.NewNop()
	}
	return e
}

func (e Env) t(ctx context.Context, key string) string {
	return ui.TranslatorFrom(ctx, e.Translator).T(key)
}

func (e Env) notify(ctx context.Context, kind ui.Kind, key string) {
	ui.NotifierFrom(ctx, e.Notifier).Notify(kind, e.t(ctx, key))
}

func (e Env) mediaURL(path string) string { return MediaURL(e.MediaBaseURL, path) }

// MediaURL turns an image path returned by the API into an absolute URL under
// base. Absolute and data URLs are returned unchanged.
func MediaURL(base, path string) string {
	switch {
	case path == "", base == "":
		return path
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"), strings.HasPrefix(path, "data:"):
		return path
	case strings.HasPrefix(path, "/"):
		return strings.TrimRight(base, "/") + path
	default:
		return strings.TrimRight(base, "/") + "/" + path
	}
}

// ProductAPI is the part of the catalog client the composer uses.
type ProductAPI interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, payload domain.ProductPayload) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, payload domain.ProductPayload) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ImageUploader
}

// Draft is the in-memory product form. ID is zero while creating.
type Draft struct {
	ID            int64
	TitleUz       string
	TitleEn       string
	TitleRu       string
	DescriptionUz string
	DescriptionEn string
	DescriptionRu string
	Price         string
	OldPrice      string
	Category      int64
	Colors        []ColorDraft
	Features      []domain.ProductFeature
}

// Editing reports whether the draft belongs to an existing product.
func (d Draft) Editing() bool { return d.ID != 0 }

// Payload builds the scalar body of the product write. An empty old price and
// a zero category are sent as null.
func (d Draft) Payload() domain.ProductPayload {
	p := domain.ProductPayload{
		TitleUz:       d.TitleUz,
		TitleEn:       d.TitleEn,
		TitleRu:       d.TitleRu,
		DescriptionUz: d.DescriptionUz,
		DescriptionEn: d.DescriptionEn,
		DescriptionRu: d.DescriptionRu,
		Price:         d.Price,
	}
	if d.OldPrice != "" {
		old := d.OldPrice
		p.OldPrice = &old
	}
	if d.Category != 0 {
		category := d.Category
		p.Category = &category
	}
	return p
}

// Result describes a completed submission.
type Result struct {
	Product domain.Product
	Images  []domain.ProductImage
	// ImageErrors holds one error per pending image that failed to upload.
	ImageErrors []error
}

// Composer owns the product form and the product list.
type Composer struct {
	api        ProductAPI
	categories *registry.Categories
	env        Env
	submitting atomic.Bool

	mu       sync.Mutex
	open     bool
	draft    Draft
	images   *ImageEditor
	products []domain.Product
}

// New creates a Composer. categories may be nil, in which case category
// values are only resolved when they are numeric ids.
func New(api ProductAPI, categories *registry.Categories, env Env) *Composer {
	env = env.withDefaults()
	return &Composer{
		api:        api,
		categories: categories,
		env:        env,
		images:     NewImageEditor(api, env, Delayed),
	}
}

// OpenCreate resets the draft to empty defaults and opens the form.
func (c *Composer) OpenCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = Draft{}
	c.images.Reset()
	c.open = true
}

// OpenEdit loads an existing product into the draft and opens the form.
func (c *Composer) OpenEdit(p domain.Product) {
	d := Draft{
		ID:            p.ID,
		TitleUz:       p.TitleUz,
		TitleEn:       p.TitleEn,
		TitleRu:       p.TitleRu,
		DescriptionUz: p.DescriptionUz,
		DescriptionEn: p.DescriptionEn,
		DescriptionRu: p.DescriptionRu,
		Price:         p.Price,
		Category:      c.resolveCategory(p.Category),
		Colors:        ColorDraftsFromProduct(p),
		Features:      append([]domain.ProductFeature(nil), p.Features...),
	}
	if p.OldPrice != nil {
		d.OldPrice = *p.OldPrice
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = d
	c.images.Reset()
	c.images.SetProduct(p.ID)
	for _, img := range p.Images {
		c.images.addStored(c.env.mediaURL(img.Image))
	}
	c.open = true
}

// Close discards the draft.
func (c *Composer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Composer) closeLocked() {
	c.open = false
	c.draft = Draft{}
	c.images.Reset()
}

// IsOpen reports whether the form is open.
func (c *Composer) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Submitting reports whether a submission is in flight.
func (c *Composer) Submitting() bool { return c.submitting.Load() }

// Draft returns a copy of the current draft.
func (c *Composer) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.draft
	d.Colors = append([]ColorDraft(nil), c.draft.Colors...)
	d.Features = append([]domain.ProductFeature(nil), c.draft.Features...)
	return d
}

// Edit applies fn to the draft. The draft id cannot be changed this way.
func (c *Composer) Edit(fn func(d *Draft)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.draft.ID
	fn(&c.draft)
	c.draft.ID = id
}

// Images returns the draft's image editor.
func (c *Composer) Images() *ImageEditor { return c.images }

// Submit writes the product, uploads pending images one at a time, refreshes
// the product list and closes the form. When the product write fails nothing
// else is attempted and the draft stays open. Image upload failures are
// reported individually and do not fail the submission.
func (c *Composer) Submit(ctx context.Context) (*Result, error) {
	if !c.submitting.CompareAndSwap(false, true) {
		return nil, ErrSubmitInProgress
	}
	defer c.submitting.Store(false)

	d := c.Draft()
	payload := d.Payload()

	var (
		saved *domain.Product
		err   error
	)
	if d.Editing() {
		saved, err = c.api.UpdateProduct(ctx, d.ID, payload)
	} else {
		saved, err = c.api.CreateProduct(ctx, payload)
	}
	if err == nil {
		if saved == nil {
			saved = &domain.Product{}
		}
		if d.Editing() {
			saved.ID = d.ID
		} else if saved.ID == 0 {
			err = ErrMissingID
		}
	}
	if err != nil {
		c.env.Logger.Error("product write failed", zap.Int64("product_id", d.ID), zap.Error(err))
		if d.Editing() {
			c.env.notify(ctx, ui.Error, "productManagement.failedUpdate")
		} else {
			c.env.notify(ctx, ui.Error, "productManagement.failedCreate")
		}
		return nil, fmt.Errorf("composer: submit product: %w", err)
	}

	res := &Result{Product: *saved}
	if c.images.PendingCount() > 0 {
		res.Images, res.ImageErrors = c.images.upload(ctx, saved.ID, "productManagement.errorUploading")
		if len(res.ImageErrors) == 0 {
			c.env.notify(ctx, ui.Success, "productManagement.imagesUploaded")
		}
	}

	// A failed refresh is reported by Refresh and leaves the old list in place.
	_ = c.Refresh(ctx)

	if d.Editing() {
		c.env.notify(ctx, ui.Success, "productManagement.productUpdated")
	} else {
		c.env.notify(ctx, ui.Success, "productManagement.productCreated")
	}
	c.Close()
	return res, nil
}

// Delete removes a product after the operator confirms. The local list is
// updated without refetching.
func (c *Composer) Delete(ctx context.Context, id int64) error {
	if !c.env.Confirmer.Confirm(c.env.t(ctx, "productManagement.deleteConfirm")) {
		return ErrNotConfirmed
	}
	if err := c.api.DeleteProduct(ctx, id); err != nil {
		c.env.Logger.Error("delete product failed", zap.Int64("product_id", id), zap.Error(err))
		c.env.notify(ctx, ui.Error, "productManagement.failedDelete")
		return fmt.Errorf("composer: delete product %d: %w", id, err)
	}
	c.mu.Lock()
	c.products = slices.DeleteFunc(c.products, func(p domain.Product) bool { return p.ID == id })
	c.mu.Unlock()
	c.env.notify(ctx, ui.Success, "productManagement.productDeleted")
	return nil
}

// Refresh reloads the product list. On failure the previous list is kept.
func (c *Composer) Refresh(ctx context.Context) error {
	products, err := c.api.ListProducts(ctx)
	if err != nil {
		c.env.Logger.Warn("list products failed", zap.Error(err))
		c.env.notify(ctx, ui.Error, "productManagement.failedFetch")
		return fmt.Errorf("composer: list products: %w", err)
	}
	slices.SortStableFunc(products, func(a, b domain.Product) int {
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
	c.mu.Lock()
	c.products = products
	c.mu.Unlock()
	return nil
}

// Products returns the product list, newest first.
func (c *Composer) Products() []domain.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Product(nil), c.products...)
}

// Find looks a product up in the local list.
func (c *Composer) Find(id int64) (domain.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// FilterByCategory returns the products filed under category id. Zero means all.
func (c *Composer) FilterByCategory(id int64) []domain.Product {
	products := c.Products()
	if id == 0 {
		return products
	}
	out := products[:0]
	for _, p := range products {
		if c.resolveCategory(p.Category) == id {
			out = append(out, p)
		}
	}
	return out
}

func (c *Composer) resolveCategory(ref domain.CategoryRef) int64 {
	if c.categories != nil {
		return c.categories.Resolve(ref)
	}
	id, _ := ref.ID()
	return id
}
