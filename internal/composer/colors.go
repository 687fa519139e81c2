package composer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"catalog-admin-console/internal/catalog"
	"catalog-admin-console/internal/domain"
	"catalog-admin-console/internal/registry"
	"catalog-admin-console/internal/ui"
)

// ColorDraft is one selected colour in the variant editor. ImageURL holds the
// stored image of an attached variant; Image holds a newly chosen file.
type ColorDraft struct {
	ColorID  int64
	Image    *domain.File
	ImageURL string
	Price    string
}

func (d ColorDraft) hasImage() bool { return d.Image != nil || d.ImageURL != "" }

// ColorDraftsFromProduct maps a product's attached variants into draft shape.
func ColorDraftsFromProduct(p domain.Product) []ColorDraft {
	out := make([]ColorDraft, 0, len(p.Colors))
	for _, v := range p.Colors {
		out = append(out, ColorDraft{ColorID: v.Color, ImageURL: v.Image, Price: v.Price})
	}
	return out
}

// AttachRequestFromDraft builds the attach request for one draft entry. The
// API requires an image part, so a transparent placeholder stands in when no
// new file was chosen.
func AttachRequestFromDraft(productID int64, d ColorDraft) catalog.ProductColorInput {
	in := catalog.ProductColorInput{Product: productID, Color: d.ColorID, Price: d.Price}
	if d.Image != nil {
		in.Image = *d.Image
	} else {
		in.Image = PlaceholderImage()
	}
	return in
}

var placeholderPNG = func() []byte {
	var buf bytes.Buffer
	// A fresh NRGBA image is fully transparent.
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		panic(fmt.Sprintf("composer: encode placeholder: %v", err))
	}
	return buf.Bytes()
}()

// PlaceholderImage returns a 1x1 transparent PNG.
func PlaceholderImage() domain.File {
	return domain.File{
		Name:        "placeholder.png",
		ContentType: "image/png",
		Data:        bytes.Clone(placeholderPNG),
	}
}

// ColorEditor tracks the colours selected for a product, each with its own
// image and price.
type ColorEditor struct {
	colors       *registry.Colors
	env          Env
	singleSelect bool

	mu       sync.Mutex
	selected []ColorDraft
}

// NewColorEditor creates an editor seeded with selected. Under singleSelect at
// most one colour is selected at a time.
func NewColorEditor(colors *registry.Colors, env Env, selected []ColorDraft, singleSelect bool) *ColorEditor {
	if singleSelect && len(selected) > 1 {
		selected = selected[:1]
	}
	return &ColorEditor{
		colors:       colors,
		env:          env.withDefaults(),
		singleSelect: singleSelect,
		selected:     append([]ColorDraft(nil), selected...),
	}
}

// Toggle deselects colorID if it is selected and selects it otherwise.
func (e *ColorEditor) Toggle(colorID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.indexLocked(colorID); i >= 0 {
		e.selected = slices.Delete(e.selected, i, i+1)
		return
	}
	e.selectLocked(colorID)
}

func (e *ColorEditor) selectLocked(colorID int64) {
	d := ColorDraft{ColorID: colorID}
	if e.singleSelect {
		e.selected = []ColorDraft{d}
		return
	}
	e.selected = append(e.selected, d)
}

func (e *ColorEditor) indexLocked(colorID int64) int {
	return slices.IndexFunc(e.selected, func(d ColorDraft) bool { return d.ColorID == colorID })
}

// IsSelected reports whether colorID is selected.
func (e *ColorEditor) IsSelected(colorID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.indexLocked(colorID) >= 0
}

// SetImage replaces the image of the selected colorID only.
func (e *ColorEditor) SetImage(colorID int64, file *domain.File) bool {
	return e.update(colorID, func(d *ColorDraft) { d.Image = file })
}

// SetPrice replaces the price of the selected colorID only.
func (e *ColorEditor) SetPrice(colorID int64, price string) bool {
	return e.update(colorID, func(d *ColorDraft) { d.Price = price })
}

func (e *ColorEditor) update(colorID int64, fn func(d *ColorDraft)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.indexLocked(colorID)
	if i < 0 {
		return false
	}
	fn(&e.selected[i])
	return true
}

// Selected returns a copy of the selection.
func (e *ColorEditor) Selected() []ColorDraft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ColorDraft(nil), e.selected...)
}

// Clear drops the selection.
func (e *ColorEditor) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = nil
}

// CanCommit is false while nothing is selected or any selected colour lacks
// both a price and an image.
func (e *ColorEditor) CanCommit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.selected) == 0 {
		return false
	}
	for _, d := range e.selected {
		if strings.TrimSpace(d.Price) == "" && !d.hasImage() {
			return false
		}
	}
	return true
}

// CreateColor creates a reference colour and selects it.
func (e *ColorEditor) CreateColor(ctx context.Context, name string, swatch *domain.File) (*domain.Color, error) {
	c, err := e.colors.CreateColor(ctx, name, swatch)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.indexLocked(c.ID) < 0 {
		e.selectLocked(c.ID)
	}
	e.mu.Unlock()
	return c, nil
}

// ProductColorAPI is the part of the catalog client the attachment session uses.
type ProductColorAPI interface {
	ListProductColors(ctx context.Context) ([]domain.ProductColorVariant, error)
	CreateProductColor(ctx context.Context, in catalog.ProductColorInput) (*domain.ProductColorVariant, error)
	DeleteProductColor(ctx context.Context, id int64) error
}

// Attachments manages the colour variants attached to one saved product.
type Attachments struct {
	api       ProductColorAPI
	env       Env
	productID int64
	editor    *ColorEditor

	mu            sync.Mutex
	productColors []domain.ProductColorVariant
}

// NewAttachments opens an attachment session for productID. The editor works
// in single-select mode since variants are attached one at a time.
func NewAttachments(api ProductColorAPI, colors *registry.Colors, env Env, productID int64) *Attachments {
	env = env.withDefaults()
	return &Attachments{
		api:       api,
		env:       env,
		productID: productID,
		editor:    NewColorEditor(colors, env, nil, true),
	}
}

func (a *Attachments) ProductID() int64 { return a.productID }

// Editor returns the colour selection of this session.
func (a *Attachments) Editor() *ColorEditor { return a.editor }

// Load fetches every variant and keeps those of this product.
func (a *Attachments) Load(ctx context.Context) error {
	all, err := a.api.ListProductColors(ctx)
	if err != nil {
		a.env.Logger.Warn("list product colors failed", zap.Int64("product_id", a.productID), zap.Error(err))
		a.env.notify(ctx, ui.Error, "productManagement.failedFetchColors")
		return fmt.Errorf("composer: list product colors: %w", err)
	}
	own := make([]domain.ProductColorVariant, 0, len(all))
	for _, v := range all {
		if v.Product == a.productID {
			v.Image = a.env.mediaURL(v.Image)
			own = append(own, v)
		}
	}
	a.mu.Lock()
	a.productColors = own
	a.mu.Unlock()
	return nil
}

// ProductColors returns the variants attached to this product.
func (a *Attachments) ProductColors() []domain.ProductColorVariant {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.ProductColorVariant(nil), a.productColors...)
}

// AddColor attaches the first selected colour and reloads the variants.
func (a *Attachments) AddColor(ctx context.Context) (*domain.ProductColorVariant, error) {
	if !a.editor.CanCommit() {
		return nil, fmt.Errorf("composer: no colour ready to attach: %w", domain.ErrInvalidInput)
	}
	first := a.editor.Selected()[0]
	v, err := a.api.CreateProductColor(ctx, AttachRequestFromDraft(a.productID, first))
	if err != nil {
		a.env.Logger.Warn("attach color failed", zap.Int64("product_id", a.productID),
			zap.Int64("color_id", first.ColorID), zap.Error(err))
		a.env.notify(ctx, ui.Error, "productManagement.failedAddColor")
		return nil, fmt.Errorf("composer: attach color %d: %w", first.ColorID, err)
	}
	a.env.notify(ctx, ui.Success, "productManagement.colorAdded")
	a.editor.Clear()
	_ = a.Load(ctx)
	return v, nil
}

// RemoveColor deletes an attached variant and reloads the variants. On
// failure the local list is left as it was.
func (a *Attachments) RemoveColor(ctx context.Context, variantID int64) error {
	if err := a.api.DeleteProductColor(ctx, variantID); err != nil {
		a.env.Logger.Warn("remove color failed", zap.Int64("variant_id", variantID), zap.Error(err))
		a.env.notify(ctx, ui.Error, "productManagement.failedRemoveColor")
		return fmt.Errorf("composer: remove color variant %d: %w", variantID, err)
	}
	a.env.notify(ctx, ui.Success, "productManagement.colorRemoved")
	_ = a.Load(ctx)
	return nil
}
