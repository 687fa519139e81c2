package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"catalog-admin-console/internal/catalog"
	"catalog-admin-console/internal/domain"
	"catalog-admin-console/internal/ui"
)

var validate = validator.New()

// CategoryAPI is the part of the catalog client the category registry uses.
type CategoryAPI interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, in catalog.CategoryInput) (*domain.Category, error)
}

// ColorAPI is the part of the catalog client the colour registry uses.
type ColorAPI interface {
	ListColors(ctx context.Context) ([]domain.Color, error)
	CreateColor(ctx context.Context, name string, image domain.File) (*domain.Color, error)
}

// TypeAPI is the part of the catalog client the feature type registry uses.
type TypeAPI interface {
	ListFeatureTypes(ctx context.Context) ([]domain.FeatureType, error)
	CreateFeatureType(ctx context.Context, in catalog.FeatureTypeInput) (*domain.FeatureType, error)
}

// --- Categories ---

// Categories is the category registry.
type Categories struct {
	*Registry[domain.Category]
	api CategoryAPI
}

func NewCategories(api CategoryAPI, env Env) *Categories {
	return &Categories{
		Registry: newRegistry("categories", env, "fetchcategories.failedToFetch", api.ListCategories,
			func(c domain.Category) int64 { return c.ID }),
		api: api,
	}
}

// NewCategory is the input of CreateCategory. At least one name is required.
type NewCategory struct {
	NameUz string `validate:"required_without_all=NameEn NameRu"`
	NameEn string `validate:"required_without_all=NameUz NameRu"`
	NameRu string `validate:"required_without_all=NameUz NameEn"`
	Image  *domain.File
}

// CreateCategory creates a category and appends it on success.
func (c *Categories) CreateCategory(ctx context.Context, in NewCategory) (*domain.Category, error) {
	in.NameUz, in.NameEn, in.NameRu = strings.TrimSpace(in.NameUz), strings.TrimSpace(in.NameEn), strings.TrimSpace(in.NameRu)
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	created, err := c.api.CreateCategory(c.env.pin(ctx), catalog.CategoryInput{NameUz: in.NameUz, NameEn: in.NameEn, NameRu: in.NameRu, Image: in.Image})
	if err != nil {
		c.env.Logger.Warn("create category failed", zap.Error(err))
		c.env.notify(ctx, ui.Error, "fetchcategories.failedToCreate")
		return nil, err
	}
	c.add(*created)
	c.env.notify(ctx, ui.Success, "fetchcategories.created")
	return created, nil
}

// Resolve maps a product's stored category value to a category id. The value
// is matched against slugs first; a numeric value is accepted as an id.
func (c *Categories) Resolve(ref domain.CategoryRef) int64 {
	if ref == "" {
		return 0
	}
	for _, cat := range c.List() {
		if cat.Slug != "" && cat.Slug == string(ref) {
			return cat.ID
		}
	}
	if id, ok := ref.ID(); ok {
		return id
	}
	return 0
}

// --- Colors ---

// Colors is the reference colour registry.
type Colors struct {
	*Registry[domain.Color]
	api ColorAPI
}

func NewColors(api ColorAPI, env Env) *Colors {
	return &Colors{
		Registry: newRegistry("colors", env, "fetchcolors.failedToFetch", api.ListColors,
			func(c domain.Color) int64 { return c.ID }),
		api: api,
	}
}

type newColor struct {
	Name  string       `validate:"required"`
	Image *domain.File `validate:"required"`
}

// CreateColor creates a colour from a non-empty name and a swatch image and
// appends it on success.
func (c *Colors) CreateColor(ctx context.Context, name string, image *domain.File) (*domain.Color, error) {
	in := newColor{Name: strings.TrimSpace(name), Image: image}
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	created, err := c.api.CreateColor(c.env.pin(ctx), in.Name, *image)
	if err != nil {
		c.env.Logger.Warn("create color failed", zap.Error(err))
		c.env.notify(ctx, ui.Error, "fetchcolors.failedToCreate")
		return nil, err
	}
	c.add(*created)
	c.env.notify(ctx, ui.Success, "fetchcolors.created")
	return created, nil
}

// --- Types ---

// Types is the feature type registry.
type Types struct {
	*Registry[domain.FeatureType]
	api TypeAPI
}

func NewTypes(api TypeAPI, env Env) *Types {
	return &Types{
		Registry: newRegistry("types", env, "types.failedToFetch", api.ListFeatureTypes,
			func(t domain.FeatureType) int64 { return t.ID }),
		api: api,
	}
}

// NewType is the input of CreateType. At least one name is required.
type NewType struct {
	Product int64
	NameUz  string `validate:"required_without_all=NameRu NameEn"`
	NameRu  string `validate:"required_without_all=NameUz NameEn"`
	NameEn  string `validate:"required_without_all=NameUz NameRu"`
}

// CreateType creates a feature type and appends it on success.
func (t *Types) CreateType(ctx context.Context, in NewType) (*domain.FeatureType, error) {
	in.NameUz, in.NameRu, in.NameEn = strings.TrimSpace(in.NameUz), strings.TrimSpace(in.NameRu), strings.TrimSpace(in.NameEn)
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	created, err := t.api.CreateFeatureType(t.env.pin(ctx), catalog.FeatureTypeInput{
		Product: in.Product, NameUz: in.NameUz, NameRu: in.NameRu, NameEn: in.NameEn,
	})
	if err != nil {
		t.env.Logger.Warn("create feature type failed", zap.Error(err))
		t.env.notify(ctx, ui.Error, "types.failedToCreate")
		return nil, err
	}
	t.add(*created)
	t.env.notify(ctx, ui.Success, "types.created")
	return created, nil
}

// Label returns the name of a type in lang, or "Type N" when it is unknown.
func (t *Types) Label(id int64, lang string) string {
	if ft, ok := t.Find(id); ok {
		if n := ft.LocalName(lang); n != "" {
			return n
		}
	}
	return fmt.Sprintf("Type %d", id)
}
