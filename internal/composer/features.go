package composer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"catalog-admin-console/internal/catalog"
	"catalog-admin-console/internal/domain"
	"catalog-admin-console/internal/registry"
	"catalog-admin-console/internal/ui"
)

// FeatureAPI is the part of the catalog client the feature editor uses.
type FeatureAPI interface {
	ListFeatures(ctx context.Context) ([]domain.ProductFeature, error)
	CreateFeature(ctx context.Context, in catalog.FeatureInput) (*domain.ProductFeature, error)
	DeleteFeature(ctx context.Context, id int64) error
}

// FeatureForm is the add-feature form.
type FeatureForm struct {
	TypeID int64
	Value  string
	Price  string
}

// FeatureEditor lists, adds and removes the features of one product. The API
// cannot filter features by product, so every load fetches the whole
// collection and filters it here.
type FeatureEditor struct {
	api   FeatureAPI
	types *registry.Types
	env   Env

	mu        sync.Mutex
	productID int64
	features  []domain.ProductFeature
	form      FeatureForm
}

func NewFeatureEditor(api FeatureAPI, types *registry.Types, env Env) *FeatureEditor {
	return &FeatureEditor{api: api, types: types, env: env.withDefaults()}
}

// SetProduct switches the editor to productID and loads its features.
func (e *FeatureEditor) SetProduct(ctx context.Context, productID int64) error {
	e.mu.Lock()
	changed := e.productID != productID
	e.productID = productID
	if changed {
		e.features = nil
		e.form = FeatureForm{}
	}
	e.mu.Unlock()
	return e.Load(ctx)
}

func (e *FeatureEditor) ProductID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.productID
}

// Load refetches the features of the current product.
func (e *FeatureEditor) Load(ctx context.Context) error {
	productID := e.ProductID()
	all, err := e.api.ListFeatures(ctx)
	if err != nil {
		e.env.Logger.Warn("list features failed", zap.Int64("product_id", productID), zap.Error(err))
		e.env.notify(ctx, ui.Error, "fetchfeatures.failedToFetch")
		return fmt.Errorf("composer: list features: %w", err)
	}
	own := make([]domain.ProductFeature, 0, len(all))
	for _, f := range all {
		if f.Product != productID {
			continue
		}
		if f.TypeName == "" {
			f.TypeName = e.types.Label(f.Type, e.env.Lang)
		}
		own = append(own, f)
	}
	e.mu.Lock()
	if e.productID == productID {
		e.features = own
	}
	e.mu.Unlock()
	return nil
}

// Features returns the features of the current product in API order.
func (e *FeatureEditor) Features() []domain.ProductFeature {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.ProductFeature(nil), e.features...)
}

// Form returns the add-feature form.
func (e *FeatureEditor) Form() FeatureForm {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.form
}

// SetForm replaces the add-feature form.
func (e *FeatureEditor) SetForm(f FeatureForm) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.form = f
}

// AddFeature attaches a feature to the current product. The type must be
// known to the type registry and value and price must be non-blank; otherwise
// nothing is sent. The form keeps its input on failure and is cleared on
// success.
func (e *FeatureEditor) AddFeature(ctx context.Context, typeID int64, value, price string) (*domain.ProductFeature, error) {
	e.SetForm(FeatureForm{TypeID: typeID, Value: value, Price: price})

	value, price = strings.TrimSpace(value), strings.TrimSpace(price)
	productID := e.ProductID()
	if _, ok := e.types.Find(typeID); !ok || typeID == 0 || value == "" || price == "" || productID == 0 {
		return nil, fmt.Errorf("composer: incomplete feature: %w", domain.ErrInvalidInput)
	}

	created, err := e.api.CreateFeature(ctx, catalog.FeatureInput{Product: productID, Type: typeID, Value: value, Price: price})
	if err != nil {
		e.env.Logger.Warn("create feature failed", zap.Int64("product_id", productID), zap.Error(err))
		e.env.notify(ctx, ui.Error, "fetchfeatures.failedToCreate")
		return nil, fmt.Errorf("composer: create feature: %w", err)
	}
	e.env.notify(ctx, ui.Success, "fetchfeatures.created")
	e.SetForm(FeatureForm{})
	_ = e.Load(ctx)
	return created, nil
}

// RemoveFeature deletes a feature and reloads the list.
func (e *FeatureEditor) RemoveFeature(ctx context.Context, id int64) error {
	if err := e.api.DeleteFeature(ctx, id); err != nil {
		e.env.Logger.Warn("delete feature failed", zap.Int64("feature_id", id), zap.Error(err))
		e.env.notify(ctx, ui.Error, "fetchfeatures.failedToDelete")
		return fmt.Errorf("composer: delete feature %d: %w", id, err)
	}
	e.env.notify(ctx, ui.Success, "fetchfeatures.deleted")
	_ = e.Load(ctx)
	return nil
}

// CreateType creates a feature type for the current product and pre-selects
// it in the add-feature form.
func (e *FeatureEditor) CreateType(ctx context.Context, nameUz, nameRu, nameEn string) (*domain.FeatureType, error) {
	ft, err := e.types.CreateType(ctx, registry.NewType{
		Product: e.ProductID(),
		NameUz:  nameUz,
		NameRu:  nameRu,
		NameEn:  nameEn,
	})
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.form.TypeID = ft.ID
	e.mu.Unlock()
	return ft, nil
}
