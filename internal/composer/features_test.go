package composer

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-admin-console/internal/catalog"
	"catalog-admin-console/internal/domain"
	"catalog-admin-console/internal/registry"
	"catalog-admin-console/internal/ui"
)

func newFeatureEditor(t *testing.T, f *fixture) *FeatureEditor {
	t.Helper()
	f.srv.SeedTypes(
		domain.FeatureType{ID: 1, Name: "Weight"},
		domain.FeatureType{ID: 2, NameRu: "Упаковка"},
	)
	f.srv.SeedFeatures(
		domain.ProductFeature{ID: 10, Product: 7, Type: 1, Value: "1kg", Price: "10"},
		domain.ProductFeature{ID: 11, Product: 8, Type: 1, Value: "2kg", Price: "18"},
		domain.ProductFeature{ID: 12, Product: 7, Type: 5, Value: "box", Price: "1"},
	)
	types := registry.NewTypes(f.client, registry.Env{Notifier: f.rec})
	require.NoError(t, types.Refresh(context.Background()))
	e := NewFeatureEditor(f.client, types, f.env)
	require.NoError(t, e.SetProduct(context.Background(), 7))
	f.srv.Reset()
	return e
}

func TestFeatureEditor_SetProductFiltersAndLabels(t *testing.T) {
	f := newFixture(t)
	e := newFeatureEditor(t, f)

	features := e.Features()
	require.Len(t, features, 2)
	assert.Equal(t, int64(10), features[0].ID)
	assert.Equal(t, "Weight", features[0].TypeName)
	assert.Equal(t, int64(12), features[1].ID)
	assert.Equal(t, "Type 5", features[1].TypeName)

	require.NoError(t, e.SetProduct(context.Background(), 8))
	require.Len(t, e.Features(), 1)
	assert.Equal(t, int64(11), e.Features()[0].ID)
}

func TestFeatureEditor_AddFeatureValidation(t *testing.T) {
	tests := []struct {
		name   string
		typeID int64
		value  string
		price  string
	}{
		{"empty value", 1, "", "10"},
		{"blank value", 1, "   ", "10"},
		{"empty price", 1, "1kg", ""},
		{"no type", 0, "1kg", "10"},
		{"unknown type", 42, "1kg", "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			e := newFeatureEditor(t, f)

			_, err := e.AddFeature(context.Background(), tt.typeID, tt.value, tt.price)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Empty(t, f.srv.Requests(), "no request may be sent")
			assert.Empty(t, messages(f.rec, ui.Error))
			assert.Equal(t, FeatureForm{TypeID: tt.typeID, Value: tt.value, Price: tt.price}, e.Form())
		})
	}
}

func TestFeatureEditor_AddFeature(t *testing.T) {
	f := newFixture(t)
	f.srv.SetNextID(50)
	e := newFeatureEditor(t, f)

	created, err := e.AddFeature(context.Background(), 2, " 500g ", "7")
	require.NoError(t, err)
	assert.Equal(t, int64(50), created.ID)

	posts := f.srv.RequestsTo(http.MethodPost, catalog.PathFeatures)
	require.Len(t, posts, 1)
	assert.False(t, posts[0].IsMultipart())
	assert.Equal(t, map[string]any{"product": float64(7), "type": float64(2), "value": "500g", "price": "7"}, posts[0].JSON)

	assert.Len(t, f.srv.RequestsTo(http.MethodGet, catalog.PathFeatures), 1, "list is refetched")
	require.Len(t, e.Features(), 3)
	assert.Equal(t, "Упаковка", e.Features()[2].TypeName)
	assert.Equal(t, FeatureForm{}, e.Form())
	assert.Equal(t, []string{"fetchfeatures.created"}, messages(f.rec, ui.Success))
}

func TestFeatureEditor_AddFeatureFailureKeepsForm(t *testing.T) {
	f := newFixture(t)
	e := newFeatureEditor(t, f)
	f.srv.Fail(http.MethodPost, catalog.PathFeatures, http.StatusBadRequest)

	_, err := e.AddFeature(context.Background(), 1, "3kg", "25")
	assert.ErrorIs(t, err, catalog.ErrRequestFailed)
	assert.Equal(t, FeatureForm{TypeID: 1, Value: "3kg", Price: "25"}, e.Form())
	assert.Len(t, e.Features(), 2)
	assert.Equal(t, []string{"fetchfeatures.failedToCreate"}, messages(f.rec, ui.Error))
}

func TestFeatureEditor_RemoveFeature(t *testing.T) {
	f := newFixture(t)
	e := newFeatureEditor(t, f)

	require.NoError(t, e.RemoveFeature(context.Background(), 10))
	require.Len(t, e.Features(), 1)
	assert.Equal(t, int64(12), e.Features()[0].ID)
	assert.Equal(t, []string{"fetchfeatures.deleted"}, messages(f.rec, ui.Success))

	err := e.RemoveFeature(context.Background(), 999)
	assert.ErrorIs(t, err, catalog.ErrRequestFailed)
	assert.Len(t, e.Features(), 1)
	assert.Equal(t, []string{"fetchfeatures.failedToDelete"}, messages(f.rec, ui.Error))
}

func TestFeatureEditor_CreateTypePreselects(t *testing.T) {
	f := newFixture(t)
	f.srv.SetNextID(60)
	e := newFeatureEditor(t, f)
	e.SetForm(FeatureForm{Value: "red", Price: "3"})

	_, err := e.CreateType(context.Background(), "", "  ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, f.srv.Requests())

	ft, err := e.CreateType(context.Background(), "", "", "Colour")
	require.NoError(t, err)
	assert.Equal(t, int64(60), ft.ID)
	assert.Equal(t, FeatureForm{TypeID: 60, Value: "red", Price: "3"}, e.Form())

	posts := f.srv.RequestsTo(http.MethodPost, catalog.PathFeatureTypes)
	require.Len(t, posts, 1)
	assert.Equal(t, float64(7), posts[0].JSON["product"])
	assert.Equal(t, "Colour", posts[0].JSON["name_en"])

	_, err = e.AddFeature(context.Background(), ft.ID, "red", "3")
	require.NoError(t, err)
}
