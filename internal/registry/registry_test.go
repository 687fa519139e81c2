package registry

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-admin-console/internal/catalog"
	"catalog-admin-console/internal/catalog/catalogtest"
	"catalog-admin-console/internal/domain"
	"catalog-admin-console/internal/ui"
)

func newClient(t *testing.T) (*catalogtest.Server, *catalog.Client) {
	t.Helper()
	srv := catalogtest.New(t)
	return srv, srv.Client(catalog.Options{})
}

func TestRegistry_RefreshKeepsListOnFailure(t *testing.T) {
	srv, client := newClient(t)
	srv.SeedColors(domain.Color{ID: 1, Name: "Red"}, domain.Color{ID: 2, Name: "Blue"})
	rec := &ui.Recorder{}
	colors := NewColors(client, Env{Notifier: rec})

	assert.False(t, colors.Loaded())
	require.NoError(t, colors.Refresh(context.Background()))
	assert.True(t, colors.Loaded())
	assert.Equal(t, 2, colors.Len())

	srv.Fail(http.MethodGet, catalog.PathColors, http.StatusBadRequest)
	err := colors.Refresh(context.Background())
	assert.ErrorIs(t, err, catalog.ErrRequestFailed)
	assert.Equal(t, 2, colors.Len())
	assert.Equal(t, []ui.Notification{{Kind: ui.Error, Message: "fetchcolors.failedToFetch"}}, rec.Notifications())

	c, ok := colors.Find(2)
	require.True(t, ok)
	assert.Equal(t, "Blue", c.Name)
	_, ok = colors.Find(3)
	assert.False(t, ok)
}

func TestRegistry_ScopedNotifier(t *testing.T) {
	srv, client := newClient(t)
	srv.Fail(http.MethodGet, catalog.PathCategories, http.StatusBadRequest)
	shared := &ui.Recorder{}
	categories := NewCategories(client, Env{Notifier: shared})

	scoped := &ui.Recorder{}
	ctx := ui.WithNotifier(context.Background(), scoped)
	ctx = ui.WithTranslator(ctx, ui.Keys{})
	require.Error(t, categories.Refresh(ctx))

	assert.True(t, shared.Has(ui.Error))
	assert.True(t, scoped.Has(ui.Error))
}

func TestCategories_Create(t *testing.T) {
	srv, client := newClient(t)
	srv.SetNextID(30)
	rec := &ui.Recorder{}
	categories := NewCategories(client, Env{Notifier: rec})

	_, err := categories.CreateCategory(context.Background(), NewCategory{NameUz: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, srv.Requests())

	created, err := categories.CreateCategory(context.Background(), NewCategory{NameEn: " Dried Fruit "})
	require.NoError(t, err)
	assert.Equal(t, int64(30), created.ID)
	assert.Equal(t, 1, categories.Len())
	assert.Equal(t, "Dried Fruit", srv.Requests()[0].Fields["name_en"])
	assert.Equal(t, []ui.Notification{{Kind: ui.Success, Message: "fetchcategories.created"}}, rec.Notifications())

	srv.Fail(http.MethodPost, catalog.PathCategories, http.StatusBadRequest)
	_, err = categories.CreateCategory(context.Background(), NewCategory{NameRu: "Орехи"})
	assert.Error(t, err)
	assert.Equal(t, 1, categories.Len())
	assert.True(t, rec.Has(ui.Error))
}

func TestCategories_Resolve(t *testing.T) {
	srv, client := newClient(t)
	srv.SeedCategories(
		domain.Category{ID: 5, Slug: "sweets"},
		domain.Category{ID: 6, Slug: "12"},
	)
	categories := NewCategories(client, Env{})
	require.NoError(t, categories.Refresh(context.Background()))

	for ref, want := range map[domain.CategoryRef]int64{
		"sweets":  5,
		"12":      6,
		"9":       9,
		"unknown": 0,
		"":        0,
		"-3":      0,
	} {
		assert.Equal(t, want, categories.Resolve(ref), "ref %q", ref)
	}
}

func TestColors_Create(t *testing.T) {
	srv, client := newClient(t)
	colors := NewColors(client, Env{})

	_, err := colors.CreateColor(context.Background(), "Red", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = colors.CreateColor(context.Background(), " ", &domain.File{Name: "r.png", Data: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, srv.Requests())

	created, err := colors.CreateColor(context.Background(), "Red", &domain.File{Name: "r.png", Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "Red", created.Name)
	assert.Equal(t, 1, colors.Len())
}

func TestTypes_CreateAndLabel(t *testing.T) {
	srv, client := newClient(t)
	srv.SeedTypes(domain.FeatureType{ID: 1, NameRu: "Вес"})
	types := NewTypes(client, Env{})
	require.NoError(t, types.Refresh(context.Background()))

	assert.Equal(t, "Вес", types.Label(1, "ru"))
	assert.Equal(t, "Вес", types.Label(1, "en"))
	assert.Equal(t, "Type 99", types.Label(99, "ru"))

	_, err := types.CreateType(context.Background(), NewType{Product: 4})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	created, err := types.CreateType(context.Background(), NewType{Product: 4, NameEn: "Size"})
	require.NoError(t, err)
	assert.Equal(t, "Size", types.Label(created.ID, "uz"))
	body := srv.RequestsTo(http.MethodPost, catalog.PathFeatureTypes)[0].JSON
	assert.EqualValues(t, 4, body["product"])
}

func TestRegistry_PinnedLocale(t *testing.T) {
	srv := catalogtest.New(t)
	client := srv.Client(catalog.Options{Locale: staticLocale("en")})
	srv.SeedTypes(domain.FeatureType{ID: 1, Name: "Вес", NameUz: "Og'irlik", NameRu: "Вес", NameEn: "Weight"})
	types := NewTypes(client, Env{Locale: "ru"})

	require.NoError(t, types.Refresh(context.Background()))
	_, err := types.CreateType(context.Background(), NewType{NameEn: "Size"})
	require.NoError(t, err)

	for _, req := range srv.Requests() {
		assert.Equal(t, "ru", req.Header.Get("Accept-Language"), req.Path)
	}
	assert.Equal(t, "Weight", types.Label(1, "en"))
	assert.Equal(t, "Og'irlik", types.Label(1, "uz"))
}

type staticLocale string

func (s staticLocale) Locale(context.Context) string { return string(s) }
