package composer

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"catalog-admin-console/internal/catalog"
	"catalog-admin-console/internal/catalog/catalogtest"
	"catalog-admin-console/internal/domain"
	"catalog-admin-console/internal/registry"
	"catalog-admin-console/internal/ui"
)

var (
	fileA = domain.File{Name: "a.png", ContentType: "image/png", Data: []byte("image-a")}
	fileB = domain.File{Name: "b.png", ContentType: "image/png", Data: []byte("image-b")}
)

type fixture struct {
	srv    *catalogtest.Server
	client *catalog.Client
	rec    *ui.Recorder
	env    Env
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := catalogtest.New(t)
	rec := &ui.Recorder{}
	return &fixture{
		srv:    srv,
		client: srv.Client(catalog.Options{}),
		rec:    rec,
		env:    Env{Notifier: rec, Confirmer: ui.AlwaysConfirm},
	}
}

func (f *fixture) categories(t *testing.T) *registry.Categories {
	t.Helper()
	cats := registry.NewCategories(f.client, registry.Env{Notifier: f.rec})
	require.NoError(t, cats.Refresh(context.Background()))
	return cats
}

func messages(rec *ui.Recorder, kind ui.Kind) []string {
	var out []string
	for _, n := range rec.Notifications() {
		if n.Kind == kind {
			out = append(out, n.Message)
		}
	}
	return out
}

func TestComposer_SubmitCreateUploadsImagesInOrder(t *testing.T) {
	f := newFixture(t)
	f.srv.SetNextID(77)
	ctx := context.Background()

	c := New(f.client, nil, f.env)
	c.OpenCreate()
	c.Edit(func(d *Draft) {
		d.TitleEn = "Rice"
		d.Price = "10"
		d.Category = 2
	})
	require.Empty(t, c.Images().Add(ctx, fileA, fileB))

	res, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(77), res.Product.ID)
	assert.Len(t, res.Images, 2)
	assert.Empty(t, res.ImageErrors)

	var order []string
	for _, r := range f.srv.Requests() {
		order = append(order, r.Method+" "+r.Path)
	}
	assert.Equal(t, []string{
		"POST " + catalog.PathProductCreate,
		"POST " + catalog.PathProductImages,
		"POST " + catalog.PathProductImages,
		"GET " + catalog.PathProducts,
	}, order)

	creates := f.srv.RequestsTo(http.MethodPost, catalog.PathProductCreate)
	require.Len(t, creates, 1)
	assert.False(t, creates[0].IsMultipart())
	assert.Equal(t, "Rice", creates[0].JSON["title_en"])
	assert.Equal(t, "10", creates[0].JSON["price"])
	assert.Equal(t, float64(2), creates[0].JSON["category"])
	assert.Nil(t, creates[0].JSON["old_price"])

	uploads := f.srv.RequestsTo(http.MethodPost, catalog.PathProductImages)
	require.Len(t, uploads, 2)
	for i, want := range []domain.File{fileA, fileB} {
		assert.True(t, uploads[i].IsMultipart())
		assert.Equal(t, "77", uploads[i].Fields["product"])
		assert.Equal(t, want.Data, uploads[i].Files["image"].Data)
	}

	assert.False(t, c.IsOpen())
	assert.Equal(t, Draft{}, c.Draft())
	assert.Zero(t, c.Images().Len())
	require.Len(t, c.Products(), 1)
	assert.Len(t, c.Products()[0].Images, 2)
	assert.Equal(t, []string{"productManagement.imagesUploaded", "productManagement.productCreated"}, messages(f.rec, ui.Success))
}

func TestComposer_SubmitSendsNullCategoryAndOldPrice(t *testing.T) {
	f := newFixture(t)
	c := New(f.client, nil, f.env)
	c.OpenCreate()
	c.Edit(func(d *Draft) {
		d.TitleUz = "Guruch"
		d.Price = "5"
	})

	_, err := c.Submit(context.Background())
	require.NoError(t, err)

	creates := f.srv.RequestsTo(http.MethodPost, catalog.PathProductCreate)
	require.Len(t, creates, 1)
	category, ok := creates[0].JSON["category"]
	assert.True(t, ok, "category must be present")
	assert.Nil(t, category)
	oldPrice, ok := creates[0].JSON["old_price"]
	assert.True(t, ok, "old_price must be present")
	assert.Nil(t, oldPrice)
}

func TestDraft_Payload(t *testing.T) {
	d := Draft{Price: "12.50", OldPrice: "15", Category: 3}
	p := d.Payload()
	require.NotNil(t, p.OldPrice)
	assert.Equal(t, "15", *p.OldPrice)
	require.NotNil(t, p.Category)
	assert.Equal(t, int64(3), *p.Category)

	p = Draft{}.Payload()
	assert.Nil(t, p.OldPrice)
	assert.Nil(t, p.Category)
}

func TestComposer_SubmitFailureKeepsDraft(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail(http.MethodPost, catalog.PathProductCreate, http.StatusInternalServerError)
	ctx := context.Background()

	c := New(f.client, nil, f.env)
	c.OpenCreate()
	c.Edit(func(d *Draft) {
		d.TitleEn = "Rice"
		d.Price = "10"
	})
	c.Images().Add(ctx, fileA)

	res, err := c.Submit(ctx)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, catalog.ErrRequestFailed)

	assert.Empty(t, f.srv.RequestsTo(http.MethodPost, catalog.PathProductImages))
	assert.True(t, c.IsOpen())
	assert.Equal(t, "Rice", c.Draft().TitleEn)
	assert.Equal(t, 1, c.Images().PendingCount())
	assert.Equal(t, []string{"productManagement.failedCreate"}, messages(f.rec, ui.Error))
	assert.False(t, c.Submitting())
}

func TestComposer_SubmitImageFailuresAreReportedPerFile(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail(http.MethodPost, catalog.PathProductImages, http.StatusBadRequest)
	ctx := context.Background()

	c := New(f.client, nil, f.env)
	c.OpenCreate()
	c.Edit(func(d *Draft) {
		d.TitleEn = "Rice"
		d.Price = "10"
	})
	c.Images().Add(ctx, fileA, fileB)

	res, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Len(t, res.ImageErrors, 2)
	assert.Len(t, f.srv.RequestsTo(http.MethodPost, catalog.PathProductImages), 2)
	assert.Len(t, f.srv.Products(), 1, "product is not rolled back")
	assert.Equal(t, []string{"productManagement.errorUploading", "productManagement.errorUploading"}, messages(f.rec, ui.Error))
	assert.Equal(t, []string{"productManagement.productCreated"}, messages(f.rec, ui.Success))
	assert.False(t, c.IsOpen())
}

func TestComposer_OpenEditAndUpdate(t *testing.T) {
	f := newFixture(t)
	f.srv.SeedCategories(domain.Category{ID: 2, Name: "Rice", Slug: "rice"})
	old := "12"
	f.srv.SeedProducts(domain.Product{
		ID: 5, TitleEn: "Rice", Price: "10", OldPrice: &old, Category: "rice",
		Images: []domain.ProductImage{{ID: 1, Image: "/media/products/rice.png"}},
		Colors: []domain.ProductColorVariant{{ID: 9, Product: 5, Color: 3, Price: "11", Image: "/media/v.png"}},
	})
	ctx := context.Background()
	env := f.env
	env.MediaBaseURL = "https://media.example.com/"

	c := New(f.client, f.categories(t), env)
	require.NoError(t, c.Refresh(ctx))
	p, ok := c.Find(5)
	require.True(t, ok)

	c.OpenEdit(p)
	d := c.Draft()
	assert.True(t, d.Editing())
	assert.Equal(t, int64(2), d.Category)
	assert.Equal(t, "12", d.OldPrice)
	assert.Equal(t, []ColorDraft{{ColorID: 3, ImageURL: "/media/v.png", Price: "11"}}, d.Colors)
	assert.Equal(t, []string{"https://media.example.com/media/products/rice.png"}, c.Images().Previews())
	assert.Zero(t, c.Images().PendingCount())

	c.Edit(func(d *Draft) {
		d.ID = 99
		d.Price = "11"
	})
	_, err := c.Submit(ctx)
	require.NoError(t, err)

	puts := f.srv.RequestsTo(http.MethodPut, catalog.ProductPath(5))
	require.Len(t, puts, 1)
	assert.Equal(t, "11", puts[0].JSON["price"])
	assert.Equal(t, float64(2), puts[0].JSON["category"])
	assert.Empty(t, f.srv.RequestsTo(http.MethodPost, catalog.PathProductImages))
	assert.Equal(t, []string{"productManagement.productUpdated"}, messages(f.rec, ui.Success))
}

type mockProductAPI struct {
	mock.Mock
}

func (m *mockProductAPI) ListProducts(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	var products []domain.Product
	if arg0 := args.Get(0); arg0 != nil {
		products = arg0.([]domain.Product)
	}
	return products, args.Error(1)
}

func (m *mockProductAPI) CreateProduct(ctx context.Context, payload domain.ProductPayload) (*domain.Product, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductAPI) UpdateProduct(ctx context.Context, id int64, payload domain.ProductPayload) (*domain.Product, error) {
	args := m.Called(ctx, id, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductAPI) DeleteProduct(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockProductAPI) UploadProductImage(ctx context.Context, productID int64, image domain.File) (*domain.ProductImage, error) {
	args := m.Called(ctx, productID, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductImage), args.Error(1)
}

func TestComposer_SubmitRejectsConcurrentCall(t *testing.T) {
	api := new(mockProductAPI)
	started := make(chan struct{})
	release := make(chan struct{})
	api.On("CreateProduct", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&domain.Product{ID: 1}, nil).Once()
	api.On("ListProducts", mock.Anything).Return([]domain.Product{{ID: 1}}, nil)

	c := New(api, nil, Env{})
	c.OpenCreate()

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		done <- err
	}()
	<-started

	assert.True(t, c.Submitting())
	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, c.Submitting())
	api.AssertNumberOfCalls(t, "CreateProduct", 1)
}

func TestComposer_SubmitWithoutReturnedIDFails(t *testing.T) {
	api := new(mockProductAPI)
	api.On("CreateProduct", mock.Anything, mock.Anything).Return(&domain.Product{}, nil)
	rec := &ui.Recorder{}

	c := New(api, nil, Env{Notifier: rec})
	c.OpenCreate()
	c.Images().Add(context.Background(), fileA)

	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrMissingID)
	assert.True(t, c.IsOpen())
	assert.True(t, rec.Has(ui.Error))
	api.AssertNotCalled(t, "UploadProductImage", mock.Anything, mock.Anything, mock.Anything)
	api.AssertNotCalled(t, "ListProducts", mock.Anything)
}

func TestComposer_Delete(t *testing.T) {
	f := newFixture(t)
	f.srv.SeedProducts(domain.Product{ID: 1}, domain.Product{ID: 2})
	ctx := context.Background()

	t.Run("declined", func(t *testing.T) {
		env := f.env
		env.Confirmer = ui.NeverConfirm
		c := New(f.client, nil, env)
		require.NoError(t, c.Refresh(ctx))

		err := c.Delete(ctx, 1)
		assert.ErrorIs(t, err, ErrNotConfirmed)
		assert.Empty(t, f.srv.RequestsTo(http.MethodDelete, catalog.ProductPath(1)))
		assert.Len(t, c.Products(), 2)
	})

	t.Run("confirmed", func(t *testing.T) {
		var asked string
		env := f.env
		env.Confirmer = ui.ConfirmFunc(func(msg string) bool { asked = msg; return true })
		c := New(f.client, nil, env)
		require.NoError(t, c.Refresh(ctx))
		lists := len(f.srv.RequestsTo(http.MethodGet, catalog.PathProducts))

		require.NoError(t, c.Delete(ctx, 1))
		assert.Equal(t, "productManagement.deleteConfirm", asked)
		assert.Len(t, f.srv.RequestsTo(http.MethodDelete, catalog.ProductPath(1)), 1)
		assert.Len(t, f.srv.RequestsTo(http.MethodGet, catalog.PathProducts), lists, "no refetch after delete")
		_, ok := c.Find(1)
		assert.False(t, ok)
		assert.Len(t, c.Products(), 1)
	})

	t.Run("failure keeps product", func(t *testing.T) {
		c := New(f.client, nil, f.env)
		require.NoError(t, c.Refresh(ctx))
		err := c.Delete(ctx, 404)
		var apiErr *catalog.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		assert.Len(t, c.Products(), 1)
	})
}

func TestComposer_ProductsNewestFirstAndFilter(t *testing.T) {
	f := newFixture(t)
	f.srv.SeedCategories(domain.Category{ID: 2, Slug: "rice"}, domain.Category{ID: 3, Slug: "oil"})
	f.srv.SeedProducts(
		domain.Product{ID: 1, Category: "rice"},
		domain.Product{ID: 3, Category: "2"},
		domain.Product{ID: 2, Category: "oil"},
	)
	c := New(f.client, f.categories(t), f.env)
	require.NoError(t, c.Refresh(context.Background()))

	var ids []int64
	for _, p := range c.Products() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{3, 2, 1}, ids)

	ids = nil
	for _, p := range c.FilterByCategory(2) {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{3, 1}, ids)
	assert.Len(t, c.FilterByCategory(0), 3)
	assert.Len(t, c.Products(), 3, "filtering does not touch the list")
}

func TestComposer_RefreshFailureKeepsList(t *testing.T) {
	f := newFixture(t)
	f.srv.SeedProducts(domain.Product{ID: 1})
	c := New(f.client, nil, f.env)
	require.NoError(t, c.Refresh(context.Background()))

	f.srv.Fail(http.MethodGet, catalog.PathProducts, http.StatusBadGateway)
	require.Error(t, c.Refresh(context.Background()))
	assert.Len(t, c.Products(), 1)
	assert.Equal(t, []string{"productManagement.failedFetch"}, messages(f.rec, ui.Error))
}

func TestFormatPrice(t *testing.T) {
	sum := &Currency{NameUz: "so'm", NameRu: "сум", NameEn: "sum"}
	tests := []struct {
		name     string
		price    string
		currency *Currency
		lang     string
		want     string
	}{
		{"no currency", "10", nil, "en", "$10.00"},
		{"no currency rounds", "10.456", nil, "en", "$10.46"},
		{"currency drops trailing zeros", "10.50", sum, "ru", "10.5 сум"},
		{"currency uz", "7", sum, "uz-Latn", "7 so'm"},
		{"currency default en", "7.129", sum, "de", "7.13 sum"},
		{"invalid", "abc", sum, "en", "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPrice(tt.price, tt.currency, tt.lang))
		})
	}
}

func TestValidPrice(t *testing.T) {
	assert.True(t, ValidPrice(""))
	assert.True(t, ValidPrice("0"))
	assert.True(t, ValidPrice("12.50"))
	assert.False(t, ValidPrice("-1"))
	assert.False(t, ValidPrice("ten"))
}
