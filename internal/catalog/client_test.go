package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-admin-console/internal/catalog"
	"catalog-admin-console/internal/catalog/catalogtest"
	"catalog-admin-console/internal/domain"
)

type staticTokens string

func (s staticTokens) AccessToken(context.Context) string { return string(s) }

type staticLocale string

func (s staticLocale) Locale(context.Context) string { return string(s) }

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestClient_Headers(t *testing.T) {
	srv := catalogtest.New(t)
	client := srv.Client(catalog.Options{})
	ctx := context.Background()

	_, err := client.ListProducts(ctx)
	require.NoError(t, err)
	req := srv.RequestsTo(http.MethodGet, catalog.PathProducts)[0]
	assert.Equal(t, "ru", req.Header.Get("Accept-Language"))
	assert.Empty(t, req.Header.Get("Authorization"))

	srv.Reset()
	client = srv.Client(catalog.Options{Tokens: staticTokens("abc"), Locale: staticLocale("uz")})
	_, err = client.ListCategories(ctx)
	require.NoError(t, err)
	_, err = client.Login(ctx, "admin@example.com", "secret")
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "Bearer abc", reqs[0].Header.Get("Authorization"))
	assert.Equal(t, "uz", reqs[0].Header.Get("Accept-Language"))
	assert.Empty(t, reqs[1].Header.Get("Authorization"), "login is sent without a token")
}

func TestClient_CreateProductSendsNulls(t *testing.T) {
	srv := catalogtest.New(t)
	srv.SetNextID(42)
	client := srv.Client(catalog.Options{})

	p, err := client.CreateProduct(context.Background(), domain.ProductPayload{TitleEn: "Halva", Price: "10"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.ID)

	body := srv.RequestsTo(http.MethodPost, catalog.PathProductCreate)[0].JSON
	assert.Contains(t, body, "old_price")
	assert.Nil(t, body["old_price"])
	assert.Contains(t, body, "category")
	assert.Nil(t, body["category"])
	assert.Equal(t, "10", body["price"])
}

func TestClient_UploadDescribesFile(t *testing.T) {
	srv := catalogtest.New(t)
	client := srv.Client(catalog.Options{})

	img, err := client.UploadProductImage(context.Background(), 9, domain.File{Data: pngBytes})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(img.Image, "/media/products/"))

	req := srv.RequestsTo(http.MethodPost, catalog.PathProductImages)[0]
	require.True(t, req.IsMultipart())
	assert.Equal(t, "9", req.Fields["product"])
	file := req.Files["image"]
	assert.Equal(t, "image/png", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".png"), file.Filename)
	assert.Equal(t, pngBytes, file.Data)
}

func TestForm_FieldNames(t *testing.T) {
	in := catalog.ProductColorInput{Product: 1, Color: 2, Price: "3", Image: domain.File{Name: "x.png"}}
	assert.Equal(t, []string{"product", "color", "price", "image"}, in.Form().FieldNames())
}

func TestClient_APIError(t *testing.T) {
	srv := catalogtest.New(t)
	client := srv.Client(catalog.Options{})

	err := client.DeleteProduct(context.Background(), 404)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrRequestFailed)
	var apiErr *catalog.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, catalog.ProductPath(404), apiErr.Path)
	assert.Contains(t, apiErr.Body, "not found")
}

func TestClient_Breaker(t *testing.T) {
	srv := catalogtest.New(t)
	client := srv.Client(catalog.Options{BreakerMaxFailures: 2, BreakerOpenFor: time.Minute})
	ctx := context.Background()

	// Client errors never trip the breaker.
	srv.Fail(http.MethodGet, catalog.PathColors, http.StatusBadRequest)
	for i := 0; i < 3; i++ {
		_, err := client.ListColors(ctx)
		require.Error(t, err)
	}
	assert.True(t, client.Healthy())

	srv.Fail(http.MethodGet, catalog.PathColors, http.StatusBadGateway)
	for i := 0; i < 2; i++ {
		_, err := client.ListColors(ctx)
		require.Error(t, err)
	}
	assert.False(t, client.Healthy())

	srv.Reset()
	_, err := client.ListCategories(ctx)
	assert.ErrorIs(t, err, catalog.ErrRequestFailed)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Empty(t, srv.Requests(), "an open breaker sends nothing")
}

func TestClient_DecodesAliases(t *testing.T) {
	srv := catalogtest.New(t)
	srv.SeedProducts(domain.Product{ID: 1, Category: "sweets"}, domain.Product{ID: 2, Category: "7"})
	client := srv.Client(catalog.Options{})

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, domain.CategoryRef("sweets"), products[0].Category)
	id, ok := products[1].Category.ID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestClient_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	t.Cleanup(srv.Close)
	client := catalog.New(catalog.Options{BaseURL: srv.URL})

	_, err := client.ListProducts(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrRequestFailed)
	var apiErr *catalog.APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestClient_WithLocale(t *testing.T) {
	srv := catalogtest.New(t)
	client := srv.Client(catalog.Options{Locale: staticLocale("en")})

	_, err := client.ListColors(catalog.WithLocale(context.Background(), "uz"))
	require.NoError(t, err)
	_, err = client.ListColors(context.Background())
	require.NoError(t, err)

	reqs := srv.RequestsTo(http.MethodGet, catalog.PathColors)
	require.Len(t, reqs, 2)
	assert.Equal(t, "uz", reqs[0].Header.Get("Accept-Language"))
	assert.Equal(t, "en", reqs[1].Header.Get("Accept-Language"))
}
