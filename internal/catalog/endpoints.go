package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"catalog-admin-console/internal/domain"
)

// Paths of the endpoints the console uses.
const (
	PathLogin               = "/user/admin/login/"
	PathProducts            = "/product/all/"
	PathProductCreate       = "/product/create/"
	PathProductImages       = "/product/create-images/"
	PathCategories          = "/product/categories/"
	PathColors              = "/product/create-color/"
	PathFeatureTypes        = "/product/create-product-type/"
	PathFeatures            = "/product/create-features/"
	PathProductColors       = "/product/create-product-colors/"
	PathProductColorsDetail = "/product/detail-product-colors/"
)

// ProductPath is the detail endpoint of one product.
func ProductPath(id int64) string { return "/product/" + strconv.FormatInt(id, 10) + "/" }

// FeaturePath is the detail endpoint of one product feature.
func FeaturePath(id int64) string { return "/product/detail-features/" + strconv.FormatInt(id, 10) + "/" }

// ProductColorPath is the detail endpoint of one colour variant.
func ProductColorPath(id int64) string {
	return PathProductColorsDetail + strconv.FormatInt(id, 10) + "/"
}

// --- Auth ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges operator credentials for a token pair. No bearer token is sent.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.LoginResponse, error) {
	var out domain.LoginResponse
	err := c.do(ctx, call{
		method:    http.MethodPost,
		path:      PathLogin,
		body:      jsonBody{loginRequest{Email: email, Password: password}},
		out:       &out,
		anonymous: true,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Products ---

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	if err := c.do(ctx, call{method: http.MethodGet, path: PathProducts, out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProduct(ctx context.Context, payload domain.ProductPayload) (*domain.Product, error) {
	var out domain.Product
	if err := c.do(ctx, call{method: http.MethodPost, path: PathProductCreate, body: jsonBody{payload}, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, payload domain.ProductPayload) (*domain.Product, error) {
	var out domain.Product
	if err := c.do(ctx, call{method: http.MethodPut, path: ProductPath(id), body: jsonBody{payload}, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: ProductPath(id)})
}

// UploadProductImage attaches one image to a product.
func (c *Client) UploadProductImage(ctx context.Context, productID int64, image domain.File) (*domain.ProductImage, error) {
	form := new(Form).
		AddFile("image", image).
		Set("product", strconv.FormatInt(productID, 10))
	var out domain.ProductImage
	if err := c.do(ctx, call{method: http.MethodPost, path: PathProductImages, body: form, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Reference entities ---

func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := c.do(ctx, call{method: http.MethodGet, path: PathCategories, out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

// CategoryInput is the multipart body of a new category.
type CategoryInput struct {
	NameUz string
	NameEn string
	NameRu string
	Image  *domain.File
}

func (c *Client) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	form := new(Form).Set("name_uz", in.NameUz).Set("name_en", in.NameEn).Set("name_ru", in.NameRu)
	if in.Image != nil {
		form.AddFile("image", *in.Image)
	}
	var out domain.Category
	if err := c.do(ctx, call{method: http.MethodPost, path: PathCategories, body: form, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListColors(ctx context.Context) ([]domain.Color, error) {
	var out []domain.Color
	if err := c.do(ctx, call{method: http.MethodGet, path: PathColors, out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateColor(ctx context.Context, name string, image domain.File) (*domain.Color, error) {
	form := new(Form).Set("name", name).AddFile("image", image)
	var out domain.Color
	if err := c.do(ctx, call{method: http.MethodPost, path: PathColors, body: form, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListFeatureTypes(ctx context.Context) ([]domain.FeatureType, error) {
	var out []domain.FeatureType
	if err := c.do(ctx, call{method: http.MethodGet, path: PathFeatureTypes, out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

// FeatureTypeInput is the JSON body of a new feature type.
type FeatureTypeInput struct {
	Product int64  `json:"product"`
	NameUz  string `json:"name_uz"`
	NameRu  string `json:"name_ru"`
	NameEn  string `json:"name_en"`
}

func (c *Client) CreateFeatureType(ctx context.Context, in FeatureTypeInput) (*domain.FeatureType, error) {
	var out domain.FeatureType
	if err := c.do(ctx, call{method: http.MethodPost, path: PathFeatureTypes, body: jsonBody{in}, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Product sub-resources ---

// ListFeatures returns every feature of every product; the API cannot filter by product.
func (c *Client) ListFeatures(ctx context.Context) ([]domain.ProductFeature, error) {
	var out []domain.ProductFeature
	if err := c.do(ctx, call{method: http.MethodGet, path: PathFeatures, out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

// FeatureInput is the JSON body of a new product feature.
type FeatureInput struct {
	Product int64  `json:"product"`
	Type    int64  `json:"type"`
	Value   string `json:"value"`
	Price   string `json:"price"`
}

func (c *Client) CreateFeature(ctx context.Context, in FeatureInput) (*domain.ProductFeature, error) {
	var out domain.ProductFeature
	if err := c.do(ctx, call{method: http.MethodPost, path: PathFeatures, body: jsonBody{in}, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteFeature(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: FeaturePath(id)})
}

// ListProductColors returns every colour variant of every product. Some
// deployments only serve the list from the detail collection, which is tried
// when the primary collection fails.
func (c *Client) ListProductColors(ctx context.Context) ([]domain.ProductColorVariant, error) {
	var out []domain.ProductColorVariant
	err := c.do(ctx, call{method: http.MethodGet, path: PathProductColors, out: &out})
	if err == nil {
		return out, nil
	}
	c.logger.Debug("product colors list failed, trying detail collection", zap.Error(err))
	out = nil
	if altErr := c.do(ctx, call{method: http.MethodGet, path: PathProductColorsDetail, out: &out}); altErr != nil {
		return nil, errors.Join(err, altErr)
	}
	return out, nil
}

// ProductColorInput is the multipart body of a new colour variant.
type ProductColorInput struct {
	Product int64
	Color   int64
	Price   string
	Image   domain.File
}

// Form renders the input in the field order the API expects.
func (in ProductColorInput) Form() *Form {
	return new(Form).
		Set("product", strconv.FormatInt(in.Product, 10)).
		Set("color", strconv.FormatInt(in.Color, 10)).
		Set("price", in.Price).
		AddFile("image", in.Image)
}

func (c *Client) CreateProductColor(ctx context.Context, in ProductColorInput) (*domain.ProductColorVariant, error) {
	var out domain.ProductColorVariant
	if err := c.do(ctx, call{method: http.MethodPost, path: PathProductColors, body: in.Form(), out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProductColor removes a colour variant, falling back to the collection
// path when the detail path refuses the request.
func (c *Client) DeleteProductColor(ctx context.Context, id int64) error {
	err := c.do(ctx, call{method: http.MethodDelete, path: ProductColorPath(id)})
	if err == nil {
		return nil
	}
	alt := PathProductColors + strconv.FormatInt(id, 10) + "/"
	if altErr := c.do(ctx, call{method: http.MethodDelete, path: alt}); altErr != nil {
		return fmt.Errorf("catalog: delete product color %d: %w", id, errors.Join(err, altErr))
	}
	return nil
}
