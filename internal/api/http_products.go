package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"catalog-admin-console/internal/auth"
	"catalog-admin-console/internal/composer"
	"catalog-admin-console/internal/domain"
	"catalog-admin-console/internal/i18n"
	"catalog-admin-console/internal/ui"
)

// ProductView is a product as the console lists it.
type ProductView struct {
	domain.Product
	CategoryID   int64  `json:"category_id"`
	DisplayPrice string `json:"display_price"`
}

// ProductForm is the scalar part of the multipart product form.
type ProductForm struct {
	TitleUz       string `validate:"required_without_all=TitleEn TitleRu"`
	TitleEn       string `validate:"required_without_all=TitleUz TitleRu"`
	TitleRu       string `validate:"required_without_all=TitleUz TitleEn"`
	DescriptionUz string
	DescriptionEn string
	DescriptionRu string
	Price         string `validate:"required,price"`
	OldPrice      string `validate:"omitempty,price"`
	Category      int64  `validate:"gte=0"`
}

func (f ProductForm) apply(d *composer.Draft) {
	d.TitleUz, d.TitleEn, d.TitleRu = f.TitleUz, f.TitleEn, f.TitleRu
	d.DescriptionUz, d.DescriptionEn, d.DescriptionRu = f.DescriptionUz, f.DescriptionEn, f.DescriptionRu
	d.Price, d.OldPrice, d.Category = f.Price, f.OldPrice, f.Category
}

// SubmitResult is the response of a product create or update.
type SubmitResult struct {
	Product     domain.Product        `json:"product"`
	Images      []domain.ProductImage `json:"images"`
	ImageErrors []string              `json:"image_errors,omitempty"`
}

// ImageUploadResult is the response of an image upload.
type ImageUploadResult struct {
	Uploaded []string `json:"uploaded"`
	Failed   []string `json:"failed,omitempty"`
}

func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

func lang(ctx context.Context) string {
	if s := auth.FromContext(ctx); s != nil && s.Lang != "" {
		return s.Lang
	}
	return i18n.DefaultLocale
}

// newComposer returns a product composer for one request. Categories are loaded
// first so stored category slugs resolve; a failed load is only reported.
func (h *HTTPHandler) newComposer(r *http.Request, confirm bool) *composer.Composer {
	_ = ensureLoaded(r.Context(), h.categories.Registry)
	env := h.env(r.Context())
	if confirm {
		env.Confirmer = ui.AlwaysConfirm
	}
	return composer.New(h.catalog, h.categories, env)
}

func (h *HTTPHandler) view(ctx context.Context, p domain.Product) ProductView {
	id := h.categories.Resolve(p.Category)
	for i := range p.Images {
		p.Images[i].Image = composer.MediaURL(h.mediaBaseURL, p.Images[i].Image)
	}
	return ProductView{
		Product:      p,
		CategoryID:   id,
		DisplayPrice: composer.FormatPrice(p.Price, nil, lang(ctx)),
	}
}

// readProductForm parses the multipart product form and its image files.
func (h *HTTPHandler) readProductForm(w http.ResponseWriter, r *http.Request) (ProductForm, []domain.File, error) {
	if err := h.parseMultipart(w, r); err != nil {
		return ProductForm{}, nil, err
	}
	category, err := formInt(r, "category")
	if err != nil {
		return ProductForm{}, nil, err
	}
	form := ProductForm{
		TitleUz:       strings.TrimSpace(r.FormValue("title_uz")),
		TitleEn:       strings.TrimSpace(r.FormValue("title_en")),
		TitleRu:       strings.TrimSpace(r.FormValue("title_ru")),
		DescriptionUz: r.FormValue("description_uz"),
		DescriptionEn: r.FormValue("description_en"),
		DescriptionRu: r.FormValue("description_ru"),
		Price:         strings.TrimSpace(r.FormValue("price")),
		OldPrice:      strings.TrimSpace(r.FormValue("old_price")),
		Category:      category,
	}
	if err := h.check(form); err != nil {
		return ProductForm{}, nil, err
	}
	files, err := formFiles(r, "images")
	if err != nil {
		return ProductForm{}, nil, err
	}
	return form, files, nil
}

// beginSubmit claims the operator's write of productID (0 while creating).
// It reports false when the same write is already in flight.
func (h *HTTPHandler) beginSubmit(ctx context.Context, productID int64) (release func(), ok bool) {
	key := submitKey{product: productID}
	if s := auth.FromContext(ctx); s != nil {
		key.session = s.ID
	}
	if _, busy := h.submits.LoadOrStore(key, struct{}{}); busy {
		return nil, false
	}
	return func() { h.submits.Delete(key) }, true
}

func (h *HTTPHandler) submit(w http.ResponseWriter, r *http.Request, c *composer.Composer, form ProductForm, files []domain.File, code int) {
	release, ok := h.beginSubmit(r.Context(), c.Draft().ID)
	if !ok {
		h.fail(w, r, composer.ErrSubmitInProgress)
		return
	}
	defer release()

	c.Edit(form.apply)
	c.Images().Add(r.Context(), files...)
	res, err := c.Submit(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, code, SubmitResult{
		Product:     res.Product,
		Images:      res.Images,
		ImageErrors: errorStrings(res.ImageErrors),
	})
}

// findProduct refreshes the product list and looks id up in it.
func (h *HTTPHandler) findProduct(w http.ResponseWriter, r *http.Request, c *composer.Composer) (domain.Product, bool) {
	id, err := pathID(r, "productId")
	if err != nil {
		h.fail(w, r, err)
		return domain.Product{}, false
	}
	if err := c.Refresh(r.Context()); err != nil {
		h.fail(w, r, err)
		return domain.Product{}, false
	}
	p, ok := c.Find(id)
	if !ok {
		respondWithJSON(w, http.StatusNotFound, ErrorResponse{
			Error:         fmt.Sprintf("product %d not found", id),
			Notifications: notifications(r.Context()),
		})
		return domain.Product{}, false
	}
	return p, true
}

// --- Products ---

// ListProducts returns products newest first, optionally filtered by ?category=ID.
func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	category, err := formInt(r, "category")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c := h.newComposer(r, false)
	if err := c.Refresh(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	products := c.FilterByCategory(category)
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, h.view(r.Context(), p))
	}
	h.respond(w, r, http.StatusOK, views)
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	c := h.newComposer(r, false)
	p, ok := h.findProduct(w, r, c)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK, h.view(r.Context(), p))
}

// CreateProduct writes a new product, then uploads the attached images.
func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	form, files, err := h.readProductForm(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c := h.newComposer(r, false)
	c.OpenCreate()
	h.submit(w, r, c, form, files, http.StatusCreated)
}

// UpdateProduct replaces the scalar fields of a product and uploads any new images.
func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	form, files, err := h.readProductForm(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c := h.newComposer(r, false)
	p, ok := h.findProduct(w, r, c)
	if !ok {
		return
	}
	c.OpenEdit(p)
	h.submit(w, r, c, form, files, http.StatusOK)
}

// DeleteProduct requires ?confirm=true.
func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "productId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c := h.newComposer(r, r.URL.Query().Get("confirm") == "true")
	if err := c.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, map[string]int64{"id": id})
}

// UploadImages uploads images to a saved product one by one. It answers 200
// when all succeed, 207 when some do and 502 when none do.
func (h *HTTPHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "productId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.parseMultipart(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	files, err := formFiles(r, "images")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if len(files) == 0 {
		h.fail(w, r, fmt.Errorf("%w: no images", domain.ErrInvalidInput))
		return
	}

	editor := composer.NewImageEditor(h.catalog, h.env(r.Context()), composer.Immediate)
	editor.SetProduct(id)
	errs := editor.Add(r.Context(), files...)

	res := ImageUploadResult{Uploaded: []string{}, Failed: errorStrings(errs)}
	for _, e := range editor.Entries() {
		if e.Uploaded {
			res.Uploaded = append(res.Uploaded, e.Location())
		}
	}
	code := http.StatusOK
	switch {
	case len(errs) > 0 && len(res.Uploaded) > 0:
		code = http.StatusMultiStatus
	case len(errs) > 0:
		code = http.StatusBadGateway
	}
	h.respond(w, r, code, res)
}

// --- Features ---

// FeatureInput defines the expected input for attaching a feature.
type FeatureInput struct {
	Type  int64  `json:"type" validate:"required,gt=0"`
	Value string `json:"value" validate:"required"`
	Price string `json:"price" validate:"required,price"`
}

// features opens a feature editor on the product in the path.
func (h *HTTPHandler) features(w http.ResponseWriter, r *http.Request) (*composer.FeatureEditor, bool) {
	id, err := pathID(r, "productId")
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	if err := ensureLoaded(r.Context(), h.types.Registry); err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	editor := composer.NewFeatureEditor(h.catalog, h.types, h.env(r.Context()))
	if err := editor.SetProduct(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return editor, true
}

func (h *HTTPHandler) ListFeatures(w http.ResponseWriter, r *http.Request) {
	editor, ok := h.features(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK, editor.Features())
}

func (h *HTTPHandler) AddFeature(w http.ResponseWriter, r *http.Request) {
	var input FeatureInput
	if err := h.decodeJSON(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	editor, ok := h.features(w, r)
	if !ok {
		return
	}
	if _, err := editor.AddFeature(r.Context(), input.Type, input.Value, input.Price); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, editor.Features())
}

func (h *HTTPHandler) RemoveFeature(w http.ResponseWriter, r *http.Request) {
	featureID, err := pathID(r, "featureId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	editor, ok := h.features(w, r)
	if !ok {
		return
	}
	if err := editor.RemoveFeature(r.Context(), featureID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, editor.Features())
}

// CreateProductType creates a feature type owned by the product in the path.
func (h *HTTPHandler) CreateProductType(w http.ResponseWriter, r *http.Request) {
	var input TypeInput
	if err := h.decodeJSON(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	editor, ok := h.features(w, r)
	if !ok {
		return
	}
	created, err := editor.CreateType(r.Context(), input.NameUz, input.NameRu, input.NameEn)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created.Name = created.LocalName(lang(r.Context()))
	h.respond(w, r, http.StatusCreated, created)
}

// --- Product colors ---

// attachments opens a colour attachment session on the product in the path.
func (h *HTTPHandler) attachments(w http.ResponseWriter, r *http.Request) (*composer.Attachments, bool) {
	id, err := pathID(r, "productId")
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	a := composer.NewAttachments(h.catalog, h.colors, h.env(r.Context()), id)
	if err := a.Load(r.Context()); err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return a, true
}

func (h *HTTPHandler) ListProductColors(w http.ResponseWriter, r *http.Request) {
	a, ok := h.attachments(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK, a.ProductColors())
}

// AddProductColor accepts a multipart form with color, price and an optional image.
// Without an image a placeholder is sent.
func (h *HTTPHandler) AddProductColor(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	colorID, err := formInt(r, "color")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	price := strings.TrimSpace(r.FormValue("price"))
	if colorID <= 0 || !composer.ValidPrice(price) {
		h.fail(w, r, fmt.Errorf("%w: color is required and price must be a decimal", domain.ErrInvalidInput))
		return
	}
	image, err := formFile(r, "image")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	a, ok := h.attachments(w, r)
	if !ok {
		return
	}
	editor := a.Editor()
	editor.Toggle(colorID)
	editor.SetPrice(colorID, price)
	if image != nil {
		editor.SetImage(colorID, image)
	}
	if _, err := a.AddColor(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, a.ProductColors())
}

func (h *HTTPHandler) RemoveProductColor(w http.ResponseWriter, r *http.Request) {
	variantID, err := pathID(r, "variantId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	a, ok := h.attachments(w, r)
	if !ok {
		return
	}
	if err := a.RemoveColor(r.Context(), variantID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, a.ProductColors())
}
