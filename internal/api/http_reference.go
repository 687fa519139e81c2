package api

import (
	"net/http"

	"catalog-admin-console/internal/domain"
	"catalog-admin-console/internal/registry"
)

// loadRegistry refreshes reg when it is empty or the caller asks for it.
func loadRegistry[T any](r *http.Request, reg *registry.Registry[T]) error {
	if r.URL.Query().Get("refresh") == "true" {
		return reg.Refresh(r.Context())
	}
	return ensureLoaded(r.Context(), reg)
}

// Registries are fetched in one locale; names are rewritten per operator.

func localizeCategories(items []domain.Category, lang string) []domain.Category {
	for i := range items {
		items[i].Name = items[i].LocalName(lang)
	}
	return items
}

func localizeColors(items []domain.Color, lang string) []domain.Color {
	for i := range items {
		items[i].Name = items[i].LocalName(lang)
	}
	return items
}

func localizeTypes(items []domain.FeatureType, lang string) []domain.FeatureType {
	for i := range items {
		items[i].Name = items[i].LocalName(lang)
	}
	return items
}

// --- Categories ---

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	if err := loadRegistry(r, h.categories.Registry); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, localizeCategories(h.categories.List(), lang(r.Context())))
}

// CreateCategory accepts a multipart form with name_uz, name_en, name_ru and an optional image.
func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	image, err := formFile(r, "image")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.categories.CreateCategory(r.Context(), registry.NewCategory{
		NameUz: r.FormValue("name_uz"),
		NameEn: r.FormValue("name_en"),
		NameRu: r.FormValue("name_ru"),
		Image:  image,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created.Name = created.LocalName(lang(r.Context()))
	h.respond(w, r, http.StatusCreated, created)
}

// --- Colors ---

func (h *HTTPHandler) ListColors(w http.ResponseWriter, r *http.Request) {
	if err := loadRegistry(r, h.colors.Registry); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, localizeColors(h.colors.List(), lang(r.Context())))
}

// CreateColor accepts a multipart form with a name and a required image swatch.
func (h *HTTPHandler) CreateColor(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	image, err := formFile(r, "image")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.colors.CreateColor(r.Context(), r.FormValue("name"), image)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created.Name = created.LocalName(lang(r.Context()))
	h.respond(w, r, http.StatusCreated, created)
}

// --- Feature types ---

// TypeInput defines the expected input for creating a feature type.
type TypeInput struct {
	Product int64  `json:"product" validate:"gte=0"`
	NameUz  string `json:"name_uz"`
	NameRu  string `json:"name_ru"`
	NameEn  string `json:"name_en"`
}

func (h *HTTPHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	if err := loadRegistry(r, h.types.Registry); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, localizeTypes(h.types.List(), lang(r.Context())))
}

func (h *HTTPHandler) CreateType(w http.ResponseWriter, r *http.Request) {
	var input TypeInput
	if err := h.decodeJSON(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.types.CreateType(r.Context(), registry.NewType{
		Product: input.Product,
		NameUz:  input.NameUz,
		NameRu:  input.NameRu,
		NameEn:  input.NameEn,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created.Name = created.LocalName(lang(r.Context()))
	h.respond(w, r, http.StatusCreated, created)
}
