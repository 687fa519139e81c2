package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Languages the catalog localizes titles, descriptions and names into.
var Languages = []string{"uz", "ru", "en"}

// CategoryRef is the category value stored on a product. The API returns it
// either as a numeric id or as a slug depending on the endpoint, so it is kept
// as text and resolved against the category registry.
type CategoryRef string

func (c *CategoryRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = CategoryRef(s)
		return nil
	}
	*c = CategoryRef(b)
	return nil
}

// ID returns the reference as a numeric id when it is one.
func (c CategoryRef) ID() (int64, bool) {
	id, err := strconv.ParseInt(string(c), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ProductImage is one image attached to a product.
type ProductImage struct {
	ID    int64  `json:"id,omitempty"`
	Image string `json:"image"`
}

// Product mirrors the catalog's product DTO.
type Product struct {
	ID            int64                 `json:"id"`
	Title         string                `json:"title,omitempty"`
	TitleUz       string                `json:"title_uz"`
	TitleRu       string                `json:"title_ru"`
	TitleEn       string                `json:"title_en"`
	Description   string                `json:"description,omitempty"`
	DescriptionUz string                `json:"description_uz"`
	DescriptionRu string                `json:"description_ru"`
	DescriptionEn string                `json:"description_en"`
	Price         string                `json:"price"`
	OldPrice      *string               `json:"old_price,omitempty"`
	Category      CategoryRef           `json:"category"`
	Images        []ProductImage        `json:"images"`
	Colors        []ProductColorVariant `json:"colors,omitempty"`
	Features      []ProductFeature      `json:"features,omitempty"`
}

// ProductPayload is the scalar-only body sent on product create and update.
type ProductPayload struct {
	TitleUz       string  `json:"title_uz"`
	TitleEn       string  `json:"title_en"`
	TitleRu       string  `json:"title_ru"`
	DescriptionUz string  `json:"description_uz"`
	DescriptionEn string  `json:"description_en"`
	DescriptionRu string  `json:"description_ru"`
	Price         string  `json:"price"`
	OldPrice      *string `json:"old_price"`
	Category      *int64  `json:"category"`
}

// Category is a reference entity products are filed under.
type Category struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Image  string `json:"image,omitempty"`
	NameUz string `json:"name_uz,omitempty"`
	NameEn string `json:"name_en,omitempty"`
	NameRu string `json:"name_ru,omitempty"`
}

// LocalName returns the category name in lang, falling back to the name the
// catalog localized on fetch.
func (c Category) LocalName(lang string) string {
	return localName(lang, c.NameUz, c.NameRu, c.NameEn, c.Name)
}

// Color is a reference colour with a swatch image.
type Color struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Image      string `json:"image,omitempty"`
	NameUz     string `json:"name_uz,omitempty"`
	NameEn     string `json:"name_en,omitempty"`
	NameRu     string `json:"name_ru,omitempty"`
	ColorImage string `json:"color_image,omitempty"`
}

// LocalName returns the colour name in lang.
func (c Color) LocalName(lang string) string {
	return localName(lang, c.NameUz, c.NameRu, c.NameEn, c.Name)
}

// FeatureType is the localized label of a feature ("Weight", "Packaging", ...).
type FeatureType struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	NameUz  string `json:"name_uz"`
	NameRu  string `json:"name_ru"`
	NameEn  string `json:"name_en"`
	Product int64  `json:"product,omitempty"`
}

// LocalName returns the type name in lang.
func (t FeatureType) LocalName(lang string) string {
	return localName(lang, t.NameUz, t.NameRu, t.NameEn, t.Name)
}

func localName(lang, uz, ru, en, fallback string) string {
	var n string
	switch {
	case strings.HasPrefix(lang, "uz"):
		n = uz
	case strings.HasPrefix(lang, "ru"):
		n = ru
	case strings.HasPrefix(lang, "en"):
		n = en
	}
	if n != "" {
		return n
	}
	for _, alt := range []string{fallback, en, ru, uz} {
		if alt != "" {
			return alt
		}
	}
	return ""
}

// ProductFeature links a product to a FeatureType with a value and a price.
type ProductFeature struct {
	ID       int64  `json:"id"`
	Product  int64  `json:"product"`
	Type     int64  `json:"type"`
	TypeName string `json:"typeName,omitempty"`
	Value    string `json:"value"`
	Price    string `json:"price"`
}

func (f *ProductFeature) UnmarshalJSON(b []byte) error {
	type plain ProductFeature
	var raw struct {
		plain
		TypeID int64 `json:"typeId"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*f = ProductFeature(raw.plain)
	if f.Type == 0 {
		f.Type = raw.TypeID
	}
	return nil
}

// ProductColorVariant links a product to a reference Color with its own photo and price.
type ProductColorVariant struct {
	ID         int64  `json:"id"`
	Product    int64  `json:"product"`
	Color      int64  `json:"color"`
	Image      string `json:"image"`
	Price      string `json:"price"`
	Name       string `json:"name,omitempty"`
	ColorImage string `json:"color_image,omitempty"`
}

func (v *ProductColorVariant) UnmarshalJSON(b []byte) error {
	type plain ProductColorVariant
	var raw struct {
		plain
		ColorID int64 `json:"colorId"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*v = ProductColorVariant(raw.plain)
	if v.Color == 0 {
		v.Color = raw.ColorID
	}
	return nil
}

// File is a local file selected by the operator, held in memory until uploaded.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// LoginResponse is the envelope returned by the admin login endpoint.
type LoginResponse struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Data       struct {
		Refresh string `json:"refresh"`
		Access  string `json:"access"`
	} `json:"data"`
}
