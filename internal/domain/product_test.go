package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryRef_UnmarshalJSON(t *testing.T) {
	for raw, want := range map[string]CategoryRef{
		`{"category": 7}`:        "7",
		`{"category": "sweets"}`: "sweets",
		`{"category": null}`:     "",
		`{}`:                     "",
	} {
		var p Product
		require.NoError(t, json.Unmarshal([]byte(raw), &p), raw)
		assert.Equal(t, want, p.Category, raw)
	}

	id, ok := CategoryRef("7").ID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
	for _, ref := range []CategoryRef{"", "sweets", "0", "-1"} {
		_, ok := ref.ID()
		assert.False(t, ok, "ref %q", ref)
	}
}

func TestProductFeature_TypeIDAlias(t *testing.T) {
	var f ProductFeature
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"product":2,"typeId":3,"value":"1kg","price":"5"}`), &f))
	assert.Equal(t, int64(3), f.Type)

	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"type":4,"typeId":3}`), &f))
	assert.Equal(t, int64(4), f.Type)
}

func TestProductColorVariant_ColorIDAlias(t *testing.T) {
	var v ProductColorVariant
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"product":2,"colorId":8,"image":"/a.png","price":"1"}`), &v))
	assert.Equal(t, int64(8), v.Color)
	assert.Equal(t, int64(2), v.Product)
}

func TestProductPayload_Nulls(t *testing.T) {
	data, err := json.Marshal(ProductPayload{Price: "1"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"old_price":null`)
	assert.Contains(t, string(data), `"category":null`)
}

func TestLocalName(t *testing.T) {
	ft := FeatureType{Name: "Вес", NameUz: "Og'irlik", NameRu: "Вес", NameEn: "Weight"}
	assert.Equal(t, "Og'irlik", ft.LocalName("uz"))
	assert.Equal(t, "Weight", ft.LocalName("en-US"))
	assert.Equal(t, "Вес", ft.LocalName("ru"))
	assert.Equal(t, "Вес", ft.LocalName(""))

	c := Color{Name: "Qizil"}
	assert.Equal(t, "Qizil", c.LocalName("en"), "falls back to the fetched name")
	assert.Equal(t, "Nuts", Category{NameEn: "Nuts"}.LocalName("uz"))
	assert.Empty(t, Category{}.LocalName("ru"))
}
