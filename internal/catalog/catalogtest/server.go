// Package catalogtest provides an in-memory fake of the catalog REST API that
// records every request it receives.
package catalogtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"catalog-admin-console/internal/catalog"
	"catalog-admin-console/internal/domain"
)

// File is an uploaded multipart file as the fake saw it.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Request is one recorded call.
type Request struct {
	Method string
	Path   string
	Header http.Header
	JSON   map[string]any
	Fields map[string]string
	Files  map[string]File
}

// IsMultipart reports whether the request carried a multipart body.
func (r Request) IsMultipart() bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// Server is a fake catalog API.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	requests      []Request
	failures      map[string]int
	nextID        int64
	credentials   map[string]string
	accessToken   string
	products      []domain.Product
	categories    []domain.Category
	colors        []domain.Color
	types         []domain.FeatureType
	features      []domain.ProductFeature
	productColors []domain.ProductColorVariant
}

// New starts a fake catalog API that is closed when the test ends.
func New(t testing.TB) *Server {
	s := &Server{
		failures:    make(map[string]int),
		nextID:      1000,
		credentials: map[string]string{"admin@example.com": "secret"},
		accessToken: "test-access-token",
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// Client returns a catalog client pointed at the fake.
func (s *Server) Client(opts catalog.Options) *catalog.Client {
	opts.BaseURL = s.URL
	return catalog.New(opts)
}

// Fail makes every request to method+path answer with status until cleared with status 0.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, method+" "+path)
		return
	}
	s.failures[method+" "+path] = status
}

// SetNextID sets the id handed to the next created entity.
func (s *Server) SetNextID(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = id
}

// SetAccessToken sets the token issued by the login endpoint.
func (s *Server) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
}

// Requests returns every recorded request.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the recorded requests for method+path.
func (s *Server) RequestsTo(method, path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Reset forgets recorded requests.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func (s *Server) SeedProducts(p ...domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, p...)
}

func (s *Server) SeedCategories(c ...domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, c...)
}

func (s *Server) SeedColors(c ...domain.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.colors = append(s.colors, c...)
}

func (s *Server) SeedTypes(t ...domain.FeatureType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = append(s.types, t...)
}

func (s *Server) SeedFeatures(f ...domain.ProductFeature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features = append(s.features, f...)
}

func (s *Server) SeedProductColors(v ...domain.ProductColorVariant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.productColors = append(s.productColors, v...)
}

// Products returns the fake's current products.
func (s *Server) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Product(nil), s.products...)
}

// Features returns the fake's current features.
func (s *Server) Features() []domain.ProductFeature {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ProductFeature(nil), s.features...)
}

// ProductColors returns the fake's current colour variants.
func (s *Server) ProductColors() []domain.ProductColorVariant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ProductColorVariant(nil), s.productColors...)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record, s.injectFailures)

	r.Post(catalog.PathLogin, s.login)
	r.Get(catalog.PathProducts, s.listProducts)
	r.Post(catalog.PathProductCreate, s.createProduct)
	r.Put("/product/{id}/", s.updateProduct)
	r.Delete("/product/{id}/", s.deleteProduct)
	r.Post(catalog.PathProductImages, s.uploadImage)

	r.Get(catalog.PathCategories, s.listCategories)
	r.Post(catalog.PathCategories, s.createCategory)
	r.Get(catalog.PathColors, s.listColors)
	r.Post(catalog.PathColors, s.createColor)
	r.Get(catalog.PathFeatureTypes, s.listTypes)
	r.Post(catalog.PathFeatureTypes, s.createType)

	r.Get(catalog.PathFeatures, s.listFeatures)
	r.Post(catalog.PathFeatures, s.createFeature)
	r.Delete("/product/detail-features/{id}/", s.deleteFeature)

	r.Get(catalog.PathProductColors, s.listProductColors)
	r.Get(catalog.PathProductColorsDetail, s.listProductColors)
	r.Post(catalog.PathProductColors, s.createProductColor)
	r.Delete("/product/detail-product-colors/{id}/", s.deleteProductColor)
	r.Delete("/product/create-product-colors/{id}/", s.deleteProductColor)
	return r
}

// --- middleware ---

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		r.Body.Close()
		rec := Request{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()}

		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			r.Body = io.NopCloser(bytes.NewReader(data))
			if err := r.ParseMultipartForm(32 << 20); err == nil {
				rec.Fields = make(map[string]string)
				rec.Files = make(map[string]File)
				for k, v := range r.MultipartForm.Value {
					if len(v) > 0 {
						rec.Fields[k] = v[0]
					}
				}
				for k, fhs := range r.MultipartForm.File {
					if len(fhs) == 0 {
						continue
					}
					f, err := fhs[0].Open()
					if err != nil {
						continue
					}
					content, _ := io.ReadAll(f)
					f.Close()
					rec.Files[k] = File{Filename: fhs[0].Filename, ContentType: fhs[0].Header.Get("Content-Type"), Data: content}
				}
			}
		} else if len(data) > 0 {
			_ = json.Unmarshal(data, &rec.JSON)
			r.Body = io.NopCloser(bytes.NewReader(data))
		}

		s.mu.Lock()
		s.requests = append(s.requests, rec)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, ok := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if ok {
			writeJSON(w, status, map[string]string{"detail": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- handlers ---

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if pw, ok := s.credentials[in.Email]; !ok || pw != in.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "status_code": 401, "message": "invalid credentials"})
		return
	}
	resp := domain.LoginResponse{Success: true, StatusCode: 200, Message: "ok"}
	resp.Data.Access = s.accessToken
	resp.Data.Refresh = "test-refresh-token"
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listProducts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Products())
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	p := productFromPayload(s.takeID(), in)
	s.products = append(s.products, p)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in domain.ProductPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			updated := productFromPayload(id, in)
			updated.Images = s.products[i].Images
			s.products[i] = updated
			writeJSON(w, http.StatusOK, updated)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
}

func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	productID, _ := strconv.ParseInt(r.FormValue("product"), 10, 64)
	_, fh, err := r.FormFile("image")
	if err != nil || productID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "image and product are required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	img := domain.ProductImage{ID: s.takeID(), Image: "/media/products/" + fh.Filename}
	for i := range s.products {
		if s.products[i].ID == productID {
			s.products[i].Images = append(s.products[i].Images, img)
		}
	}
	writeJSON(w, http.StatusCreated, img)
}

func (s *Server) listCategories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.categories)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := domain.Category{
		ID:     s.takeID(),
		Name:   r.FormValue("name_en"),
		NameUz: r.FormValue("name_uz"),
		NameEn: r.FormValue("name_en"),
		NameRu: r.FormValue("name_ru"),
	}
	c.Slug = strings.ToLower(strings.ReplaceAll(c.Name, " ", "-"))
	s.categories = append(s.categories, c)
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) listColors(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.colors)
}

func (s *Server) createColor(w http.ResponseWriter, r *http.Request) {
	_, fh, err := r.FormFile("image")
	if err != nil || r.FormValue("name") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "name and image are required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := domain.Color{ID: s.takeID(), Name: r.FormValue("name"), Image: "/media/colors/" + fh.Filename}
	s.colors = append(s.colors, c)
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) listTypes(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.types)
}

func (s *Server) createType(w http.ResponseWriter, r *http.Request) {
	var in catalog.FeatureTypeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := domain.FeatureType{ID: s.takeID(), Name: firstNonEmpty(in.NameEn, in.NameRu, in.NameUz),
		NameUz: in.NameUz, NameRu: in.NameRu, NameEn: in.NameEn, Product: in.Product}
	s.types = append(s.types, t)
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) listFeatures(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Features())
}

func (s *Server) createFeature(w http.ResponseWriter, r *http.Request) {
	var in catalog.FeatureInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f := domain.ProductFeature{ID: s.takeID(), Product: in.Product, Type: in.Type, Value: in.Value, Price: in.Price}
	s.features = append(s.features, f)
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) deleteFeature(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.features {
		if s.features[i].ID == id {
			s.features = append(s.features[:i], s.features[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
}

func (s *Server) listProductColors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ProductColors())
}

func (s *Server) createProductColor(w http.ResponseWriter, r *http.Request) {
	productID, _ := strconv.ParseInt(r.FormValue("product"), 10, 64)
	colorID, _ := strconv.ParseInt(r.FormValue("color"), 10, 64)
	_, fh, err := r.FormFile("image")
	if err != nil || productID == 0 || colorID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"image": "This field is required."})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v := domain.ProductColorVariant{ID: s.takeID(), Product: productID, Color: colorID,
		Price: r.FormValue("price"), Image: "/media/variants/" + fh.Filename}
	s.productColors = append(s.productColors, v)
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) deleteProductColor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.productColors {
		if s.productColors[i].ID == id {
			s.productColors = append(s.productColors[:i], s.productColors[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
}

// --- helpers ---

// takeID must be called with s.mu held.
func (s *Server) takeID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func productFromPayload(id int64, in domain.ProductPayload) domain.Product {
	p := domain.Product{
		ID: id, TitleUz: in.TitleUz, TitleEn: in.TitleEn, TitleRu: in.TitleRu,
		DescriptionUz: in.DescriptionUz, DescriptionEn: in.DescriptionEn, DescriptionRu: in.DescriptionRu,
		Price: in.Price, OldPrice: in.OldPrice, Images: []domain.ProductImage{},
	}
	if in.Category != nil {
		p.Category = domain.CategoryRef(strconv.FormatInt(*in.Category, 10))
	}
	return p
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": fmt.Sprintf("bad id %q", chi.URLParam(r, "id"))})
		return 0, false
	}
	return id, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
