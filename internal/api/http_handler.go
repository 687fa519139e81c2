package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"catalog-admin-console/internal/auth"
	"catalog-admin-console/internal/catalog"
	"catalog-admin-console/internal/composer"
	"catalog-admin-console/internal/domain"
	"catalog-admin-console/internal/i18n"
	"catalog-admin-console/internal/registry"
	"catalog-admin-console/internal/ui"
)

// SessionCookie carries the console session id.
const SessionCookie = "console_session"

// CatalogAPI is the part of the catalog client the console handlers drive directly.
type CatalogAPI interface {
	composer.ProductAPI
	composer.FeatureAPI
	composer.ProductColorAPI
}

// Deps are the collaborators of HTTPHandler.
type Deps struct {
	Catalog      CatalogAPI
	Auth         *auth.Service
	Categories   *registry.Categories
	Colors       *registry.Colors
	Types        *registry.Types
	Messages     *i18n.Catalog
	Logger       *zap.Logger
	MediaBaseURL string
	// MaxUploadBytes bounds multipart request bodies. Zero means 32 MiB.
	MaxUploadBytes int64
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	catalog        CatalogAPI
	auth           *auth.Service
	categories     *registry.Categories
	colors         *registry.Colors
	types          *registry.Types
	messages       *i18n.Catalog
	logger         *zap.Logger
	mediaBaseURL   string
	maxUploadBytes int64
	validate       *validator.Validate

	// submits holds the product writes in flight, keyed by submitKey.
	submits sync.Map
}

type submitKey struct {
	session string
	product int64
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(d Deps) *HTTPHandler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Messages == nil {
		d.Messages = i18n.Default()
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 32 << 20
	}
	v := validator.New()
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		return composer.ValidPrice(fl.Field().String())
	})
	return &HTTPHandler{
		catalog:        d.Catalog,
		auth:           d.Auth,
		categories:     d.Categories,
		colors:         d.Colors,
		types:          d.Types,
		messages:       d.Messages,
		logger:         d.Logger.Named("http"),
		mediaBaseURL:   d.MediaBaseURL,
		maxUploadBytes: d.MaxUploadBytes,
		validate:       v,
	}
}

// --- Helpers ---

// Envelope wraps every successful response.
type Envelope struct {
	Data          any               `json:"data"`
	Notifications []ui.Notification `json:"notifications"`
}

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error         string            `json:"error"`
	Notifications []ui.Notification `json:"notifications,omitempty"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

type recorderKey struct{}

// scope attaches a fresh notification recorder and the operator's translator to ctx.
func (h *HTTPHandler) scope(ctx context.Context, r *http.Request) context.Context {
	locale := i18n.Negotiate(r.Header.Get("Accept-Language"))
	if s := auth.FromContext(ctx); s != nil && i18n.Supported(s.Lang) {
		locale = s.Lang
	}
	rec := &ui.Recorder{}
	ctx = ui.WithNotifier(ctx, rec)
	ctx = ui.WithTranslator(ctx, h.messages.Translator(locale))
	return context.WithValue(ctx, recorderKey{}, rec)
}

func notifications(ctx context.Context) []ui.Notification {
	rec, ok := ctx.Value(recorderKey{}).(*ui.Recorder)
	if !ok {
		return []ui.Notification{}
	}
	return rec.Notifications()
}

func (h *HTTPHandler) respond(w http.ResponseWriter, r *http.Request, code int, data any) {
	respondWithJSON(w, code, Envelope{Data: data, Notifications: notifications(r.Context())})
}

// fail maps an operation error onto a status code.
func (h *HTTPHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		code, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrUnsupportedLocale):
		code, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrLoginFailed):
		code, message = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, composer.ErrNotConfirmed):
		code, message = http.StatusPreconditionRequired, "confirmation required: repeat with ?confirm=true"
	case errors.Is(err, composer.ErrSubmitInProgress):
		code, message = http.StatusConflict, err.Error()
	case errors.Is(err, catalog.ErrRequestFailed), errors.Is(err, composer.ErrMissingID):
		code, message = http.StatusBadGateway, "catalog request failed"
		var apiErr *catalog.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			code, message = http.StatusNotFound, "not found"
		}
	}
	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	}
	respondWithJSON(w, code, ErrorResponse{Error: message, Notifications: notifications(r.Context())})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad %s %q", domain.ErrInvalidInput, name, chi.URLParam(r, name))
	}
	return id, nil
}

func (h *HTTPHandler) decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request payload: %v", domain.ErrInvalidInput, err)
	}
	return h.check(v)
}

func (h *HTTPHandler) check(v any) error {
	if err := h.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: validation failed: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func (h *HTTPHandler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return fmt.Errorf("%w: invalid multipart body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// formFiles reads every file uploaded under field.
func formFiles(r *http.Request, field string) ([]domain.File, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var out []domain.File
	for _, fh := range r.MultipartForm.File[field] {
		f, err := readFile(fh)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func formFile(r *http.Request, field string) (*domain.File, error) {
	files, err := formFiles(r, field)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	return &files[0], nil
}

func readFile(fh *multipart.FileHeader) (domain.File, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.File{}, fmt.Errorf("%w: open upload %q: %v", domain.ErrInvalidInput, fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return domain.File{}, fmt.Errorf("%w: read upload %q: %v", domain.ErrInvalidInput, fh.Filename, err)
	}
	return domain.File{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}

func formInt(r *http.Request, field string) (int64, error) {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, field)
	}
	return n, nil
}

func (h *HTTPHandler) env(ctx context.Context) composer.Env {
	return composer.Env{
		Notifier:     ui.LogNotifier{Logger: h.logger},
		Logger:       h.logger,
		MediaBaseURL: h.mediaBaseURL,
		Lang:         lang(ctx),
	}
}

// ensureLoaded refreshes a registry the first time it is needed.
func ensureLoaded[T any](ctx context.Context, reg *registry.Registry[T]) error {
	if reg.Loaded() {
		return nil
	}
	return reg.Refresh(ctx)
}

// --- Middleware ---

func sessionID(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if v := r.Header.Get("Authorization"); strings.HasPrefix(v, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(v, "Bearer "))
	}
	return ""
}

// Authenticate loads the operator's session and scopes notifications to the request.
func (h *HTTPHandler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := h.auth.Session(r.Context(), sessionID(r))
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthenticated) {
				h.logger.Error("session lookup failed", zap.Error(err))
			}
			respondWithError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := auth.WithSession(r.Context(), session)
		next.ServeHTTP(w, r.WithContext(h.scope(ctx, r)))
	})
}

func (h *HTTPHandler) anonymous(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(h.scope(r.Context(), r)))
	})
}

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(h.anonymous).Post("/login", h.Login)
		r.With(h.Authenticate).Post("/logout", h.Logout)
		r.With(h.Authenticate).Put("/locale", h.SetLocale)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.Authenticate)

		r.Route("/api/v1/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.CreateCategory)
		})
		r.Route("/api/v1/colors", func(r chi.Router) {
			r.Get("/", h.ListColors)
			r.Post("/", h.CreateColor)
		})
		r.Route("/api/v1/types", func(r chi.Router) {
			r.Get("/", h.ListTypes)
			r.Post("/", h.CreateType)
		})

		r.Route("/api/v1/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)

			r.Route("/{productId}", func(r chi.Router) {
				r.Get("/", h.GetProduct)
				r.Put("/", h.UpdateProduct)
				r.Delete("/", h.DeleteProduct)
				r.Post("/images", h.UploadImages)

				r.Get("/features", h.ListFeatures)
				r.Post("/features", h.AddFeature)
				r.Delete("/features/{featureId}", h.RemoveFeature)
				r.Post("/types", h.CreateProductType)

				r.Get("/colors", h.ListProductColors)
				r.Post("/colors", h.AddProductColor)
				r.Delete("/colors/{variantId}", h.RemoveProductColor)
			})
		})
	})
}
