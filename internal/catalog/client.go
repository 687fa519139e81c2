// Package catalog is the typed client for the remote catalog REST API.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"catalog-admin-console/internal/domain"
)

// DefaultBaseURL is the production catalog API.
const DefaultBaseURL = "https://api.uzbekfoodstaff.ae/api/v1"

const maxResponseBytes = 8 << 20

// ErrRequestFailed matches every failed call: transport errors, non-2xx
// responses and calls rejected by an open breaker.
var ErrRequestFailed = errors.New("catalog: request failed")

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog: %s %s returned HTTP %d", e.Method, e.Path, e.StatusCode)
}

func (e *APIError) Is(target error) bool { return target == ErrRequestFailed }

// TokenSource supplies the bearer token for the request carrying ctx; an
// empty token sends no Authorization header.
type TokenSource interface {
	AccessToken(ctx context.Context) string
}

// LocaleSource supplies the Accept-Language value for the request carrying ctx.
type LocaleSource interface {
	Locale(ctx context.Context) string
}

type localeKey struct{}

// WithLocale pins the Accept-Language of requests made with ctx, overriding
// the client's LocaleSource.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey{}, locale)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Tokens     TokenSource
	Locale     LocaleSource
	Logger     *zap.Logger

	// BreakerMaxFailures consecutive failures open the breaker for BreakerOpenFor.
	// Zero values select 5 failures and 30 seconds.
	BreakerMaxFailures uint32
	BreakerOpenFor     time.Duration
}

// Client talks to the catalog API. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	locale  LocaleSource
	logger  *zap.Logger
	breaker *gobreaker.CircuitBreaker
}

// New creates a Client.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxFailures := opts.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	openFor := opts.BreakerOpenFor
	if openFor == 0 {
		openFor = 30 * time.Second
	}

	c := &Client{
		baseURL: baseURL,
		http:    httpClient,
		tokens:  opts.Tokens,
		locale:  opts.Locale,
		logger:  logger.Named("catalog"),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "catalog-api",
		Timeout: openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// Client errors are the operator's problem, not the upstream's.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("breaker state changed", zap.String("breaker", name),
				zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return c
}

// Healthy reports whether the breaker currently lets requests through.
func (c *Client) Healthy() bool {
	return c.breaker.State() != gobreaker.StateOpen
}

// requestBody encodes itself and names its content type.
type requestBody interface {
	encode() (io.Reader, string, error)
}

type jsonBody struct{ v any }

func (b jsonBody) encode() (io.Reader, string, error) {
	data, err := json.Marshal(b.v)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}

// Form is an ordered multipart form.
type Form struct {
	fields []formField
	files  []formFile
}

type formField struct{ name, value string }

type formFile struct {
	name string
	file domain.File
}

// Set appends a text field.
func (f *Form) Set(name, value string) *Form {
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

// AddFile appends a file part.
func (f *Form) AddFile(name string, file domain.File) *Form {
	f.files = append(f.files, formFile{name: name, file: file})
	return f
}

// FieldNames lists the form's parts in order, files last.
func (f *Form) FieldNames() []string {
	names := make([]string, 0, len(f.fields)+len(f.files))
	for _, fl := range f.fields {
		names = append(names, fl.name)
	}
	for _, fl := range f.files {
		names = append(names, fl.name)
	}
	return names
}

func (f *Form) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, fl := range f.fields {
		if err := w.WriteField(fl.name, fl.value); err != nil {
			return nil, "", err
		}
	}
	for _, fl := range f.files {
		contentType, filename := describeFile(fl.file)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fl.name, filename))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(fl.file.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// describeFile fills in a missing content type and filename from the file's bytes.
func describeFile(f domain.File) (contentType, filename string) {
	mt := mimetype.Detect(f.Data)
	contentType = f.ContentType
	if contentType == "" {
		contentType = mt.String()
	}
	filename = f.Name
	if filename == "" {
		filename = uuid.NewString() + mt.Extension()
	}
	return contentType, filename
}

type call struct {
	method    string
	path      string
	body      requestBody
	out       any
	anonymous bool
}

func (c *Client) do(ctx context.Context, cl call) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, cl)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, cl.method, cl.path, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, cl call) error {
	var (
		body        io.Reader
		contentType string
	)
	if cl.body != nil {
		var err error
		body, contentType, err = cl.body.encode()
		if err != nil {
			return fmt.Errorf("catalog: encode %s %s: %w", cl.method, cl.path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return fmt.Errorf("catalog: build %s %s: %w", cl.method, cl.path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", c.currentLocale(ctx))
	if !cl.anonymous && c.tokens != nil {
		if token := c.tokens.AccessToken(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("method", cl.method), zap.String("path", cl.path), zap.Error(err))
		return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, cl.method, cl.path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %w", ErrRequestFailed, cl.method, cl.path, err)
	}

	c.logger.Debug("request completed", zap.String("method", cl.method), zap.String("path", cl.path),
		zap.Int("status", res.StatusCode), zap.Duration("elapsed", time.Since(start)))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{Method: cl.method, Path: cl.path, StatusCode: res.StatusCode, Body: string(data)}
		fields := []zap.Field{zap.String("method", cl.method), zap.String("path", cl.path), zap.Int("status", res.StatusCode)}
		var decoded any
		if json.Unmarshal(data, &decoded) == nil {
			fields = append(fields, zap.Any("body", decoded))
		}
		c.logger.Warn("request rejected", fields...)
		return apiErr
	}

	if cl.out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, cl.out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", ErrRequestFailed, cl.method, cl.path, err)
	}
	return nil
}

func (c *Client) currentLocale(ctx context.Context) string {
	if l, _ := ctx.Value(localeKey{}).(string); l != "" {
		return l
	}
	if c.locale != nil {
		if l := c.locale.Locale(ctx); l != "" {
			return l
		}
	}
	return "ru"
}
