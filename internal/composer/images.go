package composer

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"catalog-admin-console/internal/domain"
	"catalog-admin-console/internal/ui"
)

// ImageUploader attaches one image to a product.
type ImageUploader interface {
	UploadProductImage(ctx context.Context, productID int64, image domain.File) (*domain.ProductImage, error)
}

// Mode selects when the image editor uploads.
type Mode int

const (
	// Delayed only accumulates files; the composer uploads them after the product is saved.
	Delayed Mode = iota
	// Immediate uploads each new file as soon as it is added, if the product id is known.
	Immediate
)

func (m Mode) String() string {
	if m == Immediate {
		return "immediate"
	}
	return "delayed"
}

// ImageEntry is one image of the editor. Stored images already live on the
// server and have no File.
type ImageEntry struct {
	File     *domain.File
	Preview  string
	Uploaded bool

	seq int
}

func (e ImageEntry) pending() bool { return e.File != nil && !e.Uploaded }

// Location names an entry without its bytes: the media URL once the catalog
// returned one, otherwise the file name.
func (e ImageEntry) Location() string {
	if !strings.HasPrefix(e.Preview, "data:") {
		return e.Preview
	}
	if e.File != nil {
		return e.File.Name
	}
	return ""
}

// ImageEditor keeps files and their previews index-aligned by storing them
// together.
type ImageEditor struct {
	api  ImageUploader
	env  Env
	mode Mode

	mu        sync.Mutex
	productID int64
	entries   []ImageEntry
	seq       int
}

func NewImageEditor(api ImageUploader, env Env, mode Mode) *ImageEditor {
	return &ImageEditor{api: api, env: env.withDefaults(), mode: mode}
}

func (e *ImageEditor) Mode() Mode { return e.mode }

// SetProduct sets the product new files are uploaded to in Immediate mode.
func (e *ImageEditor) SetProduct(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.productID = id
}

// Reset drops every entry.
func (e *ImageEditor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = nil
	e.productID = 0
}

// Add appends files with a data URI preview each. In Immediate mode with a
// known product the files are uploaded one after another; each failure is
// reported on its own and the returned slice holds one error per failed file.
func (e *ImageEditor) Add(ctx context.Context, files ...domain.File) []error {
	e.mu.Lock()
	for i := range files {
		f := files[i]
		e.seq++
		e.entries = append(e.entries, ImageEntry{File: &f, Preview: previewURI(f), seq: e.seq})
	}
	productID := e.productID
	e.mu.Unlock()

	if e.mode != Immediate || productID == 0 || len(files) == 0 {
		return nil
	}
	uploaded, errs := e.upload(ctx, productID, "imageUploader.uploadError")
	if len(uploaded) > 0 {
		e.env.notify(ctx, ui.Success, "imageUploader.uploadSuccess")
	}
	return errs
}

func (e *ImageEditor) addStored(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	e.entries = append(e.entries, ImageEntry{Preview: url, Uploaded: true, seq: e.seq})
}

// RemoveAt removes the file and the preview at index i.
func (e *ImageEditor) RemoveAt(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.entries) {
		return fmt.Errorf("composer: image index %d out of range [0,%d): %w", i, len(e.entries), domain.ErrInvalidInput)
	}
	e.entries = append(e.entries[:i], e.entries[i+1:]...)
	return nil
}

// Len returns the number of entries.
func (e *ImageEditor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

// Entries returns a copy of the entries.
func (e *ImageEditor) Entries() []ImageEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ImageEntry(nil), e.entries...)
}

// Files returns the local file of every entry, nil for stored images.
func (e *ImageEditor) Files() []*domain.File {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*domain.File, len(e.entries))
	for i, en := range e.entries {
		out[i] = en.File
	}
	return out
}

// Previews returns the preview of every entry, aligned with Files.
func (e *ImageEditor) Previews() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.entries))
	for i, en := range e.entries {
		out[i] = en.Preview
	}
	return out
}

// Pending returns the files not uploaded yet.
func (e *ImageEditor) Pending() []domain.File {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []domain.File
	for _, en := range e.entries {
		if en.pending() {
			out = append(out, *en.File)
		}
	}
	return out
}

func (e *ImageEditor) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, en := range e.entries {
		if en.pending() {
			n++
		}
	}
	return n
}

// upload sends every pending file, strictly one after another. A failed file
// stays pending and does not stop the rest.
func (e *ImageEditor) upload(ctx context.Context, productID int64, failKey string) ([]domain.ProductImage, []error) {
	type job struct {
		seq  int
		file domain.File
	}
	e.mu.Lock()
	var jobs []job
	for _, en := range e.entries {
		if en.pending() {
			jobs = append(jobs, job{seq: en.seq, file: *en.File})
		}
	}
	e.mu.Unlock()

	var (
		uploaded []domain.ProductImage
		errs     []error
	)
	for _, j := range jobs {
		img, err := e.api.UploadProductImage(ctx, productID, j.file)
		if err != nil {
			e.env.Logger.Warn("image upload failed", zap.Int64("product_id", productID),
				zap.String("file", j.file.Name), zap.Error(err))
			e.env.notify(ctx, ui.Error, failKey)
			errs = append(errs, fmt.Errorf("composer: upload %q: %w", j.file.Name, err))
			continue
		}
		if img != nil {
			uploaded = append(uploaded, *img)
		}
		e.markUploaded(j.seq, img)
	}
	return uploaded, errs
}

func (e *ImageEditor) markUploaded(seq int, img *domain.ProductImage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.entries {
		if e.entries[i].seq == seq {
			e.entries[i].Uploaded = true
			if img != nil && img.Image != "" {
				e.entries[i].Preview = e.env.mediaURL(img.Image)
			}
			return
		}
	}
}

func previewURI(f domain.File) string {
	return "data:" + mimetype.Detect(f.Data).String() + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}
