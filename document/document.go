// Package document defines the Document/Page data model produced by the
// image pipeline.  The shape is interchange-compatible with the downstream
// document-assembly consumer: one Document wrapping an ordered list of
// Pages, each Page owning exactly one ImageMetadata value.
package document

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the processing state of a Document.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ImageMetadata describes a persisted page image.  Width, Height, and
// FileSize are strictly positive whenever the owning Page exists; FileSize
// is the size of the persisted artifact, not the original upload.
type ImageMetadata struct {
	Width           int               `json:"width"`
	Height          int               `json:"height"`
	Mode            string            `json:"mode"`   // RGB, RGBA, grayscale, palette, ...
	Format          string            `json:"format"` // JPEG, PNG, WEBP, BMP, TIFF, Unknown
	FileSize        int64             `json:"file_size"`
	HasTransparency bool              `json:"has_transparency"`
	EXIF            map[string]string `json:"exif,omitempty"` // nil when disabled or absent
}

// Page represents one page of a Document.  DocumentName and DocumentID are
// denormalized labels patched in once at Document assembly; they are never
// navigable parent pointers.
type Page struct {
	PageNumber    int           `json:"page_number"`
	TextContent   *string       `json:"text_content,omitempty"` // always nil for image sources
	ImagePath     string        `json:"image_path"`
	ThumbnailPath string        `json:"thumbnail_path,omitempty"`
	Metadata      ImageMetadata `json:"metadata"`
	DocumentName  string        `json:"document_name,omitempty"`
	DocumentID    string        `json:"document_id,omitempty"`
}

// Document wraps one or more Pages.  NumPages == len(Pages) always; the
// constructor enforces it.
type Document struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	FilePath  string            `json:"file_path"` // processed artifact, not the original upload
	NumPages  int               `json:"num_pages"`
	Pages     []Page            `json:"pages"`
	Status    Status            `json:"status"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewPage constructs a Page, validating its required fields.
func NewPage(pageNumber int, imagePath, thumbnailPath string, meta ImageMetadata) (Page, error) {
	if pageNumber <= 0 {
		return Page{}, fmt.Errorf("page number must be positive, got %d", pageNumber)
	}
	if strings.TrimSpace(imagePath) == "" {
		return Page{}, errors.New("image path must not be empty")
	}
	return Page{
		PageNumber:    pageNumber,
		ImagePath:     imagePath,
		ThumbnailPath: thumbnailPath,
		Metadata:      meta,
	}, nil
}

// NewDocument constructs a Document and enforces the NumPages invariant.
// An empty id is replaced with a generated one.
func NewDocument(id, title, filePath string, pages []Page, status Status, meta map[string]string) (*Document, error) {
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("document title must not be empty")
	}
	if len(pages) == 0 {
		return nil, errors.New("document must contain at least one page")
	}
	if id == "" {
		id = NewDocumentID()
	}
	if meta == nil {
		meta = make(map[string]string)
	}
	doc := &Document{
		ID:        id,
		Title:     title,
		FilePath:  filePath,
		NumPages:  len(pages),
		Pages:     pages,
		Status:    status,
		Metadata:  meta,
		CreatedAt: time.Now(),
	}
	doc.UpdatePageReferences()
	return doc, nil
}

// NewDocumentID generates a short random document id of the form doc_<8 hex>.
func NewDocumentID() string {
	return "doc_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// GetPage returns the page with the given number, or nil when absent.
func (d *Document) GetPage(pageNumber int) *Page {
	for i := range d.Pages {
		if d.Pages[i].PageNumber == pageNumber {
			return &d.Pages[i]
		}
	}
	return nil
}

// UpdatePageReferences patches the document name/id labels onto every page.
func (d *Document) UpdatePageReferences() {
	for i := range d.Pages {
		d.Pages[i].DocumentName = d.Title
		d.Pages[i].DocumentID = d.ID
	}
}
