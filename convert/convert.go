// Package convert turns an uploaded document (PDF, raster image, or
// slide deck) into a sequence of per-page JPEG images for the inference
// collaborator. The rest of the system treats the image bytes as
// opaque; only page identity matters downstream.
package convert

import (
	"context"
	"fmt"
	"strings"
)

// PageImage is one renderable page of a document. Placeholder pages
// mark slides with nothing to render; they keep their page number but
// carry no data and are skipped by extraction.
type PageImage struct {
	Page        int    `json:"page"` // 1-based
	Data        []byte `json:"-"`
	MediaType   string `json:"media_type"`
	Placeholder bool   `json:"placeholder,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// Options tunes conversion output.
type Options struct {
	// MaxPages caps how many pages of a document are converted.
	MaxPages int
	// MaxImageSide is the longest edge after downscaling, in pixels.
	MaxImageSide int
	// JPEGQuality is the re-encode quality (1-100).
	JPEGQuality int
	// RenderScale is the PDF rasterization scale relative to 72 DPI.
	RenderScale float64
}

// DefaultOptions matches the sizes the inference models handle well.
func DefaultOptions() Options {
	return Options{
		MaxPages:     30,
		MaxImageSide: 1400,
		JPEGQuality:  85,
		RenderScale:  1.5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxPages <= 0 {
		o.MaxPages = d.MaxPages
	}
	if o.MaxImageSide <= 0 {
		o.MaxImageSide = d.MaxImageSide
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = d.JPEGQuality
	}
	if o.RenderScale <= 0 {
		o.RenderScale = d.RenderScale
	}
	return o
}

// Converter converts one document format into page images.
type Converter interface {
	Convert(ctx context.Context, path string) ([]PageImage, error)
	SupportedFormats() []string
}

// Registry maps file formats to converters.
type Registry struct {
	converters map[string]Converter
}

// NewRegistry builds a registry with the built-in converters.
func NewRegistry(opts Options) *Registry {
	opts = opts.withDefaults()
	r := &Registry{converters: make(map[string]Converter)}

	for _, c := range []Converter{
		&PDFConverter{opts: opts},
		&ImageConverter{opts: opts},
		&PPTXConverter{opts: opts},
	} {
		for _, f := range c.SupportedFormats() {
			r.converters[f] = c
		}
	}
	return r
}

// Register adds or replaces the converter for a format.
func (r *Registry) Register(format string, c Converter) {
	r.converters[strings.ToLower(format)] = c
}

// Get returns the converter for a format.
func (r *Registry) Get(format string) (Converter, error) {
	c, ok := r.converters[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("no converter for format: %s", format)
	}
	return c, nil
}

// Formats returns the set of registered formats.
func (r *Registry) Formats() []string {
	formats := make([]string, 0, len(r.converters))
	for f := range r.converters {
		formats = append(formats, f)
	}
	return formats
}
