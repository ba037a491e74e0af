package convert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
)

// PDFConverter renders PDF pages to JPEG images.
type PDFConverter struct {
	opts Options
}

func (c *PDFConverter) SupportedFormats() []string { return []string{"pdf"} }

func (c *PDFConverter) Convert(ctx context.Context, path string) ([]PageImage, error) {
	if err := validatePDF(path); err != nil {
		return nil, err
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	n := total
	if n > c.opts.MaxPages {
		slog.Info("convert: capping PDF pages", "total", total, "max", c.opts.MaxPages)
		n = c.opts.MaxPages
	}

	dpi := 72 * c.opts.RenderScale
	pages := make([]PageImage, 0, n)
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(i, dpi)
		if err != nil {
			return nil, fmt.Errorf("rendering page %d: %w", i+1, err)
		}
		data, w, h, err := reencodeJPEG(img, c.opts.MaxImageSide, c.opts.JPEGQuality)
		if err != nil {
			return nil, fmt.Errorf("encoding page %d: %w", i+1, err)
		}
		pages = append(pages, PageImage{
			Page:      i + 1,
			Data:      data,
			MediaType: "image/jpeg",
			Width:     w,
			Height:    h,
		})
	}
	return pages, nil
}

// validatePDF checks the file is a well-formed PDF before handing it to
// the renderer, which reports structural problems less clearly.
func validatePDF(path string) error {
	f, r, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("invalid PDF: %w", err)
	}
	defer f.Close()

	if r.NumPage() == 0 {
		return fmt.Errorf("invalid PDF: no pages")
	}
	return nil
}
