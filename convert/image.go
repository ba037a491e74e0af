package convert

import (
	"context"
	"fmt"
	"os"
)

// ImageConverter wraps a single raster image as a one-page document.
type ImageConverter struct {
	opts Options
}

func (c *ImageConverter) SupportedFormats() []string {
	return []string{"png", "jpg", "jpeg", "webp", "gif"}
}

func (c *ImageConverter) Convert(ctx context.Context, path string) ([]PageImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	jpegData, w, h, err := decodeAndReencode(data, c.opts)
	if err != nil {
		return nil, err
	}

	return []PageImage{{
		Page:      1,
		Data:      jpegData,
		MediaType: "image/jpeg",
		Width:     w,
		Height:    h,
	}}, nil
}
