package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// reencodeJPEG downscales img so its longest edge fits maxSide and
// encodes it as JPEG. Alpha is flattened by the encoder.
func reencodeJPEG(img image.Image, maxSide, quality int) ([]byte, int, int, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if w > maxSide || h > maxSide {
		ratio := float64(maxSide) / float64(max(w, h))
		dw := int(float64(w) * ratio)
		dh := int(float64(h) * ratio)
		if dw < 1 {
			dw = 1
		}
		if dh < 1 {
			dh = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
		img, w, h = dst, dw, dh
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), w, h, nil
}

// decodeAndReencode decodes arbitrary raster bytes (PNG, JPEG, GIF,
// WebP) and re-encodes per the options.
func decodeAndReencode(data []byte, opts Options) ([]byte, int, int, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decoding image: %w", err)
	}
	return reencodeJPEG(img, opts.MaxImageSide, opts.JPEGQuality)
}
