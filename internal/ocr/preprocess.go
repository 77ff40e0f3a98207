package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoder

	"github.com/disintegration/imaging"
)

const (
	maxImageWidth = 1000 // px, sufficient for battle report text
	jpegQuality   = 75
)

// normalizeImage downscales wide screenshots and recompresses them to
// JPEG. Recognition quality for game UI text survives the reduction
// while upload size drops sharply.
func normalizeImage(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var resized image.Image = img
	if img.Bounds().Dx() > maxImageWidth {
		resized = imaging.Resize(img, maxImageWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
