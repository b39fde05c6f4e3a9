package converter

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

const (
	DefaultMaxWidth = 1600
	jpegQuality     = 85
)

// ReceiptConverter shrinks receipt photos before OCR upload. Phone cameras
// produce images far larger than recognition needs.
type ReceiptConverter struct {
	logger   *zap.Logger
	maxWidth int
}

func NewReceiptConverter(maxWidth int, logger *zap.Logger) *ReceiptConverter {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	return &ReceiptConverter{logger: logger, maxWidth: maxWidth}
}

// Prepare decodes src, applies EXIF orientation, downscales it to the
// configured width when wider, and re-encodes it as JPEG.
func (c *ReceiptConverter) Prepare(src io.Reader) ([]byte, error) {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		c.logger.Error("Failed to decode receipt image", zap.Error(err))
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var processed image.Image = img
	bounds := img.Bounds()

	if bounds.Dx() > c.maxWidth {
		c.logger.Info("Resizing receipt",
			zap.Int("width", bounds.Dx()),
			zap.Int("height", bounds.Dy()),
			zap.Int("target_width", c.maxWidth),
		)
		processed = imaging.Resize(img, c.maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, processed, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		c.logger.Error("Failed to encode receipt", zap.Error(err))
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}

	c.logger.Debug("Receipt prepared",
		zap.Int("bytes", buf.Len()),
		zap.Int("width", processed.Bounds().Dx()),
	)

	return buf.Bytes(), nil
}
