// Package compress re-encodes oversized images toward a byte budget.
package compress

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	// Registered decoders for the formats StdCodec accepts as input.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageInfo is what a codec reports about an encoded image.
type ImageInfo struct {
	Width     int
	Height    int
	SizeBytes int64
	Format    string
}

// Codec encodes images at a given quality and probes encoded images.
type Codec interface {
	// Encode re-encodes data at quality (1..100).
	Encode(data []byte, quality int) ([]byte, error)
	Probe(data []byte) (ImageInfo, error)
}

// StdCodec decodes any registered image format and encodes JPEG.
type StdCodec struct{}

func (StdCodec) Encode(data []byte, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func (StdCodec) Probe(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to probe image: %w", err)
	}
	return ImageInfo{
		Width:     cfg.Width,
		Height:    cfg.Height,
		SizeBytes: int64(len(data)),
		Format:    format,
	}, nil
}
