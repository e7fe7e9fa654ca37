package intake

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// Normalizer resizes accepted images to the canonical square frame and
// re-encodes them as PNG, the pipeline's lossless intermediate format.
// Stateless.
type Normalizer struct {
	frameSize int
}

// NewNormalizer creates a normalizer producing frameSize×frameSize frames.
func NewNormalizer(frameSize int) *Normalizer {
	return &Normalizer{frameSize: frameSize}
}

// Normalize scales a decoded image (as returned by Validate) and
// re-encodes it.
func (n *Normalizer) Normalize(src image.Image) ([]byte, error) {
	dst := image.NewRGBA(image.Rect(0, 0, n.frameSize, n.frameSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode normalized frame: %w", err)
	}
	return buf.Bytes(), nil
}
