// Package synth assembles three normalized frames into a looping GIF.
package synth

import (
	"bytes"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"

	_ "image/png" // normalized frames are PNG
)

// Synthesizer combines exactly three frames, in role order
// [start, middle, end], into an infinitely looping animation.
type Synthesizer struct {
	frameDelay int // per-frame delay, 1/100 s
}

// NewSynthesizer creates a synthesizer with the given per-frame delay.
func NewSynthesizer(frameDelay int) *Synthesizer {
	return &Synthesizer{frameDelay: frameDelay}
}

// Synthesize decodes the three inputs and encodes the animation. The
// start frame's dimensions are canonical; all inputs must match them.
// Nothing is written unless all three decode, so failure leaves no
// partial artifact behind.
func (s *Synthesizer) Synthesize(start, middle, end []byte) ([]byte, error) {
	frames := make([]*image.Paletted, 0, 3)
	var canonical image.Rectangle

	for i, data := range [][]byte{start, middle, end} {
		src, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode frame %d: %w", i, err)
		}
		bounds := src.Bounds()
		if i == 0 {
			canonical = image.Rect(0, 0, bounds.Dx(), bounds.Dy())
		} else if bounds.Dx() != canonical.Dx() || bounds.Dy() != canonical.Dy() {
			return nil, fmt.Errorf("frame %d is %dx%d, want %dx%d",
				i, bounds.Dx(), bounds.Dy(), canonical.Dx(), canonical.Dy())
		}
		pal := image.NewPaletted(canonical, palette.Plan9)
		draw.FloydSteinberg.Draw(pal, canonical, src, bounds.Min)
		frames = append(frames, pal)
	}

	anim := &gif.GIF{
		Image:     frames,
		Delay:     []int{s.frameDelay, s.frameDelay, s.frameDelay},
		LoopCount: 0, // loop forever
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, fmt.Errorf("encode gif: %w", err)
	}
	return buf.Bytes(), nil
}
