// Package intake validates and normalizes uploaded images before they
// become role occupants. All checks are server-side; the browser client's
// pre-filtering is untrusted.
package intake

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	// Raster decoders for the allowed upload formats.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/frameloop/frameloop/internal/model"
)

// Rejection is a client-caused validation failure. The reason string is
// returned to the caller verbatim; it is never a backend error.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

func reject(format string, args ...interface{}) *Rejection {
	return &Rejection{Reason: fmt.Sprintf(format, args...)}
}

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/tiff": true,
	"image/bmp":  true,
}

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tiff": true,
	".bmp":  true,
}

const (
	// Aspect ratio must stay within [minAspect, maxAspect] (nearly square).
	minAspect = 0.9
	maxAspect = 1.1

	// Narrower side must be at least this many pixels.
	minDimension = 128
)

// Validator checks candidates against the intake rules. Stateless.
type Validator struct {
	maxBytes int64
}

// NewValidator creates a validator with the given size cap.
func NewValidator(maxBytes int64) *Validator {
	return &Validator{maxBytes: maxBytes}
}

// Validate accepts or rejects a candidate. On acceptance it returns the
// fully decoded image so the normalizer does not decode a second time;
// on rejection it returns a *Rejection with a human-readable reason.
// Checks run in order and short-circuit on the first failure. The full
// decode matters: a payload with an intact header but truncated pixel
// data is still a client fault, not a backend one.
func (v *Validator) Validate(c model.Candidate) (image.Image, error) {
	if int64(len(c.Data)) > v.maxBytes {
		return nil, reject("file size exceeds %d bytes", v.maxBytes)
	}

	if !allowedContentTypes[strings.ToLower(c.ContentType)] {
		return nil, reject("not an allowed image content type: %s", c.ContentType)
	}

	ext := strings.ToLower(filepath.Ext(c.Filename))
	if !allowedExtensions[ext] {
		return nil, reject("not an allowed image file extension: %s", ext)
	}

	src, _, err := image.Decode(bytes.NewReader(c.Data))
	if err != nil {
		return nil, reject("file is not a decodable image")
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if height <= 0 {
		return nil, reject("file is not a decodable image")
	}

	// The source enforced this with an AND that could never fire; the
	// intended band check is applied here. Recorded as a behavior change
	// from the literal source in DESIGN.md.
	ratio := float64(width) / float64(height)
	if ratio < minAspect || ratio > maxAspect {
		return nil, reject("image aspect ratio must be close to 1:1")
	}

	if width < minDimension || height < minDimension {
		return nil, reject("image dimensions must be at least %dx%d pixels", minDimension, minDimension)
	}

	return src, nil
}
