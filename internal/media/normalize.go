package media

import (
	"bytes"
	"fmt"
	"image"

	"snapbuy/internal/domain"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	MaxWidth    = 1024
	JPEGQuality = 70

	// MaxPixels bounds the decoded size of an input image.
	MaxPixels = 40_000_000
)

// Normalizer downsamples images to at most MaxWidth pixels wide and
// re-encodes them as JPEG at JPEGQuality.
type Normalizer struct{}

func NewNormalizer() *Normalizer { return &Normalizer{} }

// Normalize decodes raw (jpeg, png, gif or webp), honours EXIF orientation,
// shrinks it if wider than MaxWidth and returns the JPEG encoding.
func (n *Normalizer) Normalize(raw []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, normalizeErr(fmt.Errorf("decode header: %w", err))
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxPixels {
		return nil, normalizeErr(fmt.Errorf("image is %dx%d, over the %d pixel limit", cfg.Width, cfg.Height, MaxPixels))
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, normalizeErr(fmt.Errorf("decode: %w", err))
	}

	if img.Bounds().Dx() > MaxWidth {
		img = imaging.Resize(img, MaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, normalizeErr(fmt.Errorf("encode: %w", err))
	}
	return buf.Bytes(), nil
}

func normalizeErr(err error) *domain.StageError {
	return &domain.StageError{Stage: domain.StageNormalize, Kind: domain.ErrNormalizeFailed, Err: err}
}
