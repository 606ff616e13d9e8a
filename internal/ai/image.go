package ai

import (
	"bytes"
	"fmt"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"classroom-quiz-service/internal/domain"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

var acceptedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// PrepareImage sniffs an uploaded page, shrinks it to fit in maxPx on its
// longest side and re-encodes it as JPEG. Uploads that are already small JPEGs
// are passed through untouched.
func PrepareImage(data []byte, maxPx int) (domain.Image, error) {
	if len(data) == 0 {
		return domain.Image{}, fmt.Errorf("%w: empty image", domain.ErrInvalidInput)
	}
	mime := mimetype.Detect(data)
	if !mimetype.EqualsAny(mime.String(), acceptedImageTypes...) {
		return domain.Image{}, fmt.Errorf("%w: unsupported image type %s", domain.ErrInvalidInput, mime.String())
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return domain.Image{}, fmt.Errorf("%w: decode image: %v", domain.ErrInvalidInput, err)
	}

	bounds := img.Bounds()
	fits := maxPx <= 0 || (bounds.Dx() <= maxPx && bounds.Dy() <= maxPx)
	if fits && mime.Is("image/jpeg") {
		return domain.Image{Data: data, MIMEType: "image/jpeg"}, nil
	}
	if !fits {
		img = imaging.Fit(img, maxPx, maxPx, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return domain.Image{}, fmt.Errorf("encode image: %w", err)
	}
	return domain.Image{Data: buf.Bytes(), MIMEType: "image/jpeg"}, nil
}
