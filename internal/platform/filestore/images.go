package filestore

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/disintegration/imaging"
)

// NormalizeImage decodes data, applies EXIF orientation and downsizes it to
// maxWidth when wider. It returns the encoded bytes, the extension matching the
// encoding, and its content type. PNG and GIF keep their format; everything
// else is re-encoded as JPEG.
func NormalizeImage(data []byte, name string, maxWidth int) ([]byte, string, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", "", fmt.Errorf("filestore: decode image: %w", err)
	}
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	format, ext, contentType := imaging.JPEG, ".jpg", "image/jpeg"
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		format, ext, contentType = imaging.PNG, ".png", "image/png"
	case ".gif":
		format, ext, contentType = imaging.GIF, ".gif", "image/gif"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, "", "", fmt.Errorf("filestore: encode image: %w", err)
	}
	return buf.Bytes(), ext, contentType, nil
}
