// Package image recompresses submitted item photos. Compression is
// best-effort: any decode or encode failure returns the original input
// so ingestion never fails on a bad photo.
package image

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"golang.org/x/image/draw"
)

const (
	DefaultMaxWidth = 512
	DefaultQuality  = 80
)

// Compress takes a base64 data URL, downscales the image to at most
// maxWidth (never enlarging) and re-encodes it as JPEG. The result is
// again a data URL. On any failure the input comes back unchanged.
func Compress(dataURL string, maxWidth, quality int) string {
	parts := strings.SplitN(dataURL, ",", 2)
	if len(parts) != 2 || parts[1] == "" {
		return dataURL
	}
	raw, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return dataURL
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return dataURL
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxWidth {
		h = h * maxWidth / w
		w = maxWidth
		if h < 1 {
			h = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		src = dst
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: quality}); err != nil {
		return dataURL
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
