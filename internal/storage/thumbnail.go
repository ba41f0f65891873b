package storage

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
)

// MakeThumbnail writes a JPEG preview of a processed image whose longest side is at
// most maxPx and returns its relative path under thumbnails/.
func (s *LocalStore) MakeThumbnail(rel string, maxPx int) (string, error) {
	if !strings.HasPrefix(rel, ProcessedDir+"/") {
		return "", fmt.Errorf("thumbnail source %q is not a processed image", rel)
	}
	src, err := s.Open(rel)
	if err != nil {
		return "", err
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	thumbRel := ThumbnailsDir + "/" + strings.TrimSuffix(strings.TrimPrefix(rel, ProcessedDir+"/"), filepath.Ext(rel)) + ".jpg"
	dst, err := s.Abs(thumbRel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if err := jpeg.Encode(out, downscale(img, maxPx), &jpeg.Options{Quality: 80}); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return thumbRel, nil
}

// downscale resizes with nearest-neighbour sampling so the longest side is at most maxPx.
// Images already small enough are returned unchanged.
func downscale(src image.Image, maxPx int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxPx <= 0 || (w <= maxPx && h <= maxPx) {
		return src
	}

	nw, nh := maxPx, maxPx
	if w >= h {
		nh = max(1, h*maxPx/w)
	} else {
		nw = max(1, w*maxPx/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	for y := 0; y < nh; y++ {
		sy := b.Min.Y + y*h/nh
		for x := 0; x < nw; x++ {
			dst.Set(x, y, src.At(b.Min.X+x*w/nw, sy))
		}
	}
	return dst
}
