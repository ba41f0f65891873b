package filesecurity

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/postertrack/backend/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var allTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		for y := 0; y < 30; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: uint8(y * 8), B: 120, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func writeFile(t *testing.T, data []byte) string {
	path := filepath.Join(t.TempDir(), "upload")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func newScanner(allowed ...string) *Scanner {
	if len(allowed) == 0 {
		allowed = allTypes
	}
	return NewScanner(1<<20, allowed, zap.NewNop())
}

func TestScanAcceptsCleanImages(t *testing.T) {
	tests := []struct {
		name     string
		data     func(*testing.T) []byte
		declared string
		mime     string
		ext      string
	}{
		{"png", pngBytes, "image/png", "image/png", "png"},
		{"jpeg", jpegBytes, "image/jpeg", "image/jpeg", "jpg"},
		{"jpg alias", jpegBytes, "image/jpg", "image/jpeg", "jpg"},
		{"octet stream", pngBytes, "application/octet-stream", "image/png", "png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newScanner().Scan(writeFile(t, tt.data(t)), tt.declared)
			require.NoError(t, err)
			assert.Equal(t, tt.mime, res.DetectedMIME)
			assert.Equal(t, tt.ext, res.Extension)
			assert.Equal(t, 40, res.Width)
			assert.Equal(t, 30, res.Height)
			assert.Empty(t, res.Threats)
		})
	}
}

func TestScanRejects(t *testing.T) {
	tests := []struct {
		name     string
		data     func(*testing.T) []byte
		declared string
		allowed  []string
		threat   string
	}{
		{
			name:   "empty",
			data:   func(*testing.T) []byte { return nil },
			threat: "file is empty",
		},
		{
			name:   "plain text",
			data:   func(*testing.T) []byte { return []byte("hello world, not an image") },
			threat: "unrecognized image signature",
		},
		{
			name:     "declared type mismatch",
			data:     pngBytes,
			declared: "image/jpeg",
			threat:   "declared type image/jpeg does not match content image/png",
		},
		{
			name:    "type not allowed",
			data:    pngBytes,
			allowed: []string{"image/jpeg"},
			threat:  "image type image/png is not allowed",
		},
		{
			name: "php payload",
			data: func(t *testing.T) []byte {
				return append(pngBytes(t), []byte("<?php system($_GET['c']); ?>")...)
			},
			threat: "suspicious content: php code",
		},
		{
			name: "trailing zip",
			data: func(t *testing.T) []byte {
				return append(jpegBytes(t), append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0x41}, 200)...)...)
			},
			threat: "embedded zip archive",
		},
		{
			name: "html polyglot",
			data: func(t *testing.T) []byte {
				return append(jpegBytes(t), []byte(`<html><body><img src="x" onerror="alert(1)"><script>x()</script></body></html>`)...)
			},
			threat: "embedded script element",
		},
		{
			name: "elf appended",
			data: func(t *testing.T) []byte {
				return append(pngBytes(t), []byte("\x7fELF\x02\x01\x01")...)
			},
			threat: "embedded elf executable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newScanner(tt.allowed...).Scan(writeFile(t, tt.data(t)), tt.declared)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnsafeFile)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
			require.NotNil(t, res)
			assert.Contains(t, res.Threats, tt.threat)
		})
	}
}

func TestScanHTMLPolyglotReportsHandlers(t *testing.T) {
	data := append(pngBytes(t), []byte(`<svg onload="steal()"></svg>`)...)
	res, err := newScanner().Scan(writeFile(t, data), "image/png")
	require.Error(t, err)
	assert.Contains(t, res.Threats, "embedded html document")
	assert.Contains(t, res.Threats, "embedded event handler attribute")
}

func TestScanTooLarge(t *testing.T) {
	s := NewScanner(16, allTypes, zap.NewNop())
	res, err := s.Scan(writeFile(t, pngBytes(t)), "image/png")
	assert.ErrorIs(t, err, ErrUnsafeFile)
	assert.Contains(t, res.Threats, "file exceeds 16 bytes")
}

func TestScanMissingFile(t *testing.T) {
	_, err := newScanner().Scan(filepath.Join(t.TempDir(), "nope"), "image/png")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsafeFile)
}

func TestTrailingBytesToleratesPadding(t *testing.T) {
	data := append(jpegBytes(t), 0, 0, '\n')
	assert.Zero(t, trailingBytes("image/jpeg", data))

	data = append(pngBytes(t), bytes.Repeat([]byte{'A'}, 10)...)
	assert.Equal(t, 10, trailingBytes("image/png", data))
}

func TestNormalizeMIME(t *testing.T) {
	tests := map[string]string{
		"image/JPG":                "image/jpeg",
		" image/pjpeg ":            "image/jpeg",
		"image/png; charset=utf-8": "image/png",
		"image/x-png":              "image/png",
		"image/webp":               "image/webp",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeMIME(in), in)
	}
}

func TestAllowed(t *testing.T) {
	s := newScanner("image/jpeg")
	assert.True(t, s.Allowed("image/jpg"))
	assert.False(t, s.Allowed("image/gif"))
}
