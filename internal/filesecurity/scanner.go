// Package filesecurity inspects uploaded images before they are stored.
package filesecurity

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/postertrack/backend/internal/apperr"
	"go.uber.org/zap"
)

// ErrUnsafeFile marks a file rejected by the scan.
var ErrUnsafeFile = errors.New("unsafe file")

// maxTrailingBytes is how much data after an image end marker is tolerated.
// Some cameras append small vendor trailers.
const maxTrailingBytes = 64

type Result struct {
	DetectedMIME string   `json:"detected_mime"`
	Extension    string   `json:"extension"`
	Size         int64    `json:"size"`
	Width        int      `json:"width,omitempty"`
	Height       int      `json:"height,omitempty"`
	Threats      []string `json:"threats,omitempty"`
}

func (r *Result) Safe() bool { return len(r.Threats) == 0 }

type signature struct {
	mime   string
	ext    string
	offset int
	magic  []byte
}

var signatures = []signature{
	{mime: "image/jpeg", ext: "jpg", magic: []byte{0xFF, 0xD8, 0xFF}},
	{mime: "image/png", ext: "png", magic: []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}},
	{mime: "image/gif", ext: "gif", magic: []byte("GIF87a")},
	{mime: "image/gif", ext: "gif", magic: []byte("GIF89a")},
	{mime: "image/webp", ext: "webp", offset: 8, magic: []byte("WEBP")},
}

var suspiciousPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"script tag", regexp.MustCompile(`(?i)<script[\s>/]`)},
	{"php code", regexp.MustCompile(`(?i)<\?php`)},
	{"server page directive", regexp.MustCompile(`<%@\s*page`)},
	{"javascript uri", regexp.MustCompile(`(?i)javascript:`)},
	{"eval call", regexp.MustCompile(`(?i)\beval\s*\(`)},
	{"base64_decode call", regexp.MustCompile(`(?i)base64_decode\s*\(`)},
	{"inline event handler", regexp.MustCompile(`(?i)\bon(error|load|click|mouseover)\s*=`)},
	{"shell command", regexp.MustCompile(`#!/(usr/)?bin/`)},
	{"iframe tag", regexp.MustCompile(`(?i)<iframe[\s>/]`)},
}

var embeddedSignatures = []struct {
	name  string
	magic []byte
}{
	{"zip archive", []byte("PK\x03\x04")},
	{"elf executable", []byte("\x7fELF")},
	{"pdf document", []byte("%PDF-")},
	{"windows executable", []byte("This program cannot be run in DOS mode")},
	{"rar archive", []byte("Rar!\x1a\x07")},
}

var htmlStart = regexp.MustCompile(`(?i)<(html|body|svg|head)[\s>]`)

type Scanner struct {
	maxBytes int64
	allowed  map[string]bool
	log      *zap.Logger
}

func NewScanner(maxBytes int64, allowedMIME []string, log *zap.Logger) *Scanner {
	allowed := make(map[string]bool, len(allowedMIME))
	for _, m := range allowedMIME {
		allowed[normalizeMIME(m)] = true
	}
	return &Scanner{maxBytes: maxBytes, allowed: allowed, log: log}
}

// Allowed reports whether a declared content type passes the allow list.
func (s *Scanner) Allowed(mime string) bool {
	return s.allowed[normalizeMIME(mime)]
}

// Scan inspects the file at path. A file that fails any check yields a validation
// error wrapping ErrUnsafeFile together with the partial result.
func (s *Scanner) Scan(path, declaredMIME string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	res := &Result{Size: int64(len(data))}
	if len(data) == 0 {
		return res, s.reject(res, "file is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return res, s.reject(res, fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}

	sig, ok := detect(data)
	if !ok {
		return res, s.reject(res, "unrecognized image signature")
	}
	res.DetectedMIME = sig.mime
	res.Extension = sig.ext

	if !s.allowed[sig.mime] {
		res.Threats = append(res.Threats, "image type "+sig.mime+" is not allowed")
	}
	if declared := normalizeMIME(declaredMIME); declared != "" && declared != "application/octet-stream" && declared != sig.mime {
		res.Threats = append(res.Threats, fmt.Sprintf("declared type %s does not match content %s", declared, sig.mime))
	}

	for _, p := range suspiciousPatterns {
		if p.re.Match(data) {
			res.Threats = append(res.Threats, "suspicious content: "+p.name)
		}
	}
	res.Threats = append(res.Threats, polyglotThreats(sig, data)...)

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		res.Width, res.Height = cfg.Width, cfg.Height
	} else if sig.mime != "image/webp" {
		res.Threats = append(res.Threats, "image header is corrupt")
	}

	if !res.Safe() {
		return res, s.reject(res)
	}
	return res, nil
}

func (s *Scanner) reject(res *Result, threats ...string) error {
	res.Threats = append(res.Threats, threats...)
	s.log.Warn("upload rejected by scanner",
		zap.String("detected_mime", res.DetectedMIME),
		zap.Int64("size", res.Size),
		zap.Strings("threats", res.Threats),
	)
	return apperr.Wrap(apperr.KindValidation, "file failed security scan: "+strings.Join(res.Threats, "; "), ErrUnsafeFile)
}

func detect(data []byte) (signature, bool) {
	for _, sig := range signatures {
		end := sig.offset + len(sig.magic)
		if len(data) < end {
			continue
		}
		if sig.mime == "image/webp" && !bytes.HasPrefix(data, []byte("RIFF")) {
			continue
		}
		if bytes.Equal(data[sig.offset:end], sig.magic) {
			return sig, true
		}
	}
	return signature{}, false
}

func polyglotThreats(sig signature, data []byte) []string {
	var threats []string

	if n := trailingBytes(sig.mime, data); n > maxTrailingBytes {
		threats = append(threats, fmt.Sprintf("%d bytes of trailing data after image end", n))
	}
	for _, e := range embeddedSignatures {
		if bytes.Contains(data[len(sig.magic):], e.magic) {
			threats = append(threats, "embedded "+e.name)
		}
	}
	if loc := htmlStart.FindIndex(data); loc != nil {
		threats = append(threats, "embedded html document")
		threats = append(threats, htmlThreats(data[loc[0]:])...)
	}
	return threats
}

// trailingBytes counts non-padding bytes following the format's end marker.
func trailingBytes(mime string, data []byte) int {
	var end int
	switch mime {
	case "image/jpeg":
		i := bytes.LastIndex(data, []byte{0xFF, 0xD9})
		if i < 0 {
			return len(data)
		}
		end = i + 2
	case "image/png":
		i := bytes.LastIndex(data, []byte("IEND"))
		if i < 0 {
			return len(data)
		}
		end = i + 8 // chunk type plus CRC
	case "image/gif":
		i := bytes.LastIndexByte(bytes.TrimRight(data, "\x00"), 0x3B)
		if i < 0 {
			return len(data)
		}
		end = i + 1
	case "image/webp":
		if len(data) < 8 {
			return len(data)
		}
		end = int(binary.LittleEndian.Uint32(data[4:8])) + 8
		if end%2 == 1 {
			end++
		}
	}
	if end >= len(data) {
		return 0
	}
	return len(bytes.TrimRight(data[end:], "\x00\r\n\t "))
}

// htmlThreats parses an embedded markup fragment and reports active content.
func htmlThreats(fragment []byte) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(fragment))
	if err != nil {
		return nil
	}

	var threats []string
	for _, tag := range []string{"script", "iframe", "object", "embed"} {
		if doc.Find(tag).Length() > 0 {
			threats = append(threats, "embedded "+tag+" element")
		}
	}
	handler := false
	doc.Find("*").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		for _, attr := range sel.Nodes[0].Attr {
			if strings.HasPrefix(strings.ToLower(attr.Key), "on") {
				handler = true
				return false
			}
		}
		return true
	})
	if handler {
		threats = append(threats, "embedded event handler attribute")
	}
	return threats
}

func normalizeMIME(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	switch m {
	case "image/jpg", "image/pjpeg":
		return "image/jpeg"
	case "image/x-png":
		return "image/png"
	}
	return m
}
