package services

import (
	"encoding/base64"
	"fmt"
	"linkup/internal/core/domain"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// maxInlineImage caps decoded data-URI payloads.
const maxInlineImage = 2 << 20

// checkImageRef accepts an http(s) URL or a base64 data URI whose bytes
// sniff as an image. The declared media type of a data URI is not trusted.
func checkImageRef(ref string) error {
	if ref == "" {
		return nil
	}
	if rest, ok := strings.CutPrefix(ref, "data:"); ok {
		_, payload, found := strings.Cut(rest, ";base64,")
		if !found {
			return fmt.Errorf("%w: image data uri must be base64", domain.ErrInvalidInput)
		}
		if base64.StdEncoding.DecodedLen(len(payload)) > maxInlineImage {
			return fmt.Errorf("%w: image too large", domain.ErrInvalidInput)
		}
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return fmt.Errorf("%w: image data uri: %v", domain.ErrInvalidInput, err)
		}
		mt := mimetype.Detect(raw)
		if !strings.HasPrefix(mt.String(), "image/") {
			return fmt.Errorf("%w: unsupported image type %s", domain.ErrInvalidInput, mt.String())
		}
		return nil
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: image must be an http(s) url or data uri", domain.ErrInvalidInput)
	}
	return nil
}
