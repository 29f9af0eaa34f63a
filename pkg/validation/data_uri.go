package validation

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrNotDataURI       = errors.New("not a data URI")
	ErrDataURINotBase64 = errors.New("data URI is not base64 encoded")
)

// IsDataURI reports whether s looks like a data: URI
func IsDataURI(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "data:")
}

// DecodeDataURI decodes data:<mime>;base64,<payload>. When the URI carries no
// media type it is sniffed from the payload.
func DecodeDataURI(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return nil, "", ErrNotDataURI
	}
	idx := strings.IndexByte(s, ',')
	if idx < 0 {
		return nil, "", ErrNotDataURI
	}

	meta := s[len("data:"):idx] // "<mime>;base64"
	payload := s[idx+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", ErrDataURINotBase64
	}
	mime := strings.TrimSuffix(meta, ";base64")
	if semi := strings.IndexByte(mime, ';'); semi >= 0 {
		mime = mime[:semi]
	}

	// Standard first, then URL-safe
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		var errURL error
		if data, errURL = base64.URLEncoding.DecodeString(payload); errURL != nil {
			return nil, "", err
		}
	}
	if mime == "" && len(data) > 0 {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}

// EncodeDataURI is the inverse of DecodeDataURI
func EncodeDataURI(mime string, data []byte) string {
	if strings.TrimSpace(mime) == "" {
		mime = http.DetectContentType(data)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
