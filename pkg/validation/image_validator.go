package validation

import (
	"net/url"
	"strings"

	apperrors "go-product-similarity/internal/errors"
)

// ReferenceKind tells how an image is supplied
type ReferenceKind string

const (
	KindDataURI   ReferenceKind = "data_uri"
	KindRemoteURL ReferenceKind = "url"
	KindAzureBlob ReferenceKind = "azblob"
)

// ImageReference is a parsed image data field
type ImageReference struct {
	Kind ReferenceKind
	Raw  string
	// Container and Blob are set for azblob://container/blob references
	Container string
	Blob      string
}

// ImageValidator handles image reference validation logic
type ImageValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewImageValidator creates a validator accepting any http(s) host
func NewImageValidator() *ImageValidator {
	return &ImageValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewImageValidatorWithOptions restricts remote URLs to the given schemes and hosts.
// No schemes means http and https.
func NewImageValidatorWithOptions(schemes []string, hosts []string) *ImageValidator {
	if len(schemes) == 0 {
		return &ImageValidator{
			allowedSchemes: []string{"http", "https"},
			allowedHosts:   hosts,
		}
	}
	return &ImageValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateImageReference classifies data as a data URI, a remote URL or an
// Azure blob reference and rejects anything else
func (v *ImageValidator) ValidateImageReference(data string) (ImageReference, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return ImageReference{}, apperrors.NewValidationError("image data cannot be empty", nil)
	}

	if IsDataURI(data) {
		if _, _, err := DecodeDataURI(data); err != nil {
			return ImageReference{}, apperrors.NewValidationError("invalid image data URI", err)
		}
		return ImageReference{Kind: KindDataURI, Raw: data}, nil
	}

	parsedURL, err := url.Parse(data)
	if err != nil {
		return ImageReference{}, apperrors.NewValidationError("invalid image URL format", err)
	}

	if strings.EqualFold(parsedURL.Scheme, "azblob") {
		blob := strings.TrimPrefix(parsedURL.Path, "/")
		if parsedURL.Host == "" || blob == "" {
			return ImageReference{}, apperrors.NewValidationError("azblob reference must be azblob://container/blob", nil)
		}
		return ImageReference{Kind: KindAzureBlob, Raw: data, Container: parsedURL.Host, Blob: blob}, nil
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return ImageReference{}, apperrors.NewValidationError("image URL scheme not allowed", nil)
	}

	if parsedURL.Host == "" {
		return ImageReference{}, apperrors.NewValidationError("image URL must have a valid host", nil)
	}

	if !v.isHostAllowed(parsedURL.Hostname()) {
		return ImageReference{}, apperrors.NewValidationError("image URL host not allowed", nil)
	}

	return ImageReference{Kind: KindRemoteURL, Raw: data}, nil
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *ImageValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isHostAllowed returns true if no host restrictions are set
func (v *ImageValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}
