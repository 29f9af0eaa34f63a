package repository

import "context"

// ImageRepository turns an image data field into something the model can read
type ImageRepository interface {
	// ResolveImage returns a data URI or a URL the model endpoint can fetch
	ResolveImage(ctx context.Context, data string) (string, error)

	// ValidateImageReference checks data without fetching anything
	ValidateImageReference(data string) error
}
