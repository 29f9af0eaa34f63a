package repository

import (
	"context"
	"fmt"

	"go-product-similarity/internal/logger"
	"go-product-similarity/internal/storage"
	"go-product-similarity/pkg/validation"

	"github.com/sirupsen/logrus"
)

// ImageSourceRepository resolves data URIs, http(s) URLs and azblob references
type ImageSourceRepository struct {
	validator    *validation.ImageValidator
	fetcher      storage.ImageFetcher
	blobs        storage.BlobStorage
	inlineRemote bool
}

// NewImageSourceRepository creates a repository. blobs may be nil when Azure
// is not configured; inlineRemote downloads http(s) images into data URIs.
func NewImageSourceRepository(validator *validation.ImageValidator, fetcher storage.ImageFetcher, blobs storage.BlobStorage, inlineRemote bool) *ImageSourceRepository {
	return &ImageSourceRepository{
		validator:    validator,
		fetcher:      fetcher,
		blobs:        blobs,
		inlineRemote: inlineRemote,
	}
}

func (r *ImageSourceRepository) ValidateImageReference(data string) error {
	_, err := r.validator.ValidateImageReference(data)
	return err
}

func (r *ImageSourceRepository) ResolveImage(ctx context.Context, data string) (string, error) {
	ref, err := r.validator.ValidateImageReference(data)
	if err != nil {
		return "", err
	}

	switch ref.Kind {
	case validation.KindRemoteURL:
		if !r.inlineRemote {
			return ref.Raw, nil
		}
		img, err := r.fetcher.Fetch(ctx, ref.Raw)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrImageUnavailable, err)
		}
		logger.WithFields(logrus.Fields{
			"mime_type": img.MIMEType,
			"size":      len(img.Data),
		}).Debug("Inlined remote image")
		return img.DataURI(), nil

	case validation.KindAzureBlob:
		if r.blobs == nil {
			return "", ErrBlobStorageUnavailable
		}
		img, err := r.blobs.Download(ctx, ref.Container, ref.Blob)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrImageUnavailable, err)
		}
		logger.WithFields(logrus.Fields{
			"container": ref.Container,
			"blob":      ref.Blob,
			"size":      len(img.Data),
		}).Debug("Inlined blob image")
		return img.DataURI(), nil

	default:
		return ref.Raw, nil
	}
}
