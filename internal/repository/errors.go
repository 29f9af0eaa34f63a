package repository

import "errors"

var (
	// ErrImageUnavailable indicates a referenced image could not be downloaded
	ErrImageUnavailable = errors.New("image unavailable")

	// ErrBlobStorageUnavailable indicates an azblob reference with no blob storage configured
	ErrBlobStorageUnavailable = errors.New("blob storage is not configured")
)
