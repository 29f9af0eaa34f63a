package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/rotisserie/eris"
)

// BlobStorage downloads product images kept in object storage
type BlobStorage interface {
	Download(ctx context.Context, container, blob string) (*Image, error)
}

type azureStorage struct {
	client   *azblob.Client
	maxBytes int64
}

func NewAzureStorage(accountName string, accountKey string) (BlobStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, eris.Wrap(err, "invalid azure credential")
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create azure blob client")
	}

	return &azureStorage{client: client, maxBytes: DefaultMaxImageBytes}, nil
}

func (s *azureStorage) Download(ctx context.Context, container, blob string) (*Image, error) {
	downloadResponse, err := s.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "download %s/%s failed", container, blob)
	}

	retryReader := downloadResponse.Body
	defer retryReader.Close()

	data, err := io.ReadAll(io.LimitReader(retryReader, s.maxBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "failed to read blob")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("blob exceeds %d bytes", s.maxBytes)
	}

	declared := ""
	if downloadResponse.ContentType != nil {
		declared = *downloadResponse.ContentType
	}
	mimeType, err := imageMIMEType(declared, data)
	if err != nil {
		return nil, err
	}
	return &Image{Data: data, MIMEType: mimeType}, nil
}
