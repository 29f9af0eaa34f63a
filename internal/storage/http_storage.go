package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go-product-similarity/pkg/validation"

	"github.com/rotisserie/eris"
)

// DefaultMaxImageBytes caps a single downloaded image
const DefaultMaxImageBytes = 20 * 1024 * 1024

// Image is downloaded image content
type Image struct {
	Data     []byte
	MIMEType string
}

// DataURI inlines the image as a base64 data URI
func (i *Image) DataURI() string {
	return validation.EncodeDataURI(i.MIMEType, i.Data)
}

type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) (*Image, error)
}

// HTTPImageFetcher downloads remote product images with a small retry budget
type HTTPImageFetcher struct {
	client   *http.Client
	maxBytes int64
	backoff  func(attempt int) time.Duration
}

// NewHTTPImageFetcher creates an HTTP image fetcher. maxBytes <= 0 selects DefaultMaxImageBytes.
func NewHTTPImageFetcher(maxBytes int64) ImageFetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxBytes: maxBytes,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * time.Second
		},
	}
}

func (h *HTTPImageFetcher) Fetch(ctx context.Context, imageURL string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "invalid URL")
	}

	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, */*")
	req.Header.Set("User-Agent", "Go-Product-Similarity/1.0")

	// Retry logic (3 attempts) - only retry on transient errors
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		resp, err = h.client.Do(req)

		if err != nil {
			lastErr = err
		}

		if err == nil && resp.StatusCode == http.StatusOK {
			break
		}

		if err == nil {
			resp.Body.Close()

			// 4xx client errors are non-retryable
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, eris.Wrap(
					eris.Errorf("client error: status code %d", resp.StatusCode), "failed to fetch image")
			}
			lastErr = eris.Errorf("server error: status code %d", resp.StatusCode)
		}
		resp = nil

		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "failed to fetch image")
		}

		// Sleep before next retry (not on last attempt)
		if attempt < 2 {
			select {
			case <-ctx.Done():
				return nil, eris.Wrap(ctx.Err(), "failed to fetch image")
			case <-time.After(h.backoff(attempt)):
			}
		}
	}

	if resp == nil {
		if lastErr != nil {
			return nil, eris.Wrap(lastErr, "failed to fetch image after 3 attempts")
		}
		return nil, eris.New("failed to fetch image after 3 attempts: unknown error")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "failed to read image")
	}
	if int64(len(data)) > h.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", h.maxBytes)
	}

	mimeType, err := imageMIMEType(resp.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, err
	}
	return &Image{Data: data, MIMEType: mimeType}, nil
}

// imageMIMEType prefers the declared type and falls back to sniffing
func imageMIMEType(declared string, data []byte) (string, error) {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && strings.HasPrefix(mediaType, "image/") {
		return mediaType, nil
	}
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed, nil
	}
	return "", fmt.Errorf("unexpected content type %q", sniffed)
}
