package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultMaxAttempts  = 2
	defaultBackoff      = 500 * time.Millisecond
	defaultImageMIME    = "image/jpeg"
	// inline image data above this size is rejected by the model API
	maxImageBytes = 20 << 20
)

// ImagePayload is an image ready to send to the audit model
type ImagePayload struct {
	// Data is the base64 encoded image without any data URL prefix.
	Data     string
	MIMEType string
}

// ImageFetcher downloads remote images for analysis
type ImageFetcher struct {
	client      *http.Client
	maxAttempts int
	backoff     time.Duration
}

// NewImageFetcher creates a new ImageFetcher. Each download attempt is
// bounded by timeout; transient failures are retried up to maxAttempts.
func NewImageFetcher(timeout time.Duration, maxAttempts int) *ImageFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &ImageFetcher{
		client:      &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		backoff:     defaultBackoff,
	}
}

// WithHTTPClient replaces the client used for downloads
func (f *ImageFetcher) WithHTTPClient(c *http.Client) *ImageFetcher {
	f.client = c
	return f
}

// WithBackoff sets the delay before the first retry
func (f *ImageFetcher) WithBackoff(d time.Duration) *ImageFetcher {
	f.backoff = d
	return f
}

// Normalize turns an image reference into a payload for the audit model.
// Data strings lose their "data:<mime>;base64," prefix, http(s) URLs are
// downloaded and base64 encoded, anything else is passed through as is.
func (f *ImageFetcher) Normalize(ctx context.Context, img model.Image) (ImagePayload, error) {
	value := strings.TrimSpace(img.Value())
	if value == "" {
		return ImagePayload{}, fmt.Errorf("%w: image reference is empty", ErrInvalidImagePayload)
	}

	switch {
	case strings.HasPrefix(value, "data:") || (img.IsEmbedded() && strings.Contains(value, ",")):
		return splitDataString(value)
	case strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://"):
		return f.fetch(ctx, value)
	default:
		return ImagePayload{Data: value, MIMEType: defaultImageMIME}, nil
	}
}

// splitDataString extracts the payload and MIME type from
// "data:<mime>;base64,<payload>"
func splitDataString(value string) (ImagePayload, error) {
	prefix, payload, found := strings.Cut(value, ",")
	if !found || strings.TrimSpace(payload) == "" {
		return ImagePayload{}, fmt.Errorf("%w: data string has no payload after its prefix", ErrInvalidImagePayload)
	}

	mimeType := defaultImageMIME
	if rest, ok := strings.CutPrefix(prefix, "data:"); ok {
		if mt, _, _ := strings.Cut(rest, ";"); mt != "" {
			mimeType = mt
		}
	}

	return ImagePayload{Data: strings.TrimSpace(payload), MIMEType: mimeType}, nil
}

func (f *ImageFetcher) fetch(ctx context.Context, url string) (ImagePayload, error) {
	body, err := f.fetchWithRetry(ctx, url)
	if err != nil {
		return ImagePayload{}, fmt.Errorf("%w: %s: %w", ErrImageNotAccessible, url, err)
	}
	if len(body) == 0 {
		return ImagePayload{}, fmt.Errorf("%w: %s returned an empty body", ErrImageNotAccessible, url)
	}

	mimeType := mimetype.Detect(body).String()
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = defaultImageMIME
	}

	return ImagePayload{
		Data:     base64.StdEncoding.EncodeToString(body),
		MIMEType: mimeType,
	}, nil
}

// fetchWithRetry performs an HTTP GET with exponential backoff retry.
// Only network errors, 429 and 5xx responses are retried.
func (f *ImageFetcher) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	backoff := f.backoff

	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		body, err := f.get(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !IsRetryable(err) {
			break
		}
	}

	return nil, lastErr
}

func (f *ImageFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, retryable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, retryable(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, retryable(err)
	}
	if len(body) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	return body, nil
}
