package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/room4-2/serviceswarm/nlu"
)

// ErrTooLarge is returned when a recording exceeds the configured maximum
var ErrTooLarge = errors.New("recording too large")

// Fetcher downloads call recordings from the telephony provider
type Fetcher struct {
	client  *resty.Client
	maxSize int
}

// NewFetcher creates a Fetcher. When accountSID is set, requests are
// authenticated with it and authToken.
func NewFetcher(accountSID, authToken string, maxSize int) *Fetcher {
	client := resty.New().
		SetTimeout(20 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Recordings can 404 briefly while the provider finalizes them
			return err != nil || r.StatusCode() == http.StatusNotFound || r.StatusCode() >= 500
		})
	if accountSID != "" {
		client.SetBasicAuth(accountSID, authToken)
	}

	return &Fetcher{
		client:  client,
		maxSize: maxSize,
	}
}

// Fetch downloads the recording at url. A Twilio recording URL without an
// extension is requested as WAV.
func (f *Fetcher) Fetch(ctx context.Context, url string) (nlu.Audio, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "audio/*").
		SetDoNotParseResponse(true).
		Get(mediaURL(url))
	if err != nil {
		return nlu.Audio{}, fmt.Errorf("failed to download recording: %w", err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	if resp.IsError() {
		return nlu.Audio{}, fmt.Errorf("recording download HTTP error: %d", resp.StatusCode())
	}

	var reader io.Reader = raw
	if f.maxSize > 0 {
		// One byte past the cap is enough to detect an oversized recording
		reader = io.LimitReader(raw, int64(f.maxSize)+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nlu.Audio{}, fmt.Errorf("failed to read recording: %w", err)
	}
	if len(body) == 0 {
		return nlu.Audio{}, errors.New("recording is empty")
	}
	if f.maxSize > 0 && len(body) > f.maxSize {
		return nlu.Audio{}, ErrTooLarge
	}

	mimeType := resp.Header().Get("Content-Type")
	if !strings.HasPrefix(mimeType, "audio/") {
		mimeType = "audio/wav"
	}

	return nlu.Audio{
		Data:     body,
		MIMEType: mimeType,
	}, nil
}

func mediaURL(url string) string {
	tail := url[strings.LastIndex(url, "/")+1:]
	if strings.Contains(tail, ".") || strings.Contains(tail, "?") {
		return url
	}
	return url + ".wav"
}
