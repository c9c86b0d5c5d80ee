package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTP headers and content types for the storage zone API.
const (
	headerAccessKey = "AccessKey"
	contentTypeMPEG = "audio/mpeg"
)

// ZoneClient implements core.ObjectStore against an HTTP storage zone:
// PUT/GET/HEAD {baseURL}/{zone}/{key} authenticated by an access-key
// header, with clips publicly readable under a separate pull URL.
type ZoneClient struct {
	httpClient    *http.Client
	baseURL       string
	publicBaseURL string
	zone          string
	accessKey     string
}

// NewZoneClient configures a storage zone client. publicBaseURL is the
// read-side host clip URLs are built from (typically a CDN pull zone).
func NewZoneClient(baseURL, publicBaseURL, zone, accessKey string, timeout time.Duration) *ZoneClient {
	return &ZoneClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		zone:          zone,
		accessKey:     accessKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Upload stores an object under the zone path. The zone treats PUT as
// idempotent, matching the content-addressed key scheme.
func (z *ZoneClient) Upload(ctx context.Context, key string, data []byte) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPut,
		z.objectURL(key),
		bytes.NewReader(data),
	)
	if err != nil {
		return fmt.Errorf("failed to create upload request for '%s': %w", key, err)
	}

	req.Header.Set(headerAccessKey, z.accessKey)
	req.Header.Set("Content-Type", contentTypeMPEG)

	resp, err := z.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload object '%s' to zone '%s': %w", key, z.zone, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)

		return fmt.Errorf("zone upload of '%s' returned %s: %s", key, resp.Status, string(body))
	}

	return nil
}

// Download fetches an object's bytes from the zone.
func (z *ZoneClient) Download(ctx context.Context, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, z.objectURL(key), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request for '%s': %w", key, err)
	}

	req.Header.Set(headerAccessKey, z.accessKey)

	resp, err := z.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download object '%s' from zone '%s': %w", key, z.zone, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zone download of '%s' returned %s", key, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, err)
	}

	return data, nil
}

// Exists existence-checks an object with a HEAD request.
func (z *ZoneClient) Exists(ctx context.Context, key string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, z.objectURL(key), http.NoBody)
	if err != nil {
		return false, fmt.Errorf("failed to create existence check for '%s': %w", key, err)
	}

	req.Header.Set(headerAccessKey, z.accessKey)

	resp, err := z.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to check object '%s' in zone '%s': %w", key, z.zone, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("zone existence check of '%s' returned %s", key, resp.Status)
	}
}

// URL returns the public, CDN-served location of an object.
func (z *ZoneClient) URL(key string) string {
	return z.publicBaseURL + "/" + key
}

func (z *ZoneClient) objectURL(key string) string {
	return z.baseURL + "/" + z.zone + "/" + key
}
