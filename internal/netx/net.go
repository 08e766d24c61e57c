// Package netx moves encrypted record content to and from the content
// store through presigned URLs.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody bounds how much of a failed response is quoted in errors.
const maxErrorBody = 1 << 10

// Transfer performs presigned PUT and GET requests.
type Transfer struct {
	client *http.Client
}

// NewTransfer returns a Transfer over c, or http.DefaultClient when c is nil.
func NewTransfer(c *http.Client) *Transfer {
	if c == nil {
		c = http.DefaultClient
	}
	return &Transfer{client: c}
}

func statusError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%s failed: %s; body: %s", op, resp.Status, string(b))
}

// Upload PUTs data to a presigned URL.
func (t *Transfer) Upload(ctx context.Context, url string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("upload", resp)
	}
	return nil
}

// Download GETs the body behind a presigned URL.
func (t *Transfer) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("download", resp)
	}
	return io.ReadAll(resp.Body)
}
