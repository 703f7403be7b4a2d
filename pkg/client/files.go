package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
)

// Download streams the body of an authenticated GET into w.
// Downloads bypass the response cache.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	if err := c.EnsureLogin(ctx); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", req.URL.Path, err)
	}
	return n, nil
}

// DownloadFile downloads rawURL to localPath and returns the path written.
// An empty localPath uses the last URL segment.
func (c *Client) DownloadFile(ctx context.Context, rawURL, localPath string) (string, error) {
	if localPath == "" {
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", fmt.Errorf("parse url %q: %w", rawURL, err)
		}
		localPath = path.Base(u.Path)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", localPath, err)
	}

	if _, err := c.Download(ctx, rawURL, f); err != nil {
		f.Close()
		os.Remove(localPath)
		return "", err
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", localPath, err)
	}
	return localPath, nil
}

// Upload posts r as the multipart form field "file" and decodes the JSON
// answer into out (may be nil).
func (c *Client) Upload(ctx context.Context, rawURL, filename string, r io.Reader, out any) error {
	if err := c.EnsureLogin(ctx); err != nil {
		return err
	}

	// Buffered so retries can replay the body.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("copy %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeJSON(resp, out)
}
