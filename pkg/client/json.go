package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// GetJSON issues an authenticated GET and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, rawURL, query, nil, out, true)
}

// PostJSON issues an authenticated POST with body encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, rawURL, nil, body, out, true)
}

// PutJSON issues an authenticated PUT with body encoded as JSON.
func (c *Client) PutJSON(ctx context.Context, rawURL string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, rawURL, nil, body, out, true)
}

// DeleteJSON issues an authenticated DELETE. out may be nil.
func (c *Client) DeleteJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodDelete, rawURL, query, nil, out, true)
}

// GetText issues an authenticated GET and returns the raw body.
func (c *Client) GetText(ctx context.Context, rawURL string, query url.Values) (string, error) {
	return c.getText(ctx, rawURL, query, true)
}

func (c *Client) getText(ctx context.Context, rawURL string, query url.Values, auth bool) (string, error) {
	resp, err := c.send(ctx, http.MethodGet, rawURL, query, nil, auth)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	return string(body), nil
}

// doJSON performs a JSON round trip. 204 responses and nil out skip decoding.
func (c *Client) doJSON(ctx context.Context, method, rawURL string, query url.Values, body, out any, auth bool) error {
	resp, err := c.send(ctx, method, rawURL, query, body, auth)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent || out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	return decodeJSON(resp, out)
}

// decodeJSON decodes resp into out keeping numbers as json.Number.
// An empty body leaves out untouched.
func decodeJSON(resp *http.Response, out any) error {
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send builds and performs a request with an optional JSON body.
func (c *Client) send(ctx context.Context, method, rawURL string, query url.Values, body any, auth bool) (*http.Response, error) {
	if auth {
		if err := c.EnsureLogin(ctx); err != nil {
			return nil, err
		}
	}

	target, err := withQuery(rawURL, query)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// withQuery merges query into the query string of rawURL.
func withQuery(rawURL string, query url.Values) (string, error) {
	if len(query) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	q := u.Query()
	for key, values := range query {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
