package test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/Sternrassler/teselagen-client/pkg/client"
	"github.com/Sternrassler/teselagen-client/pkg/pagination"
)

const moduleName = "test"

// Errors returned by the TEST client.
var (
	// ErrNotCreated is returned when a created record cannot be read back.
	ErrNotCreated = errors.New("created record not found")

	// ErrImportFailed is returned by the import waiters for IMPORT-FAILED.
	ErrImportFailed = errors.New("import failed")

	// ErrMissingID is returned when a required id argument is empty.
	ErrMissingID = errors.New("id is required")
)

// Client talks to the TEST module through a shared platform client.
type Client struct {
	api *client.Client
}

// New returns a TEST client using api for transport and session.
func New(api *client.Client) *Client {
	return &Client{api: api}
}

func (c *Client) url(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.api.ModuleURL(moduleName, escaped...)
}

// firstRecord decodes a create response, which is either a record or a
// one-element list.
func firstRecord(raw json.RawMessage) (pagination.Record, error) {
	var list []pagination.Record
	if err := unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: empty create response", ErrNotCreated)
		}
		return list[0], nil
	}

	var record pagination.Record
	if err := unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode create response: %w", err)
	}
	return record, nil
}

// unmarshal decodes raw keeping numbers as json.Number, like the client does.
func unmarshal(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// findByID returns the first record whose id equals id.
func findByID(records []pagination.Record, id string) (pagination.Record, bool) {
	for _, r := range records {
		if r.RecordID() == id {
			return r, true
		}
	}
	return nil, false
}

// nestedID returns record[field]["id"] as a string, "" if absent.
func nestedID(record pagination.Record, field string) string {
	switch v := record[field].(type) {
	case map[string]any:
		return pagination.Record(v).RecordID()
	case pagination.Record:
		return v.RecordID()
	}
	return ""
}
