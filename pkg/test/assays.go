package test

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/url"
	"strconv"

	"github.com/Sternrassler/teselagen-client/pkg/pagination"
)

// DefaultResultsPageSize is the page size for assay result pages.
const DefaultResultsPageSize = 200

// GetAssays returns the assays of an experiment, or of the whole active
// laboratory when experimentID is empty.
func (c *Client) GetAssays(ctx context.Context, experimentID string) ([]pagination.Record, error) {
	u := c.url("assays")
	if experimentID != "" {
		u = c.url("experiments", experimentID, "assays")
	}

	var assays []pagination.Record
	if err := c.api.GetJSON(ctx, u, nil, &assays); err != nil {
		return nil, fmt.Errorf("get assays: %w", err)
	}
	return assays, nil
}

// CreateAssay creates an assay inside an experiment and reads it back.
// parserID may be empty.
func (c *Client) CreateAssay(ctx context.Context, experimentID, name, parserID string) (pagination.Record, error) {
	if experimentID == "" {
		return nil, fmt.Errorf("create assay %q: experiment %w", name, ErrMissingID)
	}

	body := map[string]any{"name": name, "parserId": nil}
	if parserID != "" {
		body["parserId"] = parserID
	}

	var raw json.RawMessage
	if err := c.api.PostJSON(ctx, c.url("experiments", experimentID, "assays"), body, &raw); err != nil {
		return nil, fmt.Errorf("create assay %q: %w", name, err)
	}
	created, err := firstRecord(raw)
	if err != nil {
		return nil, err
	}

	assays, err := c.GetAssays(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	assay, ok := findByID(assays, created.RecordID())
	if !ok {
		return nil, fmt.Errorf("%w: assay %s", ErrNotCreated, created.RecordID())
	}
	return assay, nil
}

// DeleteAssay deletes one assay.
func (c *Client) DeleteAssay(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	if err := c.api.DeleteJSON(ctx, c.url("assays", id), nil, nil); err != nil {
		return fmt.Errorf("delete assay %s: %w", id, err)
	}
	return nil
}

// DeleteAssays deletes the assays in order and stops at the first failure.
func (c *Client) DeleteAssays(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := c.DeleteAssay(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// GetOrCreateAssay returns the id of the assay called name inside the
// experiment, creating the assay when there is none.
func (c *Client) GetOrCreateAssay(ctx context.Context, name, experimentID string) (string, error) {
	if experimentID == "" {
		return "", fmt.Errorf("get or create assay %q: experiment %w", name, ErrMissingID)
	}

	assays, err := c.GetAssays(ctx, "")
	if err != nil {
		return "", err
	}
	for _, a := range assays {
		if a["name"] == name && nestedID(a, "experiment") == experimentID {
			return a.RecordID(), nil
		}
	}

	assay, err := c.CreateAssay(ctx, experimentID, name, "")
	if err != nil {
		return "", err
	}
	return assay.RecordID(), nil
}

// AssayResultsPage is one page of GET /assays/{id}/results.
type AssayResultsPage struct {
	Name    string              `json:"name"`
	Results []pagination.Record `json:"results"`
}

// GetAssayResults returns one page of results imported from fileID.
// pageNumber and pageSize default to 1 and DefaultResultsPageSize.
func (c *Client) GetAssayResults(ctx context.Context, assayID, fileID string, pageNumber, pageSize int) (AssayResultsPage, error) {
	if pageNumber <= 0 {
		pageNumber = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultResultsPageSize
	}

	query := url.Values{}
	query.Set("fileId", fileID)
	query.Set("pageNumber", strconv.Itoa(pageNumber))
	query.Set("pageSize", strconv.Itoa(pageSize))

	var page AssayResultsPage
	if err := c.api.GetJSON(ctx, c.url("assays", assayID, "results"), query, &page); err != nil {
		return AssayResultsPage{}, fmt.Errorf("get results of assay %s: %w", assayID, err)
	}
	return page, nil
}

// AssayResults lazily yields every result imported from fileID.
func (c *Client) AssayResults(ctx context.Context, assayID, fileID string, pageSize int) iter.Seq2[pagination.Record, error] {
	getPage := func(ctx context.Context, pageNumber int) ([]pagination.Record, error) {
		page, err := c.GetAssayResults(ctx, assayID, fileID, pageNumber, pageSize)
		if err != nil {
			return nil, err
		}
		return page.Results, nil
	}
	return pagination.Documents(ctx, getPage, pagination.Config[pagination.Record]{})
}

// Mapper describes how one column of an uploaded file is interpreted.
type Mapper struct {
	Name       string `json:"name"`
	Class      string `json:"class"`
	SubClassID string `json:"subClassId,omitempty"`
}

// ImportAssayResults starts an asynchronous import of fileID into the
// assay. The answer carries the import id for WaitForImport.
func (c *Client) ImportAssayResults(ctx context.Context, assayID, fileID string, mapper []Mapper) (pagination.Record, error) {
	if assayID == "" || fileID == "" {
		return nil, fmt.Errorf("import assay results: assay and file %w", ErrMissingID)
	}

	body := map[string]any{"fileId": fileID, "mapper": mapper}
	var out pagination.Record
	if err := c.api.PostJSON(ctx, c.url("assays", assayID, "imports"), body, &out); err != nil {
		return nil, fmt.Errorf("import results into assay %s: %w", assayID, err)
	}
	return out, nil
}
