package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Sternrassler/teselagen-client/pkg/pagination"
)

// GetAssaySubjects fetches assay subjects. No ids lists all of them, one id
// uses the single-record endpoint, several ids are sent as ids[].
// summarized=false returns full records with descriptors, groups and assays.
func (c *Client) GetAssaySubjects(ctx context.Context, ids []string, summarized bool) ([]pagination.Record, error) {
	query := url.Values{}
	query.Set("summarized", strconv.FormatBool(summarized))

	u := c.url("assay-subjects")
	switch len(ids) {
	case 0:
	case 1:
		u = c.url("assay-subjects", ids[0])
	default:
		query["ids[]"] = ids
	}

	var raw json.RawMessage
	if err := c.api.GetJSON(ctx, u, query, &raw); err != nil {
		return nil, fmt.Errorf("get assay subjects: %w", err)
	}

	var subjects []pagination.Record
	if err := unmarshal(raw, &subjects); err == nil {
		return subjects, nil
	}
	var subject pagination.Record
	if err := unmarshal(raw, &subject); err != nil {
		return nil, fmt.Errorf("decode assay subjects: %w", err)
	}
	return []pagination.Record{subject}, nil
}

// CreateAssaySubject creates a subject of the given assay subject class.
func (c *Client) CreateAssaySubject(ctx context.Context, name, classID string) ([]pagination.Record, error) {
	body := []map[string]string{{"name": name, "assaySubjectClassId": classID}}

	var created []pagination.Record
	if err := c.api.PostJSON(ctx, c.url("assay-subjects"), body, &created); err != nil {
		return nil, fmt.Errorf("create assay subject %q: %w", name, err)
	}
	return created, nil
}

// DeleteAssaySubjects deletes the given subjects in one request.
func (c *Client) DeleteAssaySubjects(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return ErrMissingID
	}
	query := url.Values{"ids[]": ids}
	if err := c.api.DeleteJSON(ctx, c.url("assay-subjects"), query, nil); err != nil {
		return fmt.Errorf("delete assay subjects: %w", err)
	}
	return nil
}

// DescriptorImport is the body of an assay subject descriptor upload.
type DescriptorImport struct {
	FileID                 string   `json:"fileId"`
	Mapper                 []Mapper `json:"mapper"`
	CreateSubjectsFromFile bool     `json:"createSubjectsFromFile"`
}

// PutAssaySubjectDescriptors writes descriptors from an uploaded file
// synchronously.
func (c *Client) PutAssaySubjectDescriptors(ctx context.Context, in DescriptorImport) (pagination.Record, error) {
	var out pagination.Record
	if err := c.api.PutJSON(ctx, c.url("assay-subjects", "descriptors"), in, &out); err != nil {
		return nil, fmt.Errorf("put assay subject descriptors: %w", err)
	}
	return out, nil
}

// ImportAssaySubjectDescriptors starts an asynchronous descriptor import.
// The answer carries the import id for WaitForDescriptorImport.
func (c *Client) ImportAssaySubjectDescriptors(ctx context.Context, in DescriptorImport) (pagination.Record, error) {
	var out pagination.Record
	if err := c.api.PostJSON(ctx, c.url("assay-subjects", "imports"), in, &out); err != nil {
		return nil, fmt.Errorf("import assay subject descriptors: %w", err)
	}
	return out, nil
}
