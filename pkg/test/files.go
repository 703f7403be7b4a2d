package test

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/go-querystring/query"

	"github.com/Sternrassler/teselagen-client/pkg/pagination"
)

// File import statuses that count as successfully imported.
var importedFileStatuses = map[string]bool{
	"FINISHED":           true,
	"FINISHED-DISCARDED": true,
}

// FileFilter narrows GetFilesInfo. Empty fields are ignored.
type FileFilter struct {
	ExperimentID string `url:"experimentId,omitempty"`
	AssayID      string `url:"assayId,omitempty"`

	// FileID is applied client side
	FileID string `url:"-"`
}

// UploadTarget selects where an uploaded file is attached. The assay wins
// over the experiment; with neither the file is attached to nothing.
type UploadTarget struct {
	ExperimentID string
	AssayID      string
}

// GetFilesInfo returns the file records of the active laboratory.
func (c *Client) GetFilesInfo(ctx context.Context, filter FileFilter) ([]pagination.Record, error) {
	q, err := query.Values(filter)
	if err != nil {
		return nil, fmt.Errorf("encode file filter: %w", err)
	}

	var files []pagination.Record
	if err := c.api.GetJSON(ctx, c.url("files"), q, &files); err != nil {
		return nil, fmt.Errorf("get files info: %w", err)
	}

	if filter.FileID == "" {
		return files, nil
	}
	var matched []pagination.Record
	for _, f := range files {
		if f.RecordID() == filter.FileID {
			matched = append(matched, f)
		}
	}
	return matched, nil
}

// UploadFile uploads the local file at path and returns its file record.
// A file uploaded into an assay with a parser is parsed by the platform.
func (c *Client) UploadFile(ctx context.Context, path string, target UploadTarget) (pagination.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	u := c.url("files")
	switch {
	case target.AssayID != "":
		u = c.url("assays", target.AssayID, "files")
	case target.ExperimentID != "":
		u = c.url("experiments", target.ExperimentID, "files")
	}

	var uploaded pagination.Record
	if err := c.api.Upload(ctx, u, filepath.Base(path), f, &uploaded); err != nil {
		return nil, fmt.Errorf("upload %s: %w", path, err)
	}
	if uploaded.RecordID() == "" {
		return nil, fmt.Errorf("upload %s: response carries no file id (check the assay id)", path)
	}

	files, err := c.GetFilesInfo(ctx, FileFilter{FileID: uploaded.RecordID()})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: file %s (%s)", ErrNotCreated, uploaded.RecordID(), filepath.Base(path))
	}
	return files[0], nil
}

// DownloadFile writes the contents of a data file to w.
func (c *Client) DownloadFile(ctx context.Context, id string, w io.Writer) (int64, error) {
	if id == "" {
		return 0, ErrMissingID
	}
	return c.api.Download(ctx, c.url("files", id), w)
}

// DeleteFile deletes a data file.
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	if err := c.api.DeleteJSON(ctx, c.url("files", id), nil, nil); err != nil {
		return fmt.Errorf("delete file %s: %w", id, err)
	}
	return nil
}

// GetOrUploadFile returns the id of the file with path's base name already
// attached to the assay, uploading it only when there is none.
func (c *Client) GetOrUploadFile(ctx context.Context, path, assayID string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	files, err := c.GetFilesInfo(ctx, FileFilter{})
	if err != nil {
		return "", err
	}

	name := filepath.Base(path)
	for _, f := range files {
		fileName, _ := f["name"].(string)
		if nestedID(f, "assay") == assayID && filepath.Base(fileName) == name {
			return f.RecordID(), nil
		}
	}

	uploaded, err := c.UploadFile(ctx, path, UploadTarget{AssayID: assayID})
	if err != nil {
		return "", err
	}
	return uploaded.RecordID(), nil
}

// ImportedFiles keeps the file records whose importStatus marks a
// successful import.
func ImportedFiles(files []pagination.Record) []pagination.Record {
	var out []pagination.Record
	for _, f := range files {
		status, _ := f["importStatus"].(string)
		if f.RecordID() != "" && importedFileStatuses[status] {
			out = append(out, f)
		}
	}
	return out
}
