package test

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/teselagen-client/pkg/client"
)

// Terminal import status codes.
const (
	ImportFinished = "FINISHED"
	ImportFailed   = "IMPORT-FAILED"
)

// Poll defaults for the import waiters.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 5 * time.Minute
)

// ImportStatus is the state of an asynchronous import job.
type ImportStatus struct {
	Status struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"status"`
}

// Code returns the status code, e.g. "INPROGRESS" or "FINISHED".
func (s ImportStatus) Code() string {
	return s.Status.Code
}

// Done reports whether the import reached a terminal status.
func (s ImportStatus) Done() bool {
	return s.Status.Code == ImportFinished || s.Status.Code == ImportFailed
}

// GetAssayResultsImportStatus returns the state of an assay results import.
func (c *Client) GetAssayResultsImportStatus(ctx context.Context, importID string) (ImportStatus, error) {
	return c.importStatus(ctx, importID, "imports", importID)
}

// GetAssaySubjectDescriptorImportStatus returns the state of a descriptor import.
func (c *Client) GetAssaySubjectDescriptorImportStatus(ctx context.Context, importID string) (ImportStatus, error) {
	return c.importStatus(ctx, importID, "assay-subjects", "imports", importID)
}

func (c *Client) importStatus(ctx context.Context, importID string, parts ...string) (ImportStatus, error) {
	if importID == "" {
		return ImportStatus{}, ErrMissingID
	}
	var status ImportStatus
	if err := c.api.GetJSON(ctx, c.url(parts...), nil, &status); err != nil {
		return ImportStatus{}, fmt.Errorf("get import %s status: %w", importID, err)
	}
	return status, nil
}

// WaitForImport polls an assay results import until it is terminal.
// Zero interval or timeout use the defaults. An IMPORT-FAILED import
// returns its status together with ErrImportFailed.
func (c *Client) WaitForImport(ctx context.Context, importID string, interval, timeout time.Duration) (ImportStatus, error) {
	return waitImport(ctx, importID, c.GetAssayResultsImportStatus, interval, timeout)
}

// WaitForDescriptorImport is WaitForImport for descriptor imports.
func (c *Client) WaitForDescriptorImport(ctx context.Context, importID string, interval, timeout time.Duration) (ImportStatus, error) {
	return waitImport(ctx, importID, c.GetAssaySubjectDescriptorImportStatus, interval, timeout)
}

func waitImport(ctx context.Context, importID string, get func(context.Context, string) (ImportStatus, error), interval, timeout time.Duration) (ImportStatus, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	status, err := client.WaitForStatus(ctx, func(ctx context.Context) (ImportStatus, error) {
		return get(ctx, importID)
	}, ImportStatus.Done, interval, timeout)
	if err != nil {
		return status, fmt.Errorf("wait for import %s: %w", importID, err)
	}

	if status.Code() == ImportFailed {
		return status, fmt.Errorf("%w: import %s: %s", ErrImportFailed, importID, status.Status.Description)
	}
	return status, nil
}
