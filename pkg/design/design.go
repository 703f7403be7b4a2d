// Package design is the client for the DESIGN module: sequence export,
// designs, assembly reports and the RBS calculator.
package design

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/url"

	"github.com/Sternrassler/teselagen-client/pkg/client"
	"github.com/Sternrassler/teselagen-client/pkg/pagination"
)

const moduleName = "design"

// SequenceFormat is the export format segment used by the sequence endpoints.
const SequenceFormat = "json"

// Client talks to the DESIGN module through a shared platform client.
type Client struct {
	api *client.Client
}

// New returns a DESIGN client using api for transport and session.
func New(api *client.Client) *Client {
	return &Client{api: api}
}

func (c *Client) url(parts ...string) string {
	return c.api.ModuleURL(moduleName, parts...)
}

// GetDNASequence exports one DNA sequence.
func (c *Client) GetDNASequence(ctx context.Context, id string) (pagination.Record, error) {
	var seq pagination.Record
	if err := c.api.GetJSON(ctx, c.url("export", "sequence", SequenceFormat, url.PathEscape(id)), nil, &seq); err != nil {
		return nil, fmt.Errorf("export sequence %s: %w", id, err)
	}
	return seq, nil
}

// GetDNASequences exports every DNA sequence called name.
func (c *Client) GetDNASequences(ctx context.Context, name string) ([]pagination.Record, error) {
	query := url.Values{"name": {name}}

	var seqs []pagination.Record
	if err := c.api.GetJSON(ctx, c.url("export", "sequence", SequenceFormat), query, &seqs); err != nil {
		return nil, fmt.Errorf("export sequences %q: %w", name, err)
	}
	return seqs, nil
}

// GetAminoAcidSequence exports one amino acid sequence.
func (c *Client) GetAminoAcidSequence(ctx context.Context, id string) (pagination.Record, error) {
	var seq pagination.Record
	if err := c.api.GetJSON(ctx, c.url("export", "aminoacids", SequenceFormat, url.PathEscape(id)), nil, &seq); err != nil {
		return nil, fmt.Errorf("export amino acid sequence %s: %w", id, err)
	}
	return seq, nil
}

// GetDesigns returns the designs matching name and filter, merged into one
// gqlFilter. The GraphQL __typename field is dropped from every result.
func (c *Client) GetDesigns(ctx context.Context, name string, filter map[string]any) ([]pagination.Record, error) {
	gql := map[string]any{}
	if name != "" {
		gql["name"] = name
	}
	maps.Copy(gql, filter)

	raw, err := json.Marshal(gql)
	if err != nil {
		return nil, fmt.Errorf("encode designs filter: %w", err)
	}

	var designs []pagination.Record
	if err := c.api.GetJSON(ctx, c.url("designs"), url.Values{"gqlFilter": {string(raw)}}, &designs); err != nil {
		return nil, fmt.Errorf("get designs: %w", err)
	}
	for _, d := range designs {
		delete(d, "__typename")
	}
	return designs, nil
}

// GetAssemblyReport downloads an assembly report archive and returns the
// path written. An empty path writes report_{id}.zip.
func (c *Client) GetAssemblyReport(ctx context.Context, reportID, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("report_%s.zip", reportID)
	}
	return c.api.DownloadFile(ctx, c.url("assembly-report", "export", url.PathEscape(reportID)), path)
}
