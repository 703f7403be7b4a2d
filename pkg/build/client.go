package build

import (
	"context"
	"fmt"
	"iter"
	"net/url"

	"github.com/Sternrassler/teselagen-client/pkg/client"
	"github.com/Sternrassler/teselagen-client/pkg/pagination"
)

const moduleName = "build"

// Client talks to the BUILD module through a shared platform client.
type Client struct {
	api *client.Client
}

// New returns a BUILD client using api for transport and session.
func New(api *client.Client) *Client {
	return &Client{api: api}
}

func (c *Client) url(parts ...string) string {
	return c.api.ModuleURL(moduleName, parts...)
}

// list fetches one page of a collection.
func (c *Client) list(ctx context.Context, collection string, params ListParams) ([]pagination.Record, error) {
	query, err := params.Values()
	if err != nil {
		return nil, err
	}

	var records []pagination.Record
	if err := c.api.GetJSON(ctx, c.url(collection), query, &records); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return records, nil
}

// pages adapts list to a PageFunc that overrides the page number.
func (c *Client) pages(collection string, params ListParams) pagination.PageFunc[pagination.Record] {
	return func(ctx context.Context, pageNumber int) ([]pagination.Record, error) {
		p := params
		p.PageNumber = pageNumber
		return c.list(ctx, collection, p)
	}
}

// walk returns every record of a collection from params.PageNumber on.
func (c *Client) walk(ctx context.Context, collection string, params ListParams) iter.Seq2[pagination.Record, error] {
	params = params.withDefaults()
	return pagination.Documents(ctx, c.pages(collection, params), pagination.Config[pagination.Record]{
		StartPage: params.PageNumber,
	})
}

// fetchOne tries GET {collection}/{id} and falls back to scanning scan.
func (c *Client) fetchOne(ctx context.Context, kind, collection, id string, scan ListParams) (pagination.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("get %s: %w", kind, ErrMissingID)
	}

	var record pagination.Record
	directErr := c.api.GetJSON(ctx, c.url(collection, url.PathEscape(id)), nil, &record)
	if directErr == nil && record != nil {
		return record, nil
	}
	if directErr == nil {
		directErr = fmt.Errorf("empty response for %s %s", kind, id)
	}

	source := moduleName + "." + collection
	found, ok, err := pagination.FindRecord(ctx, source, c.pages(collection, scan.withDefaults()), id)
	if err != nil {
		return nil, fmt.Errorf("scan %s for %s %s: %w", collection, kind, id, err)
	}
	if !ok {
		return nil, &NotFoundError{Kind: kind, ID: id, Cause: directErr}
	}
	return found, nil
}
