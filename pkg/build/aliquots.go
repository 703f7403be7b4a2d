package build

import (
	"context"
	"iter"

	"github.com/Sternrassler/teselagen-client/pkg/pagination"
)

const aliquotsCollection = "aliquots"

// GetAliquots returns one page of aliquot records.
func (c *Client) GetAliquots(ctx context.Context, params ListParams) ([]pagination.Record, error) {
	return c.list(ctx, aliquotsCollection, params.withDefaults())
}

// GetAliquot returns a single aliquot. If the direct fetch fails the aliquot
// list is scanned with default params. Returns *NotFoundError when the scan
// finds nothing.
func (c *Client) GetAliquot(ctx context.Context, id string) (pagination.Record, error) {
	return c.fetchOne(ctx, "aliquot", aliquotsCollection, id, ListParams{})
}

// Aliquots lazily yields every aliquot from params.PageNumber on.
func (c *Client) Aliquots(ctx context.Context, params ListParams) iter.Seq2[pagination.Record, error] {
	return c.walk(ctx, aliquotsCollection, params)
}
