package build

import (
	"context"
	"encoding/json"
	"iter"

	"github.com/Sternrassler/teselagen-client/pkg/pagination"
)

const samplesCollection = "samples"

// GetSamples returns one page of sample records.
func (c *Client) GetSamples(ctx context.Context, params ListParams) ([]pagination.Record, error) {
	return c.list(ctx, samplesCollection, params.withDefaults())
}

// GetSample returns a single sample. If the direct fetch fails the sample
// list is scanned with a gqlFilter on the id, so the scan usually ends after
// one page. Returns *NotFoundError when the scan finds nothing.
func (c *Client) GetSample(ctx context.Context, id string) (pagination.Record, error) {
	filter, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return nil, err
	}
	return c.fetchOne(ctx, "sample", samplesCollection, id, ListParams{GQLFilter: string(filter)})
}

// Samples lazily yields every sample from params.PageNumber on.
func (c *Client) Samples(ctx context.Context, params ListParams) iter.Seq2[pagination.Record, error] {
	return c.walk(ctx, samplesCollection, params)
}
