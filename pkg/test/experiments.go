package test

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/teselagen-client/pkg/pagination"
)

// GetExperiments returns every experiment of the active laboratory.
func (c *Client) GetExperiments(ctx context.Context) ([]pagination.Record, error) {
	var experiments []pagination.Record
	if err := c.api.GetJSON(ctx, c.url("experiments"), nil, &experiments); err != nil {
		return nil, fmt.Errorf("get experiments: %w", err)
	}
	return experiments, nil
}

// CreateExperiment returns the experiment called name, creating it unless
// exactly one such experiment already exists.
func (c *Client) CreateExperiment(ctx context.Context, name string) (pagination.Record, error) {
	experiments, err := c.GetExperiments(ctx)
	if err != nil {
		return nil, err
	}

	var named []pagination.Record
	for _, e := range experiments {
		if e["name"] == name {
			named = append(named, e)
		}
	}
	if len(named) == 1 {
		return named[0], nil
	}

	var raw json.RawMessage
	if err := c.api.PostJSON(ctx, c.url("experiments"), map[string]string{"name": name}, &raw); err != nil {
		return nil, fmt.Errorf("create experiment %q: %w", name, err)
	}
	created, err := firstRecord(raw)
	if err != nil {
		return nil, err
	}

	// Read back the full record.
	experiments, err = c.GetExperiments(ctx)
	if err != nil {
		return nil, err
	}
	experiment, ok := findByID(experiments, created.RecordID())
	if !ok {
		return nil, fmt.Errorf("%w: experiment %s", ErrNotCreated, created.RecordID())
	}
	return experiment, nil
}

// DeleteExperiment deletes the experiment with the given id.
func (c *Client) DeleteExperiment(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	if err := c.api.DeleteJSON(ctx, c.url("experiments", id), nil, nil); err != nil {
		return fmt.Errorf("delete experiment %s: %w", id, err)
	}
	return nil
}
