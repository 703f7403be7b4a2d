package design

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Sternrassler/teselagen-client/pkg/pagination"
)

// RBSCalculatorStatus reports whether the RBS calculator integration is
// reachable and authorized.
func (c *Client) RBSCalculatorStatus(ctx context.Context) (pagination.Record, error) {
	return c.rbsGet(ctx, "status")
}

// RBSCalculatorJobs lists the ids of the lab's RBS calculator jobs.
func (c *Client) RBSCalculatorJobs(ctx context.Context) (pagination.Record, error) {
	return c.rbsGet(ctx, "jobs")
}

// RBSCalculatorJob returns the input, output and state of one job.
func (c *Client) RBSCalculatorJob(ctx context.Context, jobID string) (pagination.Record, error) {
	return c.rbsGet(ctx, "jobs", url.PathEscape(jobID))
}

// RBSCalculatorOrganisms lists the organisms the calculator supports.
func (c *Client) RBSCalculatorOrganisms(ctx context.Context) ([]pagination.Record, error) {
	var organisms []pagination.Record
	if err := c.api.GetJSON(ctx, c.url("rbs-calculator", "organisms"), nil, &organisms); err != nil {
		return nil, fmt.Errorf("rbs-calculator organisms: %w", err)
	}
	return organisms, nil
}

// RBSCalculatorSubmit submits a job. params carries at least "algorithm"
// (e.g. ReverseRBS) plus the algorithm inputs.
func (c *Client) RBSCalculatorSubmit(ctx context.Context, params map[string]any) (pagination.Record, error) {
	var out pagination.Record
	if err := c.api.PostJSON(ctx, c.url("rbs-calculator", "submit"), params, &out); err != nil {
		return nil, fmt.Errorf("rbs-calculator submit: %w", err)
	}
	return out, nil
}

func (c *Client) rbsGet(ctx context.Context, parts ...string) (pagination.Record, error) {
	var out pagination.Record
	if err := c.api.GetJSON(ctx, c.url(append([]string{"rbs-calculator"}, parts...)...), nil, &out); err != nil {
		return nil, fmt.Errorf("rbs-calculator %s: %w", parts[0], err)
	}
	return out, nil
}
