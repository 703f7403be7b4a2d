package build

import (
	"fmt"
	"net/url"

	"github.com/google/go-querystring/query"
)

// Defaults applied to unset ListParams fields.
const (
	DefaultPageSize = 100
	DefaultSort     = "-updatedAt"
)

// ListParams are the query parameters of the paged list endpoints.
type ListParams struct {
	// PageNumber is 1-based (default: 1)
	PageNumber int `url:"pageNumber,omitempty"`

	// PageSize is the number of records per page (default: 100)
	PageSize int `url:"pageSize,omitempty"`

	// Sort is the sort field, "-" prefix for descending (default: -updatedAt)
	Sort string `url:"sort,omitempty"`

	// GQLFilter is a JSON filter, e.g. {"id": ["1", "10"]}
	GQLFilter string `url:"gqlFilter,omitempty"`
}

func (p ListParams) withDefaults() ListParams {
	if p.PageNumber <= 0 {
		p.PageNumber = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.Sort == "" {
		p.Sort = DefaultSort
	}
	return p
}

// Values encodes the params with defaults applied.
func (p ListParams) Values() (url.Values, error) {
	v, err := query.Values(p.withDefaults())
	if err != nil {
		return nil, fmt.Errorf("encode list params: %w", err)
	}
	return v, nil
}
