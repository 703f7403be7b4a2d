package discover

import (
	"context"
	"fmt"

	"github.com/Sternrassler/teselagen-client/pkg/pagination"
)

// CRISPR guide design defaults.
const (
	DefaultPAMSite   = "NGG"
	DefaultMinScore  = 40.0
	DefaultMaxGuides = 50
)

// GuideRNAOptions tunes DesignCRISPRGuideRNAs. Zero values use the defaults;
// TargetStart/TargetEnd are sent only when TargetEnd > 0.
type GuideRNAOptions struct {
	TargetStart    int
	TargetEnd      int
	TargetSequence string
	PAMSite        string
	MinScore       float64
	MaxNumber      int
}

// DesignCRISPRGuideRNAs designs guide RNAs for sequence. This endpoint
// answers without the usual envelope.
func (c *Client) DesignCRISPRGuideRNAs(ctx context.Context, sequence string, opts GuideRNAOptions) (pagination.Record, error) {
	if opts.PAMSite == "" {
		opts.PAMSite = DefaultPAMSite
	}
	if opts.MinScore == 0 {
		opts.MinScore = DefaultMinScore
	}
	if opts.MaxNumber == 0 {
		opts.MaxNumber = DefaultMaxGuides
	}

	data := map[string]any{"sequence": sequence}
	if opts.TargetEnd > 0 {
		data["targetStart"] = opts.TargetStart
		data["targetEnd"] = opts.TargetEnd
	}
	if opts.TargetSequence != "" {
		data["targetSequence"] = opts.TargetSequence
	}
	body := map[string]any{
		"data": data,
		"options": map[string]any{
			"pamSite":   opts.PAMSite,
			"minScore":  opts.MinScore,
			"maxNumber": opts.MaxNumber,
		},
	}

	var out pagination.Record
	if err := c.api.PostJSON(ctx, c.api.ModuleURL(moduleName, "crispr-grnas"), body, &out); err != nil {
		return nil, fmt.Errorf("crispr-grnas: %w", err)
	}
	return out, nil
}
