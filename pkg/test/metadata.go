package test

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/teselagen-client/pkg/pagination"
)

// Metadata types known to the platform.
const (
	MetadataAssaySubjectClass = "assaySubjectClass"
	MetadataMeasurementTarget = "measurementTarget"
	MetadataMeasurementType   = "measurementType"
	MetadataUnit              = "unit"
	MetadataUnitScale         = "unitScale"
	MetadataUnitDimension     = "unitDimension"
	MetadataDescriptorType    = "descriptorType"
)

// GetMetadata returns the records of one metadata type.
func (c *Client) GetMetadata(ctx context.Context, metadataType string) ([]pagination.Record, error) {
	var records []pagination.Record
	if err := c.api.GetJSON(ctx, c.url("metadata", metadataType), nil, &records); err != nil {
		return nil, fmt.Errorf("get %s metadata: %w", metadataType, err)
	}
	return records, nil
}

// CreateMetadata creates one record (a map) or several (a slice) of a
// metadata type and returns the created ids.
func (c *Client) CreateMetadata(ctx context.Context, metadataType string, records any) ([]pagination.Record, error) {
	body := map[string]any{
		"metaData": map[string]any{metadataType: records},
	}

	var raw json.RawMessage
	if err := c.api.PostJSON(ctx, c.url("metadata"), body, &raw); err != nil {
		return nil, fmt.Errorf("create %s metadata: %w", metadataType, err)
	}

	var created []pagination.Record
	if err := unmarshal(raw, &created); err != nil {
		record, err := firstRecord(raw)
		if err != nil {
			return nil, err
		}
		created = []pagination.Record{record}
	}
	return created, nil
}

// DeleteMetadata deletes one metadata record.
func (c *Client) DeleteMetadata(ctx context.Context, metadataType, id string) error {
	if id == "" {
		return ErrMissingID
	}
	if err := c.api.DeleteJSON(ctx, c.url("metadata", metadataType, id), nil, nil); err != nil {
		return fmt.Errorf("delete %s metadata %s: %w", metadataType, id, err)
	}
	return nil
}
