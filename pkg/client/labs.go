package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sternrassler/teselagen-client/pkg/pagination"
)

// CommonLab is the name of the shared laboratory, selected by sending no lab header.
const CommonLab = "Common"

// Laboratory is a platform lab visible to the current user.
type Laboratory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LabSelector picks a lab by ID or Name. ID wins when both are set.
type LabSelector struct {
	Name string
	ID   string
}

// GetLaboratories lists the labs available to the current user.
func (c *Client) GetLaboratories(ctx context.Context) ([]Laboratory, error) {
	var records []pagination.Record
	if err := c.GetJSON(ctx, c.ModuleURL("test", "laboratories"), nil, &records); err != nil {
		return nil, fmt.Errorf("get laboratories: %w", err)
	}

	labs := make([]Laboratory, 0, len(records))
	for _, r := range records {
		name, _ := r["name"].(string)
		labs = append(labs, Laboratory{ID: r.RecordID(), Name: name})
	}
	return labs, nil
}

// SelectLaboratory makes sel the active lab for all following requests.
// The name "common" (any case) unselects.
func (c *Client) SelectLaboratory(ctx context.Context, sel LabSelector) (Laboratory, error) {
	identifier, field := sel.Name, "name"
	if sel.ID != "" {
		identifier, field = sel.ID, "id"
	}
	if identifier == "" {
		return Laboratory{}, fmt.Errorf("select laboratory: empty lab identifier")
	}

	if strings.EqualFold(identifier, CommonLab) {
		c.UnselectLaboratory()
		return Laboratory{Name: CommonLab}, nil
	}

	labs, err := c.GetLaboratories(ctx)
	if err != nil {
		return Laboratory{}, err
	}

	for _, lab := range labs {
		if (field == "id" && lab.ID == identifier) || (field == "name" && lab.Name == identifier) {
			c.mu.Lock()
			c.labID = lab.ID
			c.mu.Unlock()

			c.logger.Info().Str("lab_id", lab.ID).Str("lab_name", lab.Name).Msg("Selected lab")
			return lab, nil
		}
	}

	names := make([]string, 0, len(labs))
	for _, lab := range labs {
		names = append(names, fmt.Sprintf("%s (%s)", lab.Name, lab.ID))
	}
	return Laboratory{}, fmt.Errorf("%w: can't find %s %s, available labs are [%s]",
		ErrLabNotFound, field, identifier, strings.Join(names, ", "))
}

// UnselectLaboratory switches back to the Common lab.
func (c *Client) UnselectLaboratory() {
	c.mu.Lock()
	c.labID = ""
	c.mu.Unlock()

	c.logger.Info().Str("lab_name", CommonLab).Msg("Selected lab")
}

// ActiveLab returns the selected lab id, "" for the Common lab.
func (c *Client) ActiveLab() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.labID
}
