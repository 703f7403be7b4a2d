// Package discover is the client for the DISCOVER module, served by the
// platform under the "evolve" URL segment. Every endpoint is a POST that
// answers with a {"message", "data"} envelope.
package discover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/Sternrassler/teselagen-client/pkg/client"
	"github.com/Sternrassler/teselagen-client/pkg/pagination"
)

const moduleName = "discover"

// SubmissionSuccess is the envelope message of a healthy answer.
const SubmissionSuccess = "Submission success."

// Model types accepted by GetModelsByType and SubmitModel.
const (
	PredictiveModel = "predictive"
	EvolutiveModel  = "evolutive"
	GenerativeModel = "generative"
)

// DefaultGenerativeModelName is used when SubmitGenerativeModel gets no name.
const DefaultGenerativeModelName = "Unnamed Generative Model (Go client)"

var allowedModelTypes = []string{"", PredictiveModel, EvolutiveModel, GenerativeModel}

// Errors returned by the DISCOVER client.
var (
	ErrInvalidModelType = errors.New("invalid model type")
	ErrNoSequences      = errors.New("at least one amino acid sequence is required")
)

// SubmissionError is returned when the envelope is not a success or has no
// data field.
type SubmissionError struct {
	Message     string
	MissingData bool
}

func (e *SubmissionError) Error() string {
	if e.MissingData {
		return "response carries no data field"
	}
	return "a problem occurred with query: " + e.Message
}

// envelope is the shape of every DISCOVER answer.
type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client talks to the DISCOVER module through a shared platform client.
type Client struct {
	api *client.Client
}

// New returns a DISCOVER client using api for transport and session.
func New(api *client.Client) *Client {
	return &Client{api: api}
}

// post sends body to endpoint, checks the envelope and decodes data into out.
func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	var env envelope
	if err := c.api.PostJSON(ctx, c.api.ModuleURL(moduleName, endpoint), body, &env); err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	if err := checkEnvelope(env); err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	if out == nil {
		return nil
	}
	if err := unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: decode data: %w", endpoint, err)
	}
	return nil
}

func checkEnvelope(env envelope) error {
	if env.Message != SubmissionSuccess {
		return &SubmissionError{Message: env.Message}
	}
	if len(env.Data) == 0 {
		return &SubmissionError{Message: env.Message, MissingData: true}
	}
	return nil
}

func unmarshal(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// GetModelInfo returns the model record, including its data schema and stats.
func (c *Client) GetModelInfo(ctx context.Context, modelID string) (pagination.Record, error) {
	var model pagination.Record
	if err := c.post(ctx, "get-model", map[string]string{"id": modelID}, &model); err != nil {
		return nil, err
	}
	return model, nil
}

// GetModelsByType lists models of one type; the empty type lists all.
func (c *Client) GetModelsByType(ctx context.Context, modelType string) ([]pagination.Record, error) {
	if !slices.Contains(allowedModelTypes, modelType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidModelType, modelType)
	}

	body := map[string]any{"modelType": nil}
	if modelType != "" {
		body["modelType"] = modelType
	}

	var models []pagination.Record
	if err := c.post(ctx, "get-models-by-type", body, &models); err != nil {
		return nil, err
	}
	return models, nil
}

// DatapointsRequest selects a batch of a model's datapoints.
type DatapointsRequest struct {
	ModelID string `json:"modelId"`

	// DatapointType is "input" (training) or "output" (predicted)
	DatapointType string `json:"datapointType"`
	BatchSize     int    `json:"batchSize"`
	BatchNumber   int    `json:"batchNumber"`
}

// GetModelDatapoints returns one batch of datapoints.
func (c *Client) GetModelDatapoints(ctx context.Context, req DatapointsRequest) ([]pagination.Record, error) {
	var points []pagination.Record
	if err := c.post(ctx, "get-model-datapoints", req, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// SchemaField describes one column of the training data.
type SchemaField struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	ValueType string `json:"value_type"`
}

// SubmitModelRequest is the body of submit-model.
type SubmitModelRequest struct {
	DataInput   []map[string]any `json:"dataInput"`
	DataSchema  []SchemaField    `json:"dataSchema"`
	ModelType   string           `json:"modelType"`
	Configs     map[string]any   `json:"configs"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
}

// SubmitModel submits a model for training and returns the queued job.
func (c *Client) SubmitModel(ctx context.Context, req SubmitModelRequest) (pagination.Record, error) {
	if req.ModelType == "" || !slices.Contains(allowedModelTypes, req.ModelType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidModelType, req.ModelType)
	}
	if req.Configs == nil {
		req.Configs = map[string]any{}
	}

	var job pagination.Record
	if err := c.post(ctx, "submit-model", req, &job); err != nil {
		return nil, err
	}
	return job, nil
}

// GenerativeSubmission summarizes a submitted generative model.
type GenerativeSubmission struct {
	JobID     string
	ModelID   string
	Status    string
	CreatedAt string
	UpdatedAt string
}

// SubmitGenerativeModel trains an amino acid sequence generative model.
func (c *Client) SubmitGenerativeModel(ctx context.Context, sequences []string, name, description string, configs map[string]any) (GenerativeSubmission, error) {
	if len(sequences) == 0 {
		return GenerativeSubmission{}, ErrNoSequences
	}
	if name == "" {
		name = DefaultGenerativeModelName
	}

	input := make([]map[string]any, len(sequences))
	for i, s := range sequences {
		input[i] = map[string]any{"sequence": s}
	}

	job, err := c.SubmitModel(ctx, SubmitModelRequest{
		DataInput:   input,
		DataSchema:  []SchemaField{{ID: 0, Name: "sequence", Type: "target", ValueType: "aa-sequence"}},
		ModelType:   GenerativeModel,
		Configs:     configs,
		Name:        name,
		Description: description,
	})
	if err != nil {
		return GenerativeSubmission{}, err
	}

	str := func(key string) string {
		if v, ok := job[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}
	return GenerativeSubmission{
		JobID:     job.RecordID(),
		ModelID:   str("modelId"),
		Status:    str("status"),
		CreatedAt: str("createdAt"),
		UpdatedAt: str("updatedAt"),
	}, nil
}

// DeleteModel deletes a model.
func (c *Client) DeleteModel(ctx context.Context, modelID string) (pagination.Record, error) {
	var out pagination.Record
	if err := c.post(ctx, "delete-model", map[string]string{"id": modelID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CancelModel cancels a model submission.
func (c *Client) CancelModel(ctx context.Context, modelID string) (pagination.Record, error) {
	var out pagination.Record
	if err := c.post(ctx, "cancel-model", map[string]string{"id": modelID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
