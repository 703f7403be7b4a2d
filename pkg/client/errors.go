package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrBadRequest matches *APIError values with status 400.
	ErrBadRequest = errors.New("bad request")

	// ErrUnauthorized matches *APIError values with status 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound matches *APIError values with status 404.
	ErrNotFound = errors.New("not found")

	// ErrMethodNotAllowed matches *APIError values with status 405.
	ErrMethodNotAllowed = errors.New("method not allowed")

	// ErrNotAuthenticated is returned when no token is set and no credentials are configured.
	ErrNotAuthenticated = errors.New("could not access API, access token missing: login first")

	// ErrMissingCredentials is returned by Login when username or password/API key is empty.
	ErrMissingCredentials = errors.New("username and password or api key are required")

	// ErrNoToken is returned when the auth endpoint answers without a token.
	ErrNoToken = errors.New("auth response carries no token")

	// ErrLabNotFound is returned by SelectLaboratory for an unknown lab.
	ErrLabNotFound = errors.New("laboratory not found")

	// ErrStatusPending is reported while WaitForStatus validation keeps failing.
	ErrStatusPending = errors.New("status validation pending")

	// ErrWaitTimeout is returned when WaitForStatus gives up.
	ErrWaitTimeout = errors.New("timed out waiting for status")
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 throttling responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError is a non-2xx platform response.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	URL        string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Is lets errors.Is match the status sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrMethodNotAllowed:
		return e.StatusCode == http.StatusMethodNotAllowed
	}
	return false
}

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// newAPIError builds the error for resp and closes its body.
func newAPIError(requestURL string, resp *http.Response) *APIError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	code := resp.StatusCode
	reason := reasonPhrase(resp)

	var msg string
	switch code {
	case http.StatusBadRequest:
		msg = fmt.Sprintf("%s: %s", reason, errorField(body))
	case http.StatusUnauthorized:
		msg = fmt.Sprintf("URL : %s access is unauthorized.", requestURL)
	case http.StatusNotFound:
		msg = fmt.Sprintf("URL : %s cannot be found.", requestURL)
	case http.StatusMethodNotAllowed:
		msg = fmt.Sprintf("Method not allowed. URL : %s", requestURL)
	default:
		msg = fmt.Sprintf("Got code : %d. Reason : %s", code, reason)
	}

	return &APIError{
		StatusCode: code,
		Class:      classifyStatus(code),
		Message:    msg,
		URL:        requestURL,
	}
}

// reasonPhrase returns the status text without the numeric code.
func reasonPhrase(resp *http.Response) string {
	if reason, ok := strings.CutPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); ok && reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}

// errorField extracts the "error" member of a JSON error body.
func errorField(body []byte) string {
	var payload struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != nil {
		if s, ok := payload.Error.(string); ok {
			return s
		}
		raw, _ := json.Marshal(payload.Error)
		return string(raw)
	}
	return strings.TrimSpace(string(body))
}

// classifyStatus categorizes a status code for retry and metrics.
func classifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case code >= 400 && code < 500:
		return ErrorClassClient
	case code >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// 4xx answers repeat themselves
		return false
	}
}
