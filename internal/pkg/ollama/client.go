package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ClientError is an error produced by the Ollama client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeNotFound
	ErrTypeInvalidResponse
)

var (
	ErrUnreachable   = &ClientError{Type: ErrTypeConnection, Message: "inference server is unreachable"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeNotFound, Message: "model not found"}
)

// IsConnectionError reports whether err indicates the server could not be reached.
func IsConnectionError(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeConnection
	}
	return false
}

// IsNotFound reports whether err indicates the server rejected a model name.
func IsNotFound(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNotFound
	}
	return false
}

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL. A trailing slash is stripped.
	BaseURL string

	// Timeout for non-streaming requests. Streaming requests are bounded by
	// their context only.
	Timeout time.Duration
}

const defaultBaseUrl = "http://127.0.0.1:11434"

// Client talks to the Ollama HTTP API. It performs no retries; retry policy
// belongs to the caller. Safe for concurrent use.
type Client struct {
	baseUrl      string
	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a client for the given configuration. Zero values fall
// back to defaults.
func NewClient(config ClientConfig) *Client {
	baseUrl := strings.TrimRight(config.BaseURL, "/")
	if baseUrl == "" {
		baseUrl = defaultBaseUrl
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseUrl:      baseUrl,
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
	}
}

// BaseUrl returns the normalized base URL the client was created with.
func (client *Client) BaseUrl() string {
	return client.baseUrl
}

// ListModels retrieves all locally available models from /api/tags.
func (client *Client) ListModels(ctx context.Context) ([]ModelSummary, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, client.baseUrl+"/api/tags", nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, asConnectionError(err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, &ClientError{
			Type:    ErrTypeConnection,
			Message: "failed to list models: " + response.Status,
		}
	}

	var result listModelsResponse
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode model list", Cause: err}
	}

	return result.Models, nil
}

// ShowModel retrieves the detail snapshot for a single model from /api/show.
func (client *Client) ShowModel(ctx context.Context, name string) (*ModelDetail, error) {
	body, err := json.Marshal(showModelRequest{Name: name})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseUrl+"/api/show", bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, asConnectionError(err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return nil, ErrModelNotFound
	}

	if response.StatusCode != http.StatusOK {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "failed to show model: " + response.Status,
		}
	}

	var result ModelDetail
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode model detail", Cause: err}
	}

	return &result, nil
}

// PullProgressFunc receives pull progress events in stream order.
type PullProgressFunc func(event PullProgressEvent)

// PullModel downloads a model onto the inference server, invoking fn for every
// progress record. It returns when the stream ends, the context is cancelled,
// or the server reports an error event.
func (client *Client) PullModel(ctx context.Context, name string, fn PullProgressFunc) error {
	body, err := json.Marshal(PullRequest{Name: name, Stream: true})
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	responseBody, err := client.openStream(ctx, client.baseUrl+"/api/pull", body)
	if err != nil {
		return err
	}
	defer responseBody.Close()

	var serverReported error
	decoder := newStreamDecoder(responseBody)
	err = decoder.Decode(ctx, func(record []byte) bool {
		var event PullProgressEvent
		if err := unmarshalRecord(record, &event); err != nil {
			return false
		}
		if event.Error != "" {
			serverReported = &ClientError{Type: ErrTypeInvalidResponse, Message: event.Error}
			fn(event)
			return true
		}
		fn(event)
		return false
	})
	if err != nil {
		return err
	}
	return serverReported
}

// ChatStreamFunc receives chat stream events in stream order.
type ChatStreamFunc func(event ChatStreamEvent)

// ChatStream sends the conversation history to /api/chat and invokes fn for
// every streamed record. Consumption stops at the first record with done=true
// even if the connection has more bytes pending.
func (client *Client) ChatStream(ctx context.Context, model string, messages []ChatMessage, fn ChatStreamFunc) error {
	body, err := json.Marshal(ChatRequest{Model: model, Messages: messages, Stream: true})
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	responseBody, err := client.openStream(ctx, client.baseUrl+"/api/chat", body)
	if err != nil {
		return err
	}
	defer responseBody.Close()

	var serverReported error
	decoder := newStreamDecoder(responseBody)
	err = decoder.Decode(ctx, func(record []byte) bool {
		var event ChatStreamEvent
		if err := unmarshalRecord(record, &event); err != nil {
			return false
		}
		if event.Error != "" {
			serverReported = &ClientError{Type: ErrTypeInvalidResponse, Message: event.Error}
			return true
		}
		fn(event)
		return event.Done
	})
	if err != nil {
		return err
	}
	return serverReported
}

// openStream issues a streaming POST and returns the live response body.
// The caller owns closing it.
func (client *Client) openStream(ctx context.Context, url string, body []byte) (io.ReadCloser, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.streamClient.Do(request)
	if err != nil {
		return nil, asConnectionError(err)
	}

	if response.StatusCode == http.StatusNotFound {
		response.Body.Close()
		return nil, ErrModelNotFound
	}

	if response.StatusCode != http.StatusOK {
		defer response.Body.Close()

		var reported serverError
		if err := json.NewDecoder(response.Body).Decode(&reported); err == nil && reported.Error != "" {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: reported.Error}
		}
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "stream request failed: " + response.Status,
		}
	}

	return response.Body, nil
}

func asConnectionError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request cancelled or timed out", Cause: err}
	}
	return &ClientError{Type: ErrTypeConnection, Message: ErrUnreachable.Message, Cause: err}
}

func unmarshalRecord(record []byte, target any) error {
	if err := decodeRecord(record, target); err != nil {
		log.Debug().Err(err).Str("record", string(record)).Msg("discarding malformed stream record")
		return err
	}
	return nil
}
