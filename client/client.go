package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/seblake/convo/models"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1/chat/completions"
	DefaultModel   = "gpt-4o-mini"
)

func init() {
	// Load .env file if it exists (not present in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	Model        string // Model identifier
	Temperature  *float64
	MaxTokens    *int
	TopP         *float64
	Seed         *int
	SystemPrompt string       // Optional: system prompt prepended to every request
	BaseURL      string       // Optional: custom API base URL
	APIKeyEnv    string       // Optional: env var holding the API key (defaults to OPENAI_API_KEY)
	HTTPClient   *http.Client // Optional: custom HTTP client
}

// Complete sends a non-streaming completion request.
func (c *Client) Complete(ctx context.Context, messages []models.Message, tools []models.Tool) (*models.ChatResponse, error) {
	body, err := json.Marshal(c.buildRequest(messages, tools, false))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	resp, err := c.send(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp.StatusCode, raw)
	}

	var response models.ChatResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &response, nil
}

// Stream sends a streaming completion request and returns the parsed event
// stream. A clean stream terminates with a Done event before the channels
// close; a transport failure closes the event stream without one and the
// error arrives on the error channel before either channel closes.
func (c *Client) Stream(ctx context.Context, messages []models.Message, tools []models.Tool) (<-chan StreamEvent, <-chan error) {
	events := make(chan StreamEvent)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		body, err := json.Marshal(c.buildRequest(messages, tools, true))
		if err != nil {
			errs <- fmt.Errorf("failed to marshal request body: %w", err)
			return
		}

		resp, err := c.send(ctx, body)
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(resp.Body)
			errs <- decodeAPIError(resp.StatusCode, raw)
			return
		}

		if err := parseStream(ctx, resp.Body, events); err != nil {
			errs <- err
		}
	}()

	return events, errs
}

func (c *Client) send(ctx context.Context, body []byte) (*http.Response, error) {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	c.setHeaders(req)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	apiKeyEnv := c.APIKeyEnv
	if apiKeyEnv == "" {
		apiKeyEnv = "OPENAI_API_KEY"
	}
	req.Header.Set("Authorization", "Bearer "+os.Getenv(apiKeyEnv))
	req.Header.Set("Content-Type", "application/json")
}

// buildRequest assembles the request body. The caller supplies the full
// message sequence; only the system prompt is prepended here.
func (c *Client) buildRequest(messages []models.Message, tools []models.Tool, stream bool) models.ChatRequest {
	msgs := messages
	if c.SystemPrompt != "" && (len(messages) == 0 || messages[0].Role != models.RoleSystem) {
		msgs = make([]models.Message, 0, len(messages)+1)
		msgs = append(msgs, models.SystemMessage(c.SystemPrompt))
		msgs = append(msgs, messages...)
	}

	modelToUse := c.Model
	if modelToUse == "" {
		modelToUse = DefaultModel
	}

	request := models.ChatRequest{
		Model:    modelToUse,
		Messages: msgs,
		Stream:   stream,
	}

	if len(tools) > 0 {
		request.Tools = tools
		request.ToolChoice = models.ToolChoiceAuto
	}
	if c.Temperature != nil {
		request.Temperature = c.Temperature
	}
	if c.MaxTokens != nil {
		request.MaxTokens = c.MaxTokens
	}
	if c.TopP != nil {
		request.TopP = c.TopP
	}
	if c.Seed != nil {
		request.Seed = c.Seed
	}

	return request
}

func decodeAPIError(status int, raw []byte) error {
	var envelope models.ErrorResponse
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		envelope.Error.StatusCode = status
		return &envelope.Error
	}
	return &models.APIError{Message: string(raw), StatusCode: status}
}
