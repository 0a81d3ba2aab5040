package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/creatorlab/viralbot/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const systemPrompt = "You are an elite social media growth strategist. Answer only with JSON matching the provided schema."

// APIError is a non-2xx answer from the model API
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("model API returned status %d: %s", e.Status, e.Body)
}

// retryable reports whether a later attempt may succeed
func (e *APIError) retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// SchemaError means the model answered but the output did not match the schema
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "model output rejected: " + e.Reason
}

// Options configure the client
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxAttempts int
	Timeout     time.Duration
}

// Client writes weekly reports through the OpenAI Responses API with a
// strict json_schema output format
type Client struct {
	client      *resty.Client
	model       string
	maxAttempts int
	validate    *validator.Validate
	log         logrus.FieldLogger
}

type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model string         `json:"model"`
	Input []inputMessage `json:"input"`
	Text  struct {
		Format map[string]any `json:"format"`
	} `json:"text"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewClient creates a new model client
func NewClient(opts Options, log logrus.FieldLogger) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required to generate reports")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com"
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o"
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetAuthToken(opts.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		client:      client,
		model:       opts.Model,
		maxAttempts: opts.MaxAttempts,
		validate:    validator.New(),
		log:         log,
	}, nil
}

// WriteReport asks the model for a report and returns it only when the
// output fully validates. Schema mismatches and transient API failures are
// retried up to the configured number of attempts.
func (c *Client) WriteReport(ctx context.Context, prompt string) (*models.ReportContent, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		content, err := c.writeOnce(ctx, prompt)
		if err == nil {
			return content, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}

		c.log.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("Report generation attempt failed")
	}
	return nil, fmt.Errorf("report generation failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) writeOnce(ctx context.Context, prompt string) (*models.ReportContent, error) {
	req := responsesRequest{
		Model: c.model,
		Input: []inputMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}
	req.Text.Format = map[string]any{
		"type":   "json_schema",
		"name":   SchemaName,
		"schema": ReportSchema(),
		"strict": true,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/v1/responses")
	if err != nil {
		return nil, fmt.Errorf("failed to call model API: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &APIError{Status: resp.StatusCode(), Body: string(resp.Body())}
	}

	var out responsesResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("invalid response envelope: %v", err)}
	}

	c.log.WithFields(logrus.Fields{
		"model":         c.model,
		"input_tokens":  out.Usage.InputTokens,
		"output_tokens": out.Usage.OutputTokens,
	}).Debug("Model responded")

	text, refusal := outputText(out)
	if refusal != "" {
		return nil, &SchemaError{Reason: "model refused: " + refusal}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &SchemaError{Reason: "no output_text in response"}
	}

	return c.Parse(text)
}

// Parse decodes and validates model output
func (c *Client) Parse(text string) (*models.ReportContent, error) {
	var content models.ReportContent
	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&content); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := c.validate.Struct(&content); err != nil {
		return nil, &SchemaError{Reason: err.Error()}
	}
	return &content, nil
}

func outputText(resp responsesResponse) (text, refusal string) {
	var b strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			switch c.Type {
			case "output_text":
				b.WriteString(c.Text)
			case "refusal":
				refusal = c.Refusal
			}
		}
	}
	return b.String(), refusal
}
