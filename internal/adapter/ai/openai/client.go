// Package openai implements the hosted LLM ports (answer scoring and
// speech transcription) against the OpenAI API.
package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/meetngreet/interview-backend/internal/adapter/observability"
	"github.com/meetngreet/interview-backend/internal/config"
	"github.com/meetngreet/interview-backend/internal/domain"
)

// Client calls the OpenAI chat and audio endpoints.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

// New constructs a Client with the configured request timeout and an
// otelhttp transport so outbound calls join the request trace.
func New(cfg config.Config) *Client {
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("OpenAI %s %s", r.Method, r.URL.Path)
		}),
	)
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout:   cfg.OpenAITimeout,
			Transport: transport,
		},
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.cfg.OpenAIAPIKey != "" }

// retrySchedule waits 1s then 2.5s between the three attempts.
func (c *Client) retrySchedule(ctx domain.Context) backoff.BackOffContext {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 1 * time.Second
	expo.Multiplier = 2.5
	expo.RandomizationFactor = 0
	return backoff.WithContext(backoff.WithMaxRetries(expo, 2), ctx)
}

// chatJSON posts a chat completion constrained to a JSON object response and
// returns the raw message content. 4xx responses other than 429 are not
// retried.
func (c *Client) chatJSON(ctx domain.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("%w: OPENAI_API_KEY missing", domain.ErrInvalidArgument)
	}

	body := map[string]any{
		"model":       c.cfg.OpenAIEvalModel,
		"temperature": 0,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"response_format": map[string]string{"type": "json_object"},
	}
	b, _ := json.Marshal(body)

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	op := func() error {
		// Recreate request each attempt to avoid reusing consumed bodies
		r, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenAIBaseURL+"/chat/completions", bytes.NewReader(b))
		r.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.hc.Do(r)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			slog.Warn("llm rate limited", slog.Int("status", resp.StatusCode))
			return fmt.Errorf("rate limited: 429")
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("chat status %d: %s", resp.StatusCode, snippet(bodyBytes)))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			slog.Error("llm non-2xx", slog.Int("status", resp.StatusCode), slog.String("body", snippet(bodyBytes)))
			return fmt.Errorf("chat status %d", resp.StatusCode)
		}
		return json.Unmarshal(bodyBytes, &out)
	}
	if err := backoff.Retry(op, c.retrySchedule(ctx)); err != nil {
		observability.LLMRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("op=openai.chat: %w", err)
	}
	observability.LLMRequestsTotal.WithLabelValues("ok").Inc()

	if len(out.Choices) == 0 {
		return "", fmt.Errorf("op=openai.chat: empty choices")
	}
	return out.Choices[0].Message.Content, nil
}

func snippet(b []byte) string {
	if len(b) > 512 {
		b = b[:512]
	}
	return string(b)
}
