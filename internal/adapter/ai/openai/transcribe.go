package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/meetngreet/interview-backend/internal/adapter/observability"
	"github.com/meetngreet/interview-backend/internal/domain"
)

// transcribePrompt constrains the output language and script so Hinglish
// speech comes back in Roman letters instead of Devanagari.
const transcribePrompt = "The speaker answers an interview question in English, Hindi, or a mix of both. Transcribe exactly what is said. Write Hindi words in Roman (Latin) letters, never in Devanagari script. If the speech is in any other language, output: unsupported language."

// TranscribeFile sends the media file to the hosted speech-to-text endpoint
// and returns the raw transcript text.
func (c *Client) TranscribeFile(ctx domain.Context, path, filename string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("%w: OPENAI_API_KEY missing", domain.ErrInvalidArgument)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("op=openai.transcribe open: %w", err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("op=openai.transcribe form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("op=openai.transcribe copy: %w", err)
	}
	_ = mw.WriteField("model", c.cfg.OpenAITranscribeModel)
	_ = mw.WriteField("prompt", transcribePrompt)
	_ = mw.WriteField("temperature", "0")
	_ = mw.WriteField("response_format", "json")
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("op=openai.transcribe close: %w", err)
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenAIBaseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("op=openai.transcribe request: %w", err)
	}
	r.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.hc.Do(r)
	if err != nil {
		observability.TranscriptionsTotal.WithLabelValues("hosted", "error").Inc()
		return "", fmt.Errorf("op=openai.transcribe: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.TranscriptionsTotal.WithLabelValues("hosted", "error").Inc()
		return "", fmt.Errorf("op=openai.transcribe read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.TranscriptionsTotal.WithLabelValues("hosted", "error").Inc()
		return "", fmt.Errorf("op=openai.transcribe status %d: %s", resp.StatusCode, snippet(bodyBytes))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		observability.TranscriptionsTotal.WithLabelValues("hosted", "error").Inc()
		return "", fmt.Errorf("op=openai.transcribe decode: %w", err)
	}
	observability.TranscriptionsTotal.WithLabelValues("hosted", "ok").Inc()
	return strings.TrimSpace(out.Text), nil
}
