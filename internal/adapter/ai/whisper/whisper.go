// Package whisper calls a local speech-recognition sidecar (a whisper.cpp
// style HTTP server) for offline transcription.
package whisper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/meetngreet/interview-backend/internal/adapter/observability"
	"github.com/meetngreet/interview-backend/internal/domain"
)

// Recognizer implements domain.LocalRecognizer over HTTP.
type Recognizer struct {
	baseURL string
	hc      *http.Client
}

// New constructs a Recognizer. An empty baseURL yields an unavailable one.
func New(baseURL string, timeout time.Duration) *Recognizer {
	return &Recognizer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
	}
}

// Available reports whether a sidecar URL is configured.
func (r *Recognizer) Available() bool { return r.baseURL != "" }

// Recognize transcribes the media file and returns the text together with
// the dominant detected language code. Segments are joined in order; the
// language of the longest total text wins.
func (r *Recognizer) Recognize(ctx domain.Context, path string) (string, string, error) {
	if !r.Available() {
		return "", "", fmt.Errorf("%w: local recognizer not configured", domain.ErrInvalidArgument)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("op=whisper.recognize open: %w", err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "media")
	if err != nil {
		return "", "", fmt.Errorf("op=whisper.recognize form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", "", fmt.Errorf("op=whisper.recognize copy: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", "", fmt.Errorf("op=whisper.recognize close: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/transcribe", &buf)
	if err != nil {
		return "", "", fmt.Errorf("op=whisper.recognize request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := r.hc.Do(req)
	if err != nil {
		observability.TranscriptionsTotal.WithLabelValues("local", "error").Inc()
		return "", "", fmt.Errorf("op=whisper.recognize: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.TranscriptionsTotal.WithLabelValues("local", "error").Inc()
		return "", "", fmt.Errorf("op=whisper.recognize status %d", resp.StatusCode)
	}

	var out struct {
		Segments []struct {
			Text     string `json:"text"`
			Language string `json:"language"`
		} `json:"segments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		observability.TranscriptionsTotal.WithLabelValues("local", "error").Inc()
		return "", "", fmt.Errorf("op=whisper.recognize decode: %w", err)
	}

	var parts []string
	langWeight := map[string]int{}
	for _, seg := range out.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		langWeight[strings.ToLower(seg.Language)] += len(text)
	}

	language := ""
	best := 0
	for lang, weight := range langWeight {
		if weight > best {
			best = weight
			language = lang
		}
	}

	observability.TranscriptionsTotal.WithLabelValues("local", "ok").Inc()
	return strings.Join(parts, " "), language, nil
}
