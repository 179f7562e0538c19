// Package vision calls the frame face/smile detector sidecar.
package vision

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

	"github.com/meetngreet/interview-backend/internal/domain"
)

// Detector implements domain.FrameDetector over HTTP.
type Detector struct {
	baseURL string
	hc      *http.Client
}

// New constructs a Detector. An empty baseURL yields an unavailable one.
func New(baseURL string, timeout time.Duration) *Detector {
	return &Detector{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
	}
}

// Available reports whether a sidecar URL is configured.
func (d *Detector) Available() bool { return d.baseURL != "" }

// Detect uploads the media file and returns one observation per decoded
// frame, in frame order.
func (d *Detector) Detect(ctx domain.Context, mediaPath string) ([]domain.FrameObservation, error) {
	if !d.Available() {
		return nil, fmt.Errorf("%w: frame detector not configured", domain.ErrInvalidArgument)
	}

	f, err := os.Open(mediaPath)
	if err != nil {
		return nil, fmt.Errorf("op=vision.detect open: %w", err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "media")
	if err != nil {
		return nil, fmt.Errorf("op=vision.detect form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("op=vision.detect copy: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("op=vision.detect close: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/detect", &buf)
	if err != nil {
		return nil, fmt.Errorf("op=vision.detect request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := d.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("op=vision.detect: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("op=vision.detect status %d", resp.StatusCode)
	}

	var out struct {
		Frames []domain.FrameObservation `json:"frames"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("op=vision.detect decode: %w", err)
	}
	return out.Frames, nil
}
