// Package storage persists uploaded response media on local disk.
package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meetngreet/interview-backend/internal/domain"
)

// DiskStore writes media files under a single base directory.
type DiskStore struct {
	BaseDir string
}

// New creates the base directory if needed and returns the store.
func New(baseDir string) (*DiskStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("op=storage.new: %w", err)
	}
	return &DiskStore{BaseDir: baseDir}, nil
}

// Save streams the reader to disk in 1 MiB chunks. File names embed the
// session, question, a timestamp, and a random suffix so repeated uploads
// never collide.
func (s *DiskStore) Save(_ domain.Context, sessionID, questionID, filename, mimeType string, r io.Reader) (domain.StoredMedia, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = extensionFor(mimeType)
	}
	name := fmt.Sprintf("%s_%s_%d_%s%s", sessionID, questionID, time.Now().UTC().UnixNano(), randomSuffix(), ext)
	path := filepath.Join(s.BaseDir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return domain.StoredMedia{}, fmt.Errorf("op=storage.save: %w", err)
	}

	buf := make([]byte, 1<<20)
	if _, err := io.CopyBuffer(f, r, buf); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return domain.StoredMedia{}, fmt.Errorf("op=storage.save copy: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return domain.StoredMedia{}, fmt.Errorf("op=storage.save close: %w", err)
	}

	if mimeType == "" {
		mimeType = "video/webm"
	}
	return domain.StoredMedia{Path: path, Filename: name, MIME: mimeType}, nil
}

// Remove deletes a stored file. A missing file is not an error.
func (s *DiskStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("op=storage.remove: %w", err)
	}
	return nil
}

func extensionFor(mimeType string) string {
	if mimeType == "" {
		return ".webm"
	}
	exts, err := mime.ExtensionsByType(mimeType)
	if err == nil && len(exts) > 0 {
		return exts[0]
	}
	if strings.HasPrefix(mimeType, "video/") {
		return "." + strings.TrimPrefix(mimeType, "video/")
	}
	return ".webm"
}

func randomSuffix() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
