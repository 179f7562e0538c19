// Package questionbank loads the static interview question bank from YAML.
package questionbank

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/meetngreet/interview-backend/internal/domain"
)

// Loader reads the bank file on every call so edits apply without a restart.
type Loader struct {
	Path string
}

// New constructs a Loader for the given file path.
func New(path string) *Loader { return &Loader{Path: path} }

// Load parses the bank and validates the minimum shape: at least one
// question and no duplicate or empty ids.
func (l *Loader) Load() (domain.QuestionBank, error) {
	raw, err := os.ReadFile(l.Path)
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("op=questionbank.load: %w", err)
	}

	var bank domain.QuestionBank
	if err := yaml.Unmarshal(raw, &bank); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("op=questionbank.parse: %w", err)
	}
	if len(bank.Questions) == 0 {
		return domain.QuestionBank{}, fmt.Errorf("op=questionbank.load: %w: empty bank", domain.ErrInvalidArgument)
	}

	seen := map[string]bool{}
	for _, q := range bank.Questions {
		if q.ID == "" || q.Text == "" {
			return domain.QuestionBank{}, fmt.Errorf("op=questionbank.load: %w: question missing id or text", domain.ErrInvalidArgument)
		}
		if seen[q.ID] {
			return domain.QuestionBank{}, fmt.Errorf("op=questionbank.load: %w: duplicate question id %s", domain.ErrInvalidArgument, q.ID)
		}
		seen[q.ID] = true
	}
	return bank, nil
}
