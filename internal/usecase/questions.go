package usecase

import (
	"fmt"
	"math/rand"

	"github.com/meetngreet/interview-backend/internal/domain"
)

// SelectionModeFixed uses a configured ordered id list, or every bank entry
// typed "fixed", or the whole bank as a last resort. SelectionModeMixed
// takes the always-include set verbatim and fills the remainder by sampling
// without replacement.
const (
	SelectionModeFixed = "fixed"
	SelectionModeMixed = "mixed"
)

// SelectQuestions picks exactly count questions from the bank per the given
// mode. It is purely functional given bank, mode, count, and rng.
func SelectQuestions(bank domain.QuestionBank, mode string, count int, rng *rand.Rand) ([]domain.Question, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: question count must be positive", domain.ErrInvalidArgument)
	}

	byID := make(map[string]domain.Question, len(bank.Questions))
	for _, q := range bank.Questions {
		byID[q.ID] = q
	}

	switch mode {
	case SelectionModeFixed:
		return selectFixed(bank, byID, count)
	case SelectionModeMixed:
		return selectMixed(bank, byID, count, rng)
	default:
		return nil, fmt.Errorf("%w: unknown selection mode %q", domain.ErrInvalidArgument, mode)
	}
}

func selectFixed(bank domain.QuestionBank, byID map[string]domain.Question, count int) ([]domain.Question, error) {
	var pool []domain.Question
	if len(bank.FixedQuestionIDs) > 0 {
		for _, id := range bank.FixedQuestionIDs {
			q, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("%w: fixed question id %s not in bank", domain.ErrInvalidArgument, id)
			}
			pool = append(pool, q)
		}
	} else {
		for _, q := range bank.Questions {
			if q.Type == "fixed" {
				pool = append(pool, q)
			}
		}
		if len(pool) == 0 {
			pool = append(pool, bank.Questions...)
		}
	}
	if len(pool) < count {
		return nil, fmt.Errorf("%w: need %d, have %d", domain.ErrBankTooSmall, count, len(pool))
	}
	return pool[:count], nil
}

func selectMixed(bank domain.QuestionBank, byID map[string]domain.Question, count int, rng *rand.Rand) ([]domain.Question, error) {
	included := map[string]bool{}
	var out []domain.Question
	for _, id := range bank.AlwaysIncludeIDs {
		q, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: always-include id %s not in bank", domain.ErrInvalidArgument, id)
		}
		if included[id] {
			continue
		}
		included[id] = true
		out = append(out, q)
	}
	if len(out) > count {
		return nil, fmt.Errorf("%w: always-include set exceeds question count", domain.ErrInvalidArgument)
	}

	var rest []domain.Question
	for _, q := range bank.Questions {
		if !included[q.ID] {
			rest = append(rest, q)
		}
	}
	need := count - len(out)
	if len(rest) < need {
		return nil, fmt.Errorf("%w: need %d, have %d", domain.ErrBankTooSmall, count, len(out)+len(rest))
	}

	rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	out = append(out, rest[:need]...)
	return out, nil
}
