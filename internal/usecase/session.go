package usecase

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/meetngreet/interview-backend/internal/domain"
)

// SessionService creates sessions and answers progress queries.
type SessionService struct {
	Sessions  domain.SessionRepository
	Questions domain.SessionQuestionRepository
	Responses domain.ResponseRepository
	Bank      domain.QuestionBankLoader

	// SelectionMode and QuestionCount override the bank file when non-zero.
	SelectionMode string
	QuestionCount int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSessionService constructs a SessionService with a time-seeded random
// source.
func NewSessionService(sessions domain.SessionRepository, questions domain.SessionQuestionRepository, responses domain.ResponseRepository, bank domain.QuestionBankLoader, mode string, count int) *SessionService {
	return &SessionService{
		Sessions:      sessions,
		Questions:     questions,
		Responses:     responses,
		Bank:          bank,
		SelectionMode: mode,
		QuestionCount: count,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start creates a session for the user with its selected questions copied by
// value, so later bank edits never change an existing session.
func (s *SessionService) Start(ctx domain.Context, user domain.User) (domain.Session, []domain.SessionQuestion, error) {
	if user.Email == "" {
		return domain.Session{}, nil, fmt.Errorf("%w: user email required", domain.ErrInvalidArgument)
	}

	bank, err := s.Bank.Load()
	if err != nil {
		return domain.Session{}, nil, err
	}

	mode := s.SelectionMode
	if mode == "" {
		mode = bank.SelectionMode
	}
	if mode == "" {
		mode = SelectionModeMixed
	}
	count := s.QuestionCount
	if count == 0 {
		count = bank.QuestionCount
	}
	if count == 0 {
		count = len(bank.Questions)
	}

	s.mu.Lock()
	selected, err := SelectQuestions(bank, mode, count, s.rng)
	s.mu.Unlock()
	if err != nil {
		return domain.Session{}, nil, err
	}

	name := user.Name
	if name == "" {
		name = DeriveNameFromEmail(user.Email)
	}
	session := domain.Session{
		ID:             uuid.New().String(),
		CandidateID:    strings.ToLower(user.Email),
		CandidateName:  name,
		CandidateEmail: user.Email,
		Status:         domain.SessionInProgress,
	}
	if err := s.Sessions.Create(ctx, session); err != nil {
		return domain.Session{}, nil, err
	}

	questions := make([]domain.SessionQuestion, 0, len(selected))
	for i, q := range selected {
		questions = append(questions, domain.SessionQuestion{
			SessionID:      session.ID,
			QuestionID:     q.ID,
			CandidateName:  session.CandidateName,
			CandidateEmail: session.CandidateEmail,
			QuestionText:   q.Text,
			Topic:          q.Topic,
			QuestionType:   q.Type,
			OrderIndex:     i,
		})
	}
	if err := s.Questions.CreateBatch(ctx, questions); err != nil {
		return domain.Session{}, nil, err
	}
	return session, questions, nil
}

// Progress reports how many assigned questions have an uploaded answer.
type Progress struct {
	SessionID string               `json:"session_id"`
	Status    domain.SessionStatus `json:"status"`
	Answered  int                  `json:"answered"`
	Total     int                  `json:"total"`
}

// GetProgress returns the session's upload progress for its owner.
func (s *SessionService) GetProgress(ctx domain.Context, sessionID, candidateID string) (Progress, error) {
	session, err := s.GetOwned(ctx, sessionID, candidateID)
	if err != nil {
		return Progress{}, err
	}
	total, err := s.Questions.CountBySession(ctx, sessionID)
	if err != nil {
		return Progress{}, err
	}
	answered, err := s.Responses.CountDistinctQuestions(ctx, sessionID)
	if err != nil {
		return Progress{}, err
	}
	return Progress{SessionID: session.ID, Status: session.Status, Answered: answered, Total: total}, nil
}

// GetOwned loads a session and enforces candidate ownership. An empty
// candidateID skips the check (admin surface).
func (s *SessionService) GetOwned(ctx domain.Context, sessionID, candidateID string) (domain.Session, error) {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if candidateID != "" && session.CandidateID != strings.ToLower(candidateID) {
		return domain.Session{}, fmt.Errorf("%w: session belongs to another candidate", domain.ErrForbidden)
	}
	return session, nil
}

// DeriveNameFromEmail builds a display name from the local part of an email
// address: separators become spaces, purely numeric tokens are dropped, and
// each word is title-cased. "Candidate" when nothing usable remains.
func DeriveNameFromEmail(email string) string {
	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}
	tokens := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	var words []string
	for _, tok := range tokens {
		if tok == "" || isNumeric(tok) {
			continue
		}
		words = append(words, titleCase(tok))
	}
	if len(words) == 0 {
		return "Candidate"
	}
	return strings.Join(words, " ")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func titleCase(s string) string {
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
