package usecase_test

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/meetngreet/interview-backend/internal/domain"
)

// mem is a shared in-memory backing store for the repo fakes.
type mem struct {
	mu         sync.Mutex
	sessions   map[string]domain.Session
	questions  map[string][]domain.SessionQuestion
	responses  map[string][]domain.Response
	scores     map[string]domain.Score
	users      map[string]domain.User
	nextRespID int64
}

func newMem() *mem {
	return &mem{
		sessions:  map[string]domain.Session{},
		questions: map[string][]domain.SessionQuestion{},
		responses: map[string][]domain.Response{},
		scores:    map[string]domain.Score{},
		users:     map[string]domain.User{},
	}
}

type fakeSessions struct{ m *mem }

func (f fakeSessions) Create(_ domain.Context, s domain.Session) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if _, ok := f.m.sessions[s.ID]; ok {
		return fmt.Errorf("session exists: %w", domain.ErrConflict)
	}
	if s.Status == "" {
		s.Status = domain.SessionInProgress
	}
	s.CreatedAt = time.Now().UTC()
	f.m.sessions[s.ID] = s
	return nil
}

func (f fakeSessions) Get(_ domain.Context, id string) (domain.Session, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s, ok := f.m.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return s, nil
}

func (f fakeSessions) UpdateStatus(_ domain.Context, id string, status domain.SessionStatus) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s, ok := f.m.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = status
	f.m.sessions[id] = s
	return nil
}

func (f fakeSessions) MarkCompleted(_ domain.Context, id, label string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s, ok := f.m.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	s.Status = domain.SessionCompleted
	s.StatusLabel = label
	s.EvaluatedAt = &now
	f.m.sessions[id] = s
	return nil
}

func (f fakeSessions) Delete(_ domain.Context, id string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if _, ok := f.m.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.m.sessions, id)
	delete(f.m.questions, id)
	delete(f.m.responses, id)
	delete(f.m.scores, id)
	return nil
}

func (f fakeSessions) ListPendingEvaluation(_ domain.Context, limit int) ([]string, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var ids []string
	for id, s := range f.m.sessions {
		if s.Status != domain.SessionSubmitted {
			continue
		}
		if _, scored := f.m.scores[id]; scored {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f fakeSessions) ListRecent(_ domain.Context, limit int) ([]domain.Session, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	var out []domain.Session
	for _, s := range f.m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeQuestions struct{ m *mem }

func (f fakeQuestions) CreateBatch(_ domain.Context, qs []domain.SessionQuestion) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, q := range qs {
		f.m.questions[q.SessionID] = append(f.m.questions[q.SessionID], q)
	}
	return nil
}

func (f fakeQuestions) ListBySession(_ domain.Context, sessionID string) ([]domain.SessionQuestion, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	out := append([]domain.SessionQuestion(nil), f.m.questions[sessionID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (f fakeQuestions) CountBySession(_ domain.Context, sessionID string) (int, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	return len(f.m.questions[sessionID]), nil
}

type fakeResponses struct{ m *mem }

func (f fakeResponses) Create(_ domain.Context, r domain.Response) (int64, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, existing := range f.m.responses[r.SessionID] {
		if existing.QuestionID == r.QuestionID {
			return 0, fmt.Errorf("duplicate response: %w", domain.ErrConflict)
		}
	}
	f.m.nextRespID++
	r.ID = f.m.nextRespID
	r.CreatedAt = time.Now().UTC()
	f.m.responses[r.SessionID] = append(f.m.responses[r.SessionID], r)
	return r.ID, nil
}

func (f fakeResponses) FindBySessionQuestion(_ domain.Context, sessionID, questionID string) (domain.Response, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, r := range f.m.responses[sessionID] {
		if r.QuestionID == questionID {
			return r, nil
		}
	}
	return domain.Response{}, domain.ErrNotFound
}

func (f fakeResponses) Get(_ domain.Context, id int64) (domain.Response, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, rs := range f.m.responses {
		for _, r := range rs {
			if r.ID == id {
				return r, nil
			}
		}
	}
	return domain.Response{}, domain.ErrNotFound
}

func (f fakeResponses) ListBySession(_ domain.Context, sessionID string) ([]domain.Response, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	return append([]domain.Response(nil), f.m.responses[sessionID]...), nil
}

func (f fakeResponses) CountDistinctQuestions(_ domain.Context, sessionID string) (int, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	seen := map[string]bool{}
	for _, r := range f.m.responses[sessionID] {
		seen[r.QuestionID] = true
	}
	return len(seen), nil
}

func (f fakeResponses) UpdateTranscript(_ domain.Context, id int64, transcript string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for sid, rs := range f.m.responses {
		for i, r := range rs {
			if r.ID == id {
				f.m.responses[sid][i].Transcript = transcript
				return nil
			}
		}
	}
	return domain.ErrNotFound
}

type fakeScores struct{ m *mem }

func (f fakeScores) GetBySession(_ domain.Context, sessionID string) (domain.Score, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s, ok := f.m.scores[sessionID]
	if !ok {
		return domain.Score{}, domain.ErrNotFound
	}
	return s, nil
}

func (f fakeScores) UpsertAI(_ domain.Context, s domain.Score) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	existing, ok := f.m.scores[s.SessionID]
	if ok {
		existing.AICommunication = s.AICommunication
		existing.AIContent = s.AIContent
		existing.AIConfidence = s.AIConfidence
		existing.AITotal = s.AITotal
		f.m.scores[s.SessionID] = existing
		return nil
	}
	s.CreatedAt = time.Now().UTC()
	f.m.scores[s.SessionID] = s
	return nil
}

func (f fakeScores) UpdateEvaluator(_ domain.Context, sessionID string, communication, content, confidence, total *float64) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	s, ok := f.m.scores[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	s.EvaluatorCommunication = communication
	s.EvaluatorContent = content
	s.EvaluatorConfidence = confidence
	s.EvaluatorTotal = total
	f.m.scores[sessionID] = s
	return nil
}

type fakeUsers struct{ m *mem }

func (f fakeUsers) UpsertFromSSO(_ domain.Context, u domain.User) (domain.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	u.CreatedAt = time.Now().UTC()
	f.m.users[strings.ToLower(u.Email)] = u
	return u, nil
}

func (f fakeUsers) FindByEmail(_ domain.Context, email string) (domain.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	u, ok := f.m.users[strings.ToLower(email)]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f fakeUsers) FindByUniqueID(_ domain.Context, uniqueID string) (domain.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, u := range f.m.users {
		if u.UniqueID == uniqueID {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

// fixedScorer returns the same model score for every answer; nil simulates
// an unusable model response.
type fixedScorer struct{ score *domain.LLMScore }

func (s fixedScorer) ScoreAnswer(_ domain.Context, _, _ string, _ domain.VideoMetrics) (*domain.LLMScore, error) {
	if s.score == nil {
		return nil, nil
	}
	cp := *s.score
	return &cp, nil
}

// staticBank serves a fixed QuestionBank.
type staticBank struct{ bank domain.QuestionBank }

func (b staticBank) Load() (domain.QuestionBank, error) { return b.bank, nil }
