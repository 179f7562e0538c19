package httpserver

import (
	"sort"
	"sync"
	"time"

	"github.com/meetngreet/interview-backend/internal/domain"
)

// memStore backs the repo stubs used by handler tests.
type memStore struct {
	mu         sync.Mutex
	sessions   map[string]domain.Session
	questions  map[string][]domain.SessionQuestion
	responses  map[string][]domain.Response
	scores     map[string]domain.Score
	users      map[string]domain.User
	nextRespID int64
}

func newMemStore() *memStore {
	return &memStore{
		sessions:  map[string]domain.Session{},
		questions: map[string][]domain.SessionQuestion{},
		responses: map[string][]domain.Response{},
		scores:    map[string]domain.Score{},
		users:     map[string]domain.User{},
	}
}

type stubSessions struct{ m *memStore }

func (s stubSessions) Create(_ domain.Context, sess domain.Session) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.sessions[sess.ID]; ok {
		return domain.ErrConflict
	}
	sess.CreatedAt = time.Now().UTC()
	s.m.sessions[sess.ID] = sess
	return nil
}

func (s stubSessions) Get(_ domain.Context, id string) (domain.Session, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sess, ok := s.m.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return sess, nil
}

func (s stubSessions) UpdateStatus(_ domain.Context, id string, status domain.SessionStatus) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sess, ok := s.m.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	sess.Status = status
	s.m.sessions[id] = sess
	return nil
}

func (s stubSessions) MarkCompleted(_ domain.Context, id, label string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sess, ok := s.m.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	sess.Status = domain.SessionCompleted
	sess.StatusLabel = label
	sess.EvaluatedAt = &now
	s.m.sessions[id] = sess
	return nil
}

func (s stubSessions) Delete(_ domain.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.sessions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.m.sessions, id)
	delete(s.m.questions, id)
	delete(s.m.responses, id)
	delete(s.m.scores, id)
	return nil
}

func (s stubSessions) ListPendingEvaluation(_ domain.Context, limit int) ([]string, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var ids []string
	for id, sess := range s.m.sessions {
		if sess.Status != domain.SessionSubmitted {
			continue
		}
		if _, ok := s.m.scores[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s stubSessions) ListRecent(_ domain.Context, limit int) ([]domain.Session, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []domain.Session
	for _, sess := range s.m.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type stubQuestions struct{ m *memStore }

func (s stubQuestions) CreateBatch(_ domain.Context, qs []domain.SessionQuestion) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, q := range qs {
		s.m.questions[q.SessionID] = append(s.m.questions[q.SessionID], q)
	}
	return nil
}

func (s stubQuestions) ListBySession(_ domain.Context, sessionID string) ([]domain.SessionQuestion, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := append([]domain.SessionQuestion(nil), s.m.questions[sessionID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (s stubQuestions) CountBySession(_ domain.Context, sessionID string) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return len(s.m.questions[sessionID]), nil
}

type stubResponses struct{ m *memStore }

func (s stubResponses) Create(_ domain.Context, r domain.Response) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.responses[r.SessionID] {
		if existing.QuestionID == r.QuestionID {
			return 0, domain.ErrConflict
		}
	}
	s.m.nextRespID++
	r.ID = s.m.nextRespID
	r.CreatedAt = time.Now().UTC()
	s.m.responses[r.SessionID] = append(s.m.responses[r.SessionID], r)
	return r.ID, nil
}

func (s stubResponses) FindBySessionQuestion(_ domain.Context, sessionID, questionID string) (domain.Response, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, r := range s.m.responses[sessionID] {
		if r.QuestionID == questionID {
			return r, nil
		}
	}
	return domain.Response{}, domain.ErrNotFound
}

func (s stubResponses) Get(_ domain.Context, id int64) (domain.Response, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, rs := range s.m.responses {
		for _, r := range rs {
			if r.ID == id {
				return r, nil
			}
		}
	}
	return domain.Response{}, domain.ErrNotFound
}

func (s stubResponses) ListBySession(_ domain.Context, sessionID string) ([]domain.Response, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return append([]domain.Response(nil), s.m.responses[sessionID]...), nil
}

func (s stubResponses) CountDistinctQuestions(_ domain.Context, sessionID string) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	seen := map[string]bool{}
	for _, r := range s.m.responses[sessionID] {
		seen[r.QuestionID] = true
	}
	return len(seen), nil
}

func (s stubResponses) UpdateTranscript(_ domain.Context, id int64, transcript string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for sid, rs := range s.m.responses {
		for i, r := range rs {
			if r.ID == id {
				s.m.responses[sid][i].Transcript = transcript
				return nil
			}
		}
	}
	return domain.ErrNotFound
}

type stubScores struct{ m *memStore }

func (s stubScores) GetBySession(_ domain.Context, sessionID string) (domain.Score, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sc, ok := s.m.scores[sessionID]
	if !ok {
		return domain.Score{}, domain.ErrNotFound
	}
	return sc, nil
}

func (s stubScores) UpsertAI(_ domain.Context, sc domain.Score) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	existing := s.m.scores[sc.SessionID]
	sc.EvaluatorCommunication = existing.EvaluatorCommunication
	sc.EvaluatorContent = existing.EvaluatorContent
	sc.EvaluatorConfidence = existing.EvaluatorConfidence
	sc.EvaluatorTotal = existing.EvaluatorTotal
	s.m.scores[sc.SessionID] = sc
	return nil
}

func (s stubScores) UpdateEvaluator(_ domain.Context, sessionID string, communication, content, confidence, total *float64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sc, ok := s.m.scores[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	sc.EvaluatorCommunication = communication
	sc.EvaluatorContent = content
	sc.EvaluatorConfidence = confidence
	sc.EvaluatorTotal = total
	s.m.scores[sessionID] = sc
	return nil
}

type stubUsers struct{ m *memStore }

func (s stubUsers) UpsertFromSSO(_ domain.Context, u domain.User) (domain.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u.ID = int64(len(s.m.users) + 1)
	s.m.users[u.UniqueID] = u
	return u, nil
}

func (s stubUsers) FindByEmail(_ domain.Context, email string) (domain.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, u := range s.m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (s stubUsers) FindByUniqueID(_ domain.Context, uniqueID string) (domain.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[uniqueID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

type stubBank struct{ bank domain.QuestionBank }

func (b stubBank) Load() (domain.QuestionBank, error) { return b.bank, nil }
