package domain

import "io"

// Repositories (ports)

type UserRepository interface {
	UpsertFromSSO(ctx Context, u User) (User, error)
	FindByEmail(ctx Context, email string) (User, error)
	FindByUniqueID(ctx Context, uniqueID string) (User, error)
}

type SessionRepository interface {
	Create(ctx Context, s Session) error
	Get(ctx Context, id string) (Session, error)
	UpdateStatus(ctx Context, id string, status SessionStatus) error
	// MarkCompleted stamps the status label and evaluation time together with
	// the completed status.
	MarkCompleted(ctx Context, id, statusLabel string) error
	Delete(ctx Context, id string) error
	// ListPendingEvaluation returns ids of submitted sessions that have no
	// score row yet, newest first, capped at limit.
	ListPendingEvaluation(ctx Context, limit int) ([]string, error)
	ListRecent(ctx Context, limit int) ([]Session, error)
}

type SessionQuestionRepository interface {
	CreateBatch(ctx Context, qs []SessionQuestion) error
	ListBySession(ctx Context, sessionID string) ([]SessionQuestion, error)
	CountBySession(ctx Context, sessionID string) (int, error)
}

type ResponseRepository interface {
	Create(ctx Context, r Response) (int64, error)
	FindBySessionQuestion(ctx Context, sessionID, questionID string) (Response, error)
	Get(ctx Context, id int64) (Response, error)
	ListBySession(ctx Context, sessionID string) ([]Response, error)
	CountDistinctQuestions(ctx Context, sessionID string) (int, error)
	UpdateTranscript(ctx Context, id int64, transcript string) error
}

type ScoreRepository interface {
	GetBySession(ctx Context, sessionID string) (Score, error)
	// UpsertAI writes the AI-computed columns, creating the row when absent
	// and leaving evaluator columns untouched.
	UpsertAI(ctx Context, s Score) error
	// UpdateEvaluator writes the human-entered columns only.
	UpdateEvaluator(ctx Context, sessionID string, communication, content, confidence, total *float64) error
}

// MediaStore persists uploaded response media on disk.

type MediaStore interface {
	Save(ctx Context, sessionID, questionID, filename, mime string, r io.Reader) (StoredMedia, error)
	Remove(path string) error
}

// SpeechTranscriber is the hosted speech-to-text API.

type SpeechTranscriber interface {
	Configured() bool
	TranscribeFile(ctx Context, path, filename string) (string, error)
}

// LocalRecognizer is the local speech-recognition model (sidecar).
// Recognize returns the transcript and the detected language code.

type LocalRecognizer interface {
	Available() bool
	Recognize(ctx Context, path string) (text, language string, err error)
}

// AnswerScorer is the hosted LLM scoring call. A nil result with nil error
// means the model produced no usable output after retries.

type AnswerScorer interface {
	ScoreAnswer(ctx Context, questionText, transcript string, metrics VideoMetrics) (*LLMScore, error)
}

// FrameDetector reports face/smile observations for every decoded frame of
// a media file. Implementations may be unavailable; callers fall back to
// default metrics.

type FrameDetector interface {
	Available() bool
	Detect(ctx Context, mediaPath string) ([]FrameObservation, error)
}

// MirrorStore replicates session state into the secondary reporting
// database, best effort. Implementations log failures internally and
// permanently disable themselves after connection-level errors.

type MirrorStore interface {
	Enabled() bool
	SyncSession(ctx Context, snap SessionSnapshot)
	DeleteSession(ctx Context, sessionID string)
}

// QuestionBank provides the static bank plus its selection configuration.

type QuestionBank struct {
	SelectionMode    string     `yaml:"selection_mode"`
	QuestionCount    int        `yaml:"question_count"`
	AlwaysIncludeIDs []string   `yaml:"always_include_ids"`
	FixedQuestionIDs []string   `yaml:"fixed_question_ids"`
	Questions        []Question `yaml:"questions"`
}

type QuestionBankLoader interface {
	Load() (QuestionBank, error)
}
