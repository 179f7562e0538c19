// Package domain holds the core entities and ports of the interview platform.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrBankTooSmall          = errors.New("insufficient questions in bank")
	ErrEvaluationUnavailable = errors.New("evaluation unavailable")
	ErrInternal              = errors.New("internal error")
)

// SessionStatus is the lifecycle state of a candidate session.
// Transitions only move forward (in_progress -> submitted -> completed),
// except that a failed background evaluation reverts a completed-bound
// session to submitted so it can be retried.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionSubmitted  SessionStatus = "submitted"
	SessionCompleted  SessionStatus = "completed"
)

// User is the identity record created from verified SSO claims.
// CandidateID is the lowercased email and is the join key used by scores.
type User struct {
	ID          int64
	UniqueID    string
	CandidateID string
	Name        string
	Email       string
	Provider    string
	CreatedAt   time.Time
}

// Session is one interview attempt with its identity snapshot.
type Session struct {
	ID             string
	CandidateID    string
	CandidateName  string
	CandidateEmail string
	Status         SessionStatus
	StatusLabel    string
	CreatedAt      time.Time
	EvaluatedAt    *time.Time
}

// Question is an entry of the static question bank.
type Question struct {
	ID    string `yaml:"id"`
	Text  string `yaml:"text"`
	Topic string `yaml:"topic"`
	Type  string `yaml:"type"`
}

// SessionQuestion is a question assigned to a session, denormalized with the
// question text and the candidate identity snapshot for reporting.
type SessionQuestion struct {
	ID             int64
	SessionID      string
	QuestionID     string
	CandidateName  string
	CandidateEmail string
	QuestionText   string
	Topic          string
	QuestionType   string
	OrderIndex     int
}

// Response is one uploaded answer. At most one row exists per
// (session, question); repeat uploads return the existing row.
type Response struct {
	ID              int64
	SessionID       string
	QuestionID      string
	CandidateName   string
	CandidateEmail  string
	MediaFilename   string
	MediaMIME       string
	MediaBlob       []byte
	MediaPath       string
	DurationSeconds *float64
	Transcript      string
	CreatedAt       time.Time
}

// Score is the single score row per session. AI-computed and human-entered
// dimensions are tracked independently.
type Score struct {
	ID             int64
	SessionID      string
	CandidateID    string
	CandidateName  string
	CandidateEmail string

	AICommunication *float64
	AIContent       *float64
	AIConfidence    *float64
	AITotal         *float64

	EvaluatorCommunication *float64
	EvaluatorContent       *float64
	EvaluatorConfidence    *float64
	EvaluatorTotal         *float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VideoMetrics are the four coarse delivery signals derived from frame
// sampling. All values are in [0,1]; 0.5 is the default when analysis is
// unavailable.
type VideoMetrics struct {
	FacePresenceRatio float64 `json:"face_presence_ratio"`
	SmileRatio        float64 `json:"smile_ratio"`
	GazeCenterRatio   float64 `json:"gaze_center_ratio"`
	SeriousnessRatio  float64 `json:"seriousness_ratio"`
}

// LLMScore is the sanitized output of the hosted model for one answer.
// All scores are on the 0-10 scale.
type LLMScore struct {
	Communication float64
	Content       float64
	Relevance     float64
	Confidence    float64
	Final         float64
	Feedback      string
	Strengths     []string
	Weaknesses    []string
}

// AnswerScore is the persisted per-answer score produced by the scoring
// engine from an LLMScore.
type AnswerScore struct {
	Communication float64
	Content       float64
	Confidence    float64
	Final         float64
	Feedback      string
	Strengths     []string
	Weaknesses    []string
}

// StoredMedia describes a media file written by the media store.
type StoredMedia struct {
	Path     string
	Filename string
	MIME     string
}

// FaceObservation is a detected face in one frame: its horizontal center as
// a fraction of the frame width, and whether a smile was found in its region.
type FaceObservation struct {
	CenterX float64 `json:"center_x"`
	Smile   bool    `json:"smile"`
}

// FrameObservation is one decoded frame of a response video as reported by
// the detector sidecar. Face is nil when no face was found.
type FrameObservation struct {
	Index int              `json:"index"`
	Face  *FaceObservation `json:"face"`
}

// SessionSnapshot bundles everything the mirror store needs to replicate a
// session into the secondary database.
type SessionSnapshot struct {
	User      *User
	Session   Session
	Questions []SessionQuestion
	Responses []Response
	Score     *Score
}

// Context is an alias so repositories and ports stay decoupled from the
// standard context package in signatures; adapters pass context.Context.
type Context = context.Context
