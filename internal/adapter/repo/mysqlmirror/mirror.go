// Package mysqlmirror replicates session state into a secondary MySQL
// reporting database on a best-effort basis.
//
// The primary store never depends on the mirror: sync failures are logged
// and dropped, and a connection-level failure permanently disables the
// mirror for the life of the process.
package mysqlmirror

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/meetngreet/interview-backend/internal/adapter/observability"
	"github.com/meetngreet/interview-backend/internal/domain"
)

// Mirror implements domain.MirrorStore over a MySQL connection.
type Mirror struct {
	db *sql.DB

	mu       sync.Mutex
	disabled bool

	schemaOnce sync.Once
	schemaErr  error
}

// New opens the mirror connection. An empty DSN returns a disabled mirror.
// The connection is not probed here; the first sync attempt discovers an
// unreachable server and trips the breaker.
func New(dsn string) (*Mirror, error) {
	if dsn == "" {
		return &Mirror{disabled: true}, nil
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Mirror{db: db}, nil
}

// Enabled reports whether the mirror is configured and the breaker is closed.
func (m *Mirror) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.disabled
}

// Close releases the underlying connection pool.
func (m *Mirror) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

func (m *Mirror) trip(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disabled {
		return
	}
	m.disabled = true
	slog.Error("mirror disabled after connection failure", slog.Any("error", err))
}

// isConnError reports whether err looks like a connection-level failure
// rather than a statement-level one.
func isConnError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

var mirrorSchema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id VARCHAR(64) PRIMARY KEY,
		candidate_id VARCHAR(255) NOT NULL,
		candidate_name VARCHAR(255) NOT NULL DEFAULT '',
		candidate_email VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(32) NOT NULL DEFAULT 'in_progress',
		status_label VARCHAR(64) NOT NULL DEFAULT '',
		created_at TIMESTAMP NULL,
		evaluated_at TIMESTAMP NULL
	)`,
	`CREATE TABLE IF NOT EXISTS session_questions (
		session_id VARCHAR(64) NOT NULL,
		question_id VARCHAR(64) NOT NULL,
		candidate_name VARCHAR(255) NOT NULL DEFAULT '',
		candidate_email VARCHAR(255) NOT NULL DEFAULT '',
		question_text TEXT,
		topic VARCHAR(128) NOT NULL DEFAULT '',
		question_type VARCHAR(64) NOT NULL DEFAULT '',
		order_index INT NOT NULL DEFAULT 0,
		PRIMARY KEY (session_id, question_id)
	)`,
	`CREATE TABLE IF NOT EXISTS responses (
		session_id VARCHAR(64) NOT NULL,
		question_id VARCHAR(64) NOT NULL,
		candidate_name VARCHAR(255) NOT NULL DEFAULT '',
		candidate_email VARCHAR(255) NOT NULL DEFAULT '',
		media_filename VARCHAR(512) NOT NULL DEFAULT '',
		duration_seconds DOUBLE NULL,
		transcript TEXT,
		created_at TIMESTAMP NULL,
		PRIMARY KEY (session_id, question_id)
	)`,
	`CREATE TABLE IF NOT EXISTS scores (
		session_id VARCHAR(64) PRIMARY KEY,
		candidate_id VARCHAR(255) NOT NULL DEFAULT '',
		candidate_name VARCHAR(255) NOT NULL DEFAULT '',
		candidate_email VARCHAR(255) NOT NULL DEFAULT '',
		ai_communication DOUBLE NULL,
		ai_content DOUBLE NULL,
		ai_confidence DOUBLE NULL,
		ai_total DOUBLE NULL,
		evaluator_communication DOUBLE NULL,
		evaluator_content DOUBLE NULL,
		evaluator_confidence DOUBLE NULL,
		evaluator_total DOUBLE NULL,
		updated_at TIMESTAMP NULL
	)`,
}

func (m *Mirror) ensureSchema(ctx context.Context) error {
	m.schemaOnce.Do(func() {
		for _, stmt := range mirrorSchema {
			if _, err := m.db.ExecContext(ctx, stmt); err != nil {
				m.schemaErr = err
				return
			}
		}
	})
	return m.schemaErr
}

// SyncSession upserts the full session snapshot into the mirror.
func (m *Mirror) SyncSession(ctx domain.Context, snap domain.SessionSnapshot) {
	if !m.Enabled() {
		return
	}
	if err := m.sync(ctx, snap); err != nil {
		observability.MirrorSyncsTotal.WithLabelValues("error").Inc()
		if isConnError(err) {
			m.trip(err)
			return
		}
		slog.Warn("mirror sync failed", slog.String("session_id", snap.Session.ID), slog.Any("error", err))
		return
	}
	observability.MirrorSyncsTotal.WithLabelValues("ok").Inc()
}

func (m *Mirror) sync(ctx context.Context, snap domain.SessionSnapshot) error {
	if err := m.ensureSchema(ctx); err != nil {
		return err
	}

	s := snap.Session
	_, err := m.db.ExecContext(ctx, `INSERT INTO sessions
		(id, candidate_id, candidate_name, candidate_email, status, status_label, created_at, evaluated_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON DUPLICATE KEY UPDATE status=VALUES(status), status_label=VALUES(status_label), evaluated_at=VALUES(evaluated_at)`,
		s.ID, s.CandidateID, s.CandidateName, s.CandidateEmail, s.Status, s.StatusLabel, s.CreatedAt, s.EvaluatedAt)
	if err != nil {
		return err
	}

	for _, q := range snap.Questions {
		_, err := m.db.ExecContext(ctx, `INSERT INTO session_questions
			(session_id, question_id, candidate_name, candidate_email, question_text, topic, question_type, order_index)
			VALUES (?,?,?,?,?,?,?,?)
			ON DUPLICATE KEY UPDATE question_text=VALUES(question_text), order_index=VALUES(order_index)`,
			q.SessionID, q.QuestionID, q.CandidateName, q.CandidateEmail, q.QuestionText, q.Topic, q.QuestionType, q.OrderIndex)
		if err != nil {
			return err
		}
	}

	for _, r := range snap.Responses {
		_, err := m.db.ExecContext(ctx, `INSERT INTO responses
			(session_id, question_id, candidate_name, candidate_email, media_filename, duration_seconds, transcript, created_at)
			VALUES (?,?,?,?,?,?,?,?)
			ON DUPLICATE KEY UPDATE transcript=VALUES(transcript), duration_seconds=VALUES(duration_seconds)`,
			r.SessionID, r.QuestionID, r.CandidateName, r.CandidateEmail, r.MediaFilename, r.DurationSeconds, r.Transcript, r.CreatedAt)
		if err != nil {
			return err
		}
	}

	if sc := snap.Score; sc != nil {
		_, err := m.db.ExecContext(ctx, `INSERT INTO scores
			(session_id, candidate_id, candidate_name, candidate_email,
			ai_communication, ai_content, ai_confidence, ai_total,
			evaluator_communication, evaluator_content, evaluator_confidence, evaluator_total, updated_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
			ON DUPLICATE KEY UPDATE
			ai_communication=VALUES(ai_communication), ai_content=VALUES(ai_content),
			ai_confidence=VALUES(ai_confidence), ai_total=VALUES(ai_total),
			evaluator_communication=VALUES(evaluator_communication), evaluator_content=VALUES(evaluator_content),
			evaluator_confidence=VALUES(evaluator_confidence), evaluator_total=VALUES(evaluator_total),
			updated_at=VALUES(updated_at)`,
			sc.SessionID, sc.CandidateID, sc.CandidateName, sc.CandidateEmail,
			sc.AICommunication, sc.AIContent, sc.AIConfidence, sc.AITotal,
			sc.EvaluatorCommunication, sc.EvaluatorContent, sc.EvaluatorConfidence, sc.EvaluatorTotal,
			time.Now().UTC())
		if err != nil {
			return err
		}
	}

	return nil
}

// DeleteSession removes every mirrored row for a session.
func (m *Mirror) DeleteSession(ctx domain.Context, sessionID string) {
	if !m.Enabled() {
		return
	}
	if err := m.ensureSchema(ctx); err != nil {
		if isConnError(err) {
			m.trip(err)
		}
		return
	}
	for _, q := range []string{
		`DELETE FROM scores WHERE session_id=?`,
		`DELETE FROM responses WHERE session_id=?`,
		`DELETE FROM session_questions WHERE session_id=?`,
		`DELETE FROM sessions WHERE id=?`,
	} {
		if _, err := m.db.ExecContext(ctx, q, sessionID); err != nil {
			if isConnError(err) {
				m.trip(err)
				return
			}
			slog.Warn("mirror delete failed", slog.String("session_id", sessionID), slog.Any("error", err))
		}
	}
}
