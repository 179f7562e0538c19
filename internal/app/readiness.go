package app

import (
	"context"
	"fmt"

	"github.com/meetngreet/interview-backend/internal/config"
)

// Pinger is the minimal interface for a database pool capable of Ping.
type Pinger interface{ Ping(ctx context.Context) error }

// MirrorState is the minimal mirror surface readiness needs.
type MirrorState interface{ Enabled() bool }

// BuildReadinessChecks returns three readiness checks: primary db, mirror
// circuit state, and LLM configuration.
func BuildReadinessChecks(cfg config.Config, pool Pinger, mirror MirrorState) (
	func(ctx context.Context) error,
	func(ctx context.Context) error,
	func(ctx context.Context) error,
) {
	dbCheck := func(ctx context.Context) error {
		if pool == nil {
			return fmt.Errorf("db not configured")
		}
		return pool.Ping(ctx)
	}
	mirrorCheck := func(_ context.Context) error {
		if cfg.MirrorDBDSN == "" {
			return nil
		}
		if mirror == nil || !mirror.Enabled() {
			return fmt.Errorf("mirror disabled")
		}
		return nil
	}
	llmCheck := func(_ context.Context) error {
		if cfg.OpenAIAPIKey == "" {
			return fmt.Errorf("llm not configured")
		}
		return nil
	}
	return dbCheck, mirrorCheck, llmCheck
}
