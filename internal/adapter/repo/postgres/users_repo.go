package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meetngreet/interview-backend/internal/domain"
)

// UserRepo persists and loads users using a minimal pgx pool.
type UserRepo struct{ Pool PgxPool }

// NewUserRepo constructs a UserRepo with the given pool.
func NewUserRepo(p PgxPool) *UserRepo { return &UserRepo{Pool: p} }

// UpsertFromSSO inserts the user on first login and refreshes the mutable
// identity fields on subsequent logins, keyed by unique_id.
func (r *UserRepo) UpsertFromSSO(ctx domain.Context, u domain.User) (domain.User, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.UpsertFromSSO")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	)
	q := `INSERT INTO users (unique_id, candidate_id, name, email, provider, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (unique_id) DO UPDATE
		SET candidate_id=EXCLUDED.candidate_id, name=EXCLUDED.name, email=EXCLUDED.email, provider=EXCLUDED.provider
		RETURNING id, unique_id, candidate_id, name, email, provider, created_at`
	row := r.Pool.QueryRow(ctx, q, u.UniqueID, u.CandidateID, u.Name, u.Email, u.Provider, time.Now().UTC())
	var out domain.User
	if err := row.Scan(&out.ID, &out.UniqueID, &out.CandidateID, &out.Name, &out.Email, &out.Provider, &out.CreatedAt); err != nil {
		return domain.User{}, fmt.Errorf("op=user.upsert_from_sso: %w", err)
	}
	return out, nil
}

// FindByEmail loads a user by exact email.
func (r *UserRepo) FindByEmail(ctx domain.Context, email string) (domain.User, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.FindByEmail")
	defer span.End()
	q := `SELECT id, unique_id, candidate_id, name, email, provider, created_at FROM users WHERE email=$1`
	return r.scanOne(ctx, "user.find_by_email", q, email)
}

// FindByUniqueID loads a user by its SSO subject identifier.
func (r *UserRepo) FindByUniqueID(ctx domain.Context, uniqueID string) (domain.User, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.FindByUniqueID")
	defer span.End()
	q := `SELECT id, unique_id, candidate_id, name, email, provider, created_at FROM users WHERE unique_id=$1`
	return r.scanOne(ctx, "user.find_by_unique_id", q, uniqueID)
}

func (r *UserRepo) scanOne(ctx domain.Context, op, q string, arg any) (domain.User, error) {
	row := r.Pool.QueryRow(ctx, q, arg)
	var u domain.User
	if err := row.Scan(&u.ID, &u.UniqueID, &u.CandidateID, &u.Name, &u.Email, &u.Provider, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("op=%s: %w", op, domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("op=%s: %w", op, err)
	}
	return u, nil
}
