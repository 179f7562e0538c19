package httpserver

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/meetngreet/interview-backend/internal/config"
	"github.com/meetngreet/interview-backend/internal/domain"
)

// Identity is the authenticated candidate carried by the session cookie.
type Identity struct {
	UniqueID    string `json:"unique_id"`
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Provider    string `json:"provider"`
}

type sessionClaims struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Provider    string `json:"provider"`
	CandidateID string `json:"candidate_id"`
	jwt.RegisteredClaims
}

// issueSessionToken signs an HS256 token for the identity with the configured
// session TTL.
func issueSessionToken(cfg config.Config, id Identity) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Name:        id.Name,
		Email:       id.Email,
		Provider:    id.Provider,
		CandidateID: id.CandidateID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UniqueID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.SessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.SessionSecret))
	if err != nil {
		return "", fmt.Errorf("op=auth.sign: %w", err)
	}
	return signed, nil
}

// parseSessionToken verifies the token signature and expiry and returns the
// embedded identity.
func parseSessionToken(cfg config.Config, raw string) (Identity, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(cfg.SessionSecret), nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: invalid session", domain.ErrUnauthorized)
	}
	return Identity{
		UniqueID:    claims.Subject,
		CandidateID: claims.CandidateID,
		Name:        claims.Name,
		Email:       claims.Email,
		Provider:    claims.Provider,
	}, nil
}

func setSessionCookie(w http.ResponseWriter, cfg config.Config, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   cfg.CookieDomain,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cfg.SessionTTL.Seconds()),
	})
}

func clearSessionCookie(w http.ResponseWriter, cfg config.Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.CookieDomain,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

type identityKey struct{}

// IdentityFrom extracts the authenticated identity from the request context.
func IdentityFrom(r *http.Request) (Identity, bool) {
	id, ok := r.Context().Value(identityKey{}).(Identity)
	return id, ok
}

// RequireSession rejects requests without a valid session cookie.
func (s *Server) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(s.Cfg.SessionCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, r, fmt.Errorf("%w: missing session", domain.ErrUnauthorized), nil)
			return
		}
		id, err := parseSessionToken(s.Cfg, cookie.Value)
		if err != nil {
			clearSessionCookie(w, s.Cfg)
			writeError(w, r, err, nil)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminGuard protects the admin API with basic auth checked against the
// configured bcrypt hash.
func (s *Server) AdminGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !s.adminCredentialsValid(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
			writeError(w, r, fmt.Errorf("%w: admin credentials required", domain.ErrUnauthorized), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) adminCredentialsValid(user, pass string) bool {
	if !s.Cfg.AdminEnabled() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.Cfg.AdminUsername)) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(s.Cfg.AdminPasswordHash), []byte(pass)) == nil
	return userOK && passOK
}

// SessionHandler returns the current identity, or 401 when unauthenticated.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r)
		if !ok {
			writeError(w, r, fmt.Errorf("%w: no session", domain.ErrUnauthorized), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "user": id})
	}
}

// LogoutHandler clears the session cookie.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clearSessionCookie(w, s.Cfg)
		writeJSON(w, http.StatusOK, map[string]any{"logged_out": true})
	}
}
