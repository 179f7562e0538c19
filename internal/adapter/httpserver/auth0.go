package httpserver

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/meetngreet/interview-backend/internal/domain"
)

const (
	stateCookieName = "auth_state"
	nextCookieName  = "auth_next"

	tokenExchangeTimeout = 15 * time.Second
	jwksFetchTimeout     = 10 * time.Second
	jwksCacheTTL         = 10 * time.Minute

	maxUniqueIDLen = 64
)

// LoginHandler redirects the browser into the Auth0 authorization-code flow
// for the given provider ("google" or "microsoft").
func (s *Server) LoginHandler(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.Cfg.Auth0Enabled() {
			writeError(w, r, fmt.Errorf("%w: sso not configured", domain.ErrUnauthorized), nil)
			return
		}
		connection := s.Cfg.Auth0GoogleConnection
		if provider == "microsoft" {
			connection = s.Cfg.Auth0MicrosoftConnection
		}

		state, err := randomState()
		if err != nil {
			writeError(w, r, fmt.Errorf("op=auth.state: %w", err), nil)
			return
		}
		setFlowCookie(w, s.Cfg.CookieSecure, stateCookieName, state)
		if next := r.URL.Query().Get("next"); next != "" && strings.HasPrefix(next, "/") {
			setFlowCookie(w, s.Cfg.CookieSecure, nextCookieName, next)
		}

		q := url.Values{}
		q.Set("response_type", "code")
		q.Set("client_id", s.Cfg.Auth0ClientID)
		q.Set("redirect_uri", s.Cfg.Auth0CallbackURL)
		q.Set("scope", "openid profile email")
		q.Set("state", state)
		q.Set("connection", connection)
		http.Redirect(w, r, s.Cfg.Auth0BaseURL()+"/authorize?"+q.Encode(), http.StatusFound)
	}
}

// CallbackHandler completes the Auth0 flow: state check, code exchange,
// id_token verification, user upsert, session cookie.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer clearFlowCookie(w, s.Cfg.CookieSecure, stateCookieName)

		if errParam := r.URL.Query().Get("error"); errParam != "" {
			writeError(w, r, fmt.Errorf("%w: sso error: %s", domain.ErrUnauthorized, errParam), nil)
			return
		}
		stateCookie, err := r.Cookie(stateCookieName)
		if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
			writeError(w, r, fmt.Errorf("%w: state mismatch", domain.ErrUnauthorized), nil)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			writeError(w, r, fmt.Errorf("%w: code missing", domain.ErrInvalidArgument), nil)
			return
		}

		idToken, err := s.exchangeCode(r, code)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: token exchange failed", domain.ErrUnauthorized), nil)
			LoggerFrom(r).Warn("sso token exchange failed", "error", err)
			return
		}
		identity, err := s.verifyIDToken(r, idToken)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: id token rejected", domain.ErrUnauthorized), nil)
			LoggerFrom(r).Warn("sso id token rejected", "error", err)
			return
		}

		user, err := s.Users.UpsertFromSSO(r.Context(), domain.User{
			UniqueID:    identity.UniqueID,
			CandidateID: identity.CandidateID,
			Name:        identity.Name,
			Email:       identity.Email,
			Provider:    identity.Provider,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		identity.Name = user.Name

		token, err := issueSessionToken(s.Cfg, identity)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		setSessionCookie(w, s.Cfg, token)

		next := "/"
		if c, err := r.Cookie(nextCookieName); err == nil && strings.HasPrefix(c.Value, "/") {
			next = c.Value
		}
		clearFlowCookie(w, s.Cfg.CookieSecure, nextCookieName)
		http.Redirect(w, r, next, http.StatusFound)
	}
}

// exchangeCode swaps the authorization code for tokens and returns the raw
// id_token.
func (s *Server) exchangeCode(r *http.Request, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", s.Cfg.Auth0ClientID)
	form.Set("client_secret", s.Cfg.Auth0ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", s.Cfg.Auth0CallbackURL)

	client := &http.Client{Timeout: tokenExchangeTimeout}
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.Cfg.Auth0BaseURL()+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint status %d", resp.StatusCode)
	}
	var out struct {
		IDToken string `json:"id_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.IDToken == "" {
		return "", fmt.Errorf("no id_token in response")
	}
	return out.IDToken, nil
}

// verifyIDToken checks the RS256 signature against the tenant JWKS and maps
// the claims into an Identity.
func (s *Server) verifyIDToken(r *http.Request, raw string) (Identity, error) {
	var claims struct {
		Name     string `json:"name"`
		Nickname string `json:"nickname"`
		Email    string `json:"email"`
		jwt.RegisteredClaims
	}
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		kid, _ := t.Header["kid"].(string)
		return s.jwks.key(r.Context(), s.Cfg.Auth0BaseURL(), kid)
	}, jwt.WithAudience(s.Cfg.Auth0ClientID), jwt.WithIssuer(s.Cfg.Auth0BaseURL()+"/"))
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("id token verify: %w", err)
	}
	if claims.Email == "" {
		return Identity{}, fmt.Errorf("id token has no email claim")
	}

	name := claims.Name
	if name == "" {
		name = claims.Nickname
	}
	provider := "auth0"
	if i := strings.Index(claims.Subject, "|"); i > 0 {
		provider = claims.Subject[:i]
	}
	return Identity{
		UniqueID:    stableUniqueID(claims.Subject),
		CandidateID: strings.ToLower(claims.Email),
		Name:        name,
		Email:       claims.Email,
		Provider:    provider,
	}, nil
}

// stableUniqueID keeps the subject as-is when it fits the column, hashing it
// otherwise.
func stableUniqueID(sub string) string {
	if len(sub) <= maxUniqueIDLen {
		return sub
	}
	sum := sha256.Sum256([]byte(sub))
	return hex.EncodeToString(sum[:])
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func setFlowCookie(w http.ResponseWriter, secure bool, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name: name, Value: value, Path: "/", HttpOnly: true,
		Secure: secure, SameSite: http.SameSiteLaxMode, MaxAge: 300,
	})
}

func clearFlowCookie(w http.ResponseWriter, secure bool, name string) {
	http.SetCookie(w, &http.Cookie{
		Name: name, Value: "", Path: "/", HttpOnly: true,
		Secure: secure, SameSite: http.SameSiteLaxMode, MaxAge: -1,
	})
}

// jwksCache caches the tenant's RSA keys for a short period.
type jwksCache struct {
	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func (c *jwksCache) key(ctx domain.Context, baseURL, kid string) (*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.fetchedAt) > jwksCacheTTL || c.keys == nil {
		if err := c.refresh(ctx, baseURL); err != nil {
			return nil, err
		}
	}
	k, ok := c.keys[kid]
	if !ok {
		// The tenant may have rotated keys since the last fetch.
		if err := c.refresh(ctx, baseURL); err != nil {
			return nil, err
		}
		if k, ok = c.keys[kid]; !ok {
			return nil, fmt.Errorf("unknown signing key %q", kid)
		}
	}
	return k, nil
}

func (c *jwksCache) refresh(ctx domain.Context, baseURL string) error {
	client := &http.Client{Timeout: jwksFetchTimeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/.well-known/jwks.json", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("op=auth.jwks: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("op=auth.jwks: status %d", resp.StatusCode)
	}

	var doc struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("op=auth.jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		nb, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		eb, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nb),
			E: int(new(big.Int).SetBytes(eb).Int64()),
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("op=auth.jwks: no usable keys")
	}
	c.keys = keys
	c.fetchedAt = time.Now()
	return nil
}
