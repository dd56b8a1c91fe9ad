package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	SessionCookieName = "changemgmt_session"
	LoginPath         = "/Account/Login"
)

// Revoker tracks revoked session tokens by jti.
type Revoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Authenticator resolves principals from session cookies or bearer tokens
// and enforces policies.
type Authenticator struct {
	tokens  *TokenIssuer
	revoker Revoker
	log     logrus.FieldLogger
	secure  bool

	// Forbidden renders the 403 response for browser clients.
	Forbidden http.HandlerFunc
}

// NewAuthenticator builds an Authenticator. revoker may be nil, in which
// case logout only clears the cookie.
func NewAuthenticator(tokens *TokenIssuer, revoker Revoker, log logrus.FieldLogger, secureCookies bool) *Authenticator {
	return &Authenticator{
		tokens:  tokens,
		revoker: revoker,
		log:     log.WithField("component", "auth"),
		secure:  secureCookies,
	}
}

// Authenticate attaches the principal to the request context when a valid
// token is present. It never rejects; Require does.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		p, err := a.Resolve(r.Context(), token)
		if err != nil {
			a.log.WithError(err).Debug("ignoring session token")
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Resolve verifies token and checks it against the revocation list.
func (a *Authenticator) Resolve(ctx context.Context, token string) (*Principal, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	if a.revoker != nil {
		revoked, err := a.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			// Fail closed when the revocation list is unreachable.
			return nil, err
		}
		if revoked {
			return nil, ErrRevoked
		}
	}
	return claims.Principal(), nil
}

// Require rejects requests whose principal does not satisfy policy.
func (a *Authenticator) Require(policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				if WantsJSON(r) {
					writeJSONError(w, http.StatusUnauthorized, "authentication required")
					return
				}
				target := LoginPath + "?ReturnUrl=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
			if !p.Satisfies(policy) {
				a.log.WithFields(logrus.Fields{
					"user":   p.Username,
					"policy": policy.String(),
					"path":   r.URL.Path,
				}).Info("access denied")
				if WantsJSON(r) || a.Forbidden == nil {
					writeJSONError(w, http.StatusForbidden, "access denied")
					return
				}
				a.Forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SignIn issues a session token and sets the session cookie.
func (a *Authenticator) SignIn(w http.ResponseWriter, p *Principal) (*Claims, error) {
	token, claims, err := a.tokens.Issue(p.Username, p.Roles)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt.Time,
		MaxAge:   int(a.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return claims, nil
}

// SignOut revokes the principal's token, when a revocation list is
// configured, and clears the session cookie.
func (a *Authenticator) SignOut(ctx context.Context, w http.ResponseWriter, p *Principal) error {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteStrictMode,
	})
	if a.revoker == nil || p == nil || p.TokenID == "" {
		return nil
	}
	ttl := time.Until(p.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := a.revoker.RevokeToken(ctx, p.TokenID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// WantsJSON reports whether the client expects a JSON response.
func WantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasSuffix(r.URL.Path, "/GetAll")
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
