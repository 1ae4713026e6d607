package auth

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/kru-ai/kru/pkg/apperrors"
	"github.com/kru-ai/kru/pkg/models"
	"github.com/kru-ai/kru/pkg/session"
)

// CookieName is the cookie checked when no Authorization header is present.
const CookieName = "access_token"

// Identity is the authenticated principal attached to a request context.
type Identity struct {
	UserID string
	Email  string
	Role   models.Role
}

type ctxKey struct{}

// WithIdentity returns ctx enriched with the identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFromContext extracts the identity set by the middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// ExtractToken pulls the credential from the request: Authorization bearer
// header, then cookie, then the token query parameter. First match wins.
func ExtractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}

// Middleware authenticates requests against the verifier and the session
// manager.
type Middleware struct {
	verifier *Verifier
	sessions *session.Manager
}

// NewMiddleware creates the auth middleware.
func NewMiddleware(v *Verifier, sm *session.Manager) *Middleware {
	return &Middleware{verifier: v, sessions: sm}
}

// authenticate runs the full chain: extract, verify, session load. The
// session lookup is authoritative: a revoked session rejects a token whose
// signature is still valid.
func (m *Middleware) authenticate(r *http.Request) (Identity, error) {
	token := ExtractToken(r)
	if token == "" {
		return Identity{}, apperrors.New(apperrors.TokenRequired, "access token required")
	}

	claims, err := m.verifier.Verify(token)
	if err != nil {
		return Identity{}, err
	}

	sess, ok, err := m.sessions.Load(r.Context(), token)
	if err != nil {
		// The store being down must not lock every user out; the signed
		// token alone still vouches for the identity.
		log.Printf("auth: session lookup degraded: %v", err)
		return Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
	}
	if !ok {
		return Identity{}, apperrors.New(apperrors.SessionExpired, "session expired")
	}

	return Identity{UserID: sess.UserID, Email: sess.Email, Role: sess.Role}, nil
}

// Require rejects unauthenticated requests with a 401 envelope.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.authenticate(r)
		if err != nil {
			apperrors.WriteHTTP(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Optional attaches an identity when a valid credential is present and
// degrades to an anonymous request otherwise. It never blocks.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ExtractToken(r) != "" {
			if id, err := m.authenticate(r); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole guards a route with a set of acceptable roles. It assumes
// Require already ran; a missing identity is an authentication failure
// (401), a disallowed role an authorization failure (403).
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				apperrors.WriteHTTP(w, r, apperrors.New(apperrors.AuthenticationRequired, "authentication required"))
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			apperrors.WriteHTTP(w, r, apperrors.Newf(apperrors.InsufficientPermissions,
				"access denied for role %q", id.Role))
		})
	}
}
