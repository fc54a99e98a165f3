// Package auth verifies bearer tokens issued by the identity service and
// carries the authenticated caller through the request context.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"timeledger/internal/apperr"
	"timeledger/internal/i18n"
	"timeledger/internal/model"
)

// Caller is the authenticated identity a request runs as.
type Caller struct {
	UserID string
	Email  string
	Role   model.Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == model.RoleAdmin
}

// System is the authority the background sweep runs with.
var System = Caller{UserID: "system", Role: model.RoleAdmin}

type ctxKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(ctxKey{}).(Caller)
	return c, ok
}

// AccessClaims mirrors the identity service's access token payload.
type AccessClaims struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses an HS256 access token and returns its caller.
func (v *Verifier) Verify(token string) (Caller, error) {
	parsed, err := jwt.ParseWithClaims(token, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Caller{}, errors.Wrap(err, "parse token")
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return Caller{}, errors.New("invalid claims")
	}
	if claims.Subject == "" {
		return Caller{}, errors.New("token has no subject")
	}
	role := claims.Role
	if role != model.RoleAdmin {
		role = model.RoleMember
	}
	return Caller{UserID: claims.Subject, Email: claims.Email, Role: role}, nil
}

// Sign issues a token for c. Used by tests and local tooling; production tokens come
// from the identity service.
func (v *Verifier) Sign(c Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Email: c.Email,
		Role:  c.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Middleware rejects requests without a valid bearer token and stores the caller in the context.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(w, r, apperr.Unauthenticated("auth.err.token_required"))
			return
		}
		caller, err := v.Verify(parts[1])
		if err != nil {
			log.WithError(err).WithField("path", r.URL.Path).Debug("rejected bearer token")
			unauthorized(w, r, apperr.Unauthenticated("auth.err.token_invalid"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

// unauthorized writes the same JSON error shape the API handlers use, localized by the
// locale already on the request context.
func unauthorized(w http.ResponseWriter, r *http.Request, e *apperr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	body := struct {
		Error string      `json:"error"`
		Kind  apperr.Kind `json:"kind"`
	}{Error: i18n.T(r.Context(), e.Key), Kind: e.Kind}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("encode unauthorized response")
	}
}
