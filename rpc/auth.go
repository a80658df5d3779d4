package rpc

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"routevault/crypto"
)

type contextKey string

const (
	contextKeyCaller contextKey = "caller"
	contextKeyRole   contextKey = "role"
)

// Role is the authorization level carried by a bearer token.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleUser     Role = "user"
)

var allowedRoles = map[Role]struct{}{
	RoleAdmin:    {},
	RoleOperator: {},
	RoleUser:     {},
}

var errInvalidToken = errors.New("rpc: invalid bearer token")

// Authenticator verifies HS256 bearer tokens and resolves the caller
// address from the token subject.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator constructs an Authenticator over a shared HS256 secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// MintToken issues a signed token for the given subject address and role.
// Exposed for operational tooling and tests.
func (a *Authenticator) MintToken(subject [20]byte, role Role, ttl time.Duration) (string, error) {
	if _, ok := allowedRoles[role]; !ok {
		return "", errInvalidToken
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  crypto.EncodeAddress(subject),
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	})
	return token.SignedString(a.secret)
}

func (a *Authenticator) parse(r *http.Request) ([20]byte, Role, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return [20]byte{}, "", errInvalidToken
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errInvalidToken
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return [20]byte{}, "", errInvalidToken
	}
	subject, err := claims.GetSubject()
	if err != nil {
		return [20]byte{}, "", errInvalidToken
	}
	caller, err := crypto.DecodeAddress(subject)
	if err != nil {
		return [20]byte{}, "", errInvalidToken
	}
	roleClaim, _ := claims["role"].(string)
	role := Role(roleClaim)
	if _, ok := allowedRoles[role]; !ok {
		return [20]byte{}, "", errInvalidToken
	}
	return caller, role, nil
}

// Middleware enforces the bearer token and, when roles are given, that the
// token's role is one of them. The caller address is stored on the request
// context.
func (a *Authenticator) Middleware(roles ...Role) func(http.Handler) http.Handler {
	required := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		required[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, role, err := a.parse(r)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if len(required) > 0 {
				if _, ok := required[role]; !ok {
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
			}
			ctx := context.WithValue(r.Context(), contextKeyCaller, caller)
			ctx = context.WithValue(ctx, contextKeyRole, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallerFromContext returns the authenticated caller address.
func CallerFromContext(ctx context.Context) ([20]byte, bool) {
	caller, ok := ctx.Value(contextKeyCaller).([20]byte)
	return caller, ok
}

// RoleFromContext returns the authenticated token role.
func RoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(contextKeyRole).(Role)
	return role, ok
}
