package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const adminContextKey contextKey = "admin"

const (
	jwtClaimRole = "role"
	roleAdmin    = "admin"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Auth issues and verifies admin bearer tokens. The engine has a single
// privileged role: admins drive the lifecycle and see unrevealed results,
// everyone else gets the public, censored view.
type Auth struct {
	secret   []byte
	tokenTTL time.Duration
}

func NewAuth(secret string, tokenTTL time.Duration) *Auth {
	return &Auth{secret: []byte(secret), tokenTTL: tokenTTL}
}

func (a *Auth) IssueAdminToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		jwtClaimRole: roleAdmin,
		"iat":        now.Unix(),
		"exp":        now.Add(a.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Auth) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// Annotate marks the request context as admin when a valid admin token is
// present. It never rejects: anonymous requests pass through and read the
// public view.
func (a *Auth) Annotate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			if claims, err := a.parse(token); err == nil {
				if role, _ := claims[jwtClaimRole].(string); role == roleAdmin {
					r = r.WithContext(context.WithValue(r.Context(), adminContextKey, true))
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests that do not carry a valid admin token.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.parse(bearerToken(r))
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if role, _ := claims[jwtClaimRole].(string); role != roleAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		ctx := context.WithValue(r.Context(), adminContextKey, true)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IsAdmin reports whether the request context carries admin privileges.
func IsAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(adminContextKey).(bool)
	return admin
}
