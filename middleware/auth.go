package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"naskahcollab/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the verified caller behind a request.
type Identity struct {
	UserID      string
	DisplayName string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the verified identity, or ok=false for anonymous requests.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

var errNoToken = errors.New("no token provided")

type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func tokenFrom(r *http.Request) string {
	// For WebSockets, tokens are often passed in the query string
	// because the browser's WebSocket API doesn't support custom headers.
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func (a *Authenticator) verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, errNoToken
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		if len(a.secret) == 0 {
			return nil, errors.New("server is not configured to validate JWTs")
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("could not parse token claims")
	}
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return Identity{}, errors.New("user ID (sub) claim is missing or invalid")
	}
	return Identity{UserID: userID, DisplayName: displayName(claims, userID)}, nil
}

func displayName(claims jwt.MapClaims, fallback string) string {
	for _, key := range []string{"name", "username", "email"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	if meta, ok := claims["user_metadata"].(map[string]interface{}); ok {
		if v, ok := meta["full_name"].(string); ok && v != "" {
			return v
		}
	}
	return fallback
}

// AuthMiddleware rejects requests without a valid token.
func (a *Authenticator) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.verify(tokenFrom(r))
		if errors.Is(err, errNoToken) {
			http.Error(w, "Unauthorized: No token provided", http.StatusUnauthorized)
			return
		}
		if err != nil {
			logger.Sugar.Warnf("Invalid token: %v", err)
			http.Error(w, "Unauthorized: Invalid or expired token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// OptionalAuth lets requests without a token through as anonymous. A token that is
// present but invalid is still rejected.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.verify(tokenFrom(r))
		if errors.Is(err, errNoToken) {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			logger.Sugar.Warnf("Invalid token: %v", err)
			http.Error(w, "Unauthorized: Invalid or expired token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
