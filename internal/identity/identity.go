// Package identity resolves the acting identity for audit attribution.
// Authentication and authorization are external collaborators; this package
// only extracts who is acting from credentials the edge already verified.
package identity

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"auditflow/pkg/requestcontext"
)

// ActorFromToken extracts the subject claim from a bearer token. The token's
// signature was verified at the edge; only the claims are read here.
func ActorFromToken(tokenString string) (string, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("parse bearer token: %w", err)
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("bearer token has no subject claim")
	}
	return subject, nil
}

// Middleware propagates the actor from the Authorization header into the
// request context. Requests without a usable identity pass through
// unattributed; the recorder falls back to the system actor.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actorID := actorFromRequest(r); actorID != "" {
			r = r.WithContext(requestcontext.WithActorID(r.Context(), actorID))
		}
		next.ServeHTTP(w, r)
	})
}

func actorFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	actorID, err := ActorFromToken(strings.TrimSpace(tokenString))
	if err != nil {
		return ""
	}
	return actorID
}
