package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
)

const actorKey contextKey = "actor"

// ActorClaims are the bearer token claims. The subject is the user id.
type ActorClaims struct {
	Role     string `json:"role"`
	ClinicID string `json:"clinic_id"`
	jwt.RegisteredClaims
}

// ActorJWT verifies an HMAC-signed bearer token and stores the caller as a
// directory.Actor in the request context.
func ActorJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeError(w, http.StatusUnauthorized, "auth_disabled", "authentication is not configured")
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing_token", "missing authorization header")
				return
			}

			actor, err := parseActorToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_token", err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseActorToken(secret, tokenString string) (directory.Actor, error) {
	claims := ActorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return directory.Actor{}, errors.New("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return directory.Actor{}, errors.New("subject must be a user id")
	}
	role, ok := directory.ParseRole(claims.Role)
	if !ok {
		return directory.Actor{}, errors.New("unknown role")
	}
	clinicID, err := uuid.Parse(claims.ClinicID)
	if err != nil {
		return directory.Actor{}, errors.New("clinic_id must be a uuid")
	}

	return directory.Actor{UserID: userID, Role: role, ClinicID: clinicID}, nil
}

// SignActorToken issues a token for actor. Used by local tooling and tests.
func SignActorToken(secret string, actor directory.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ActorClaims{
		Role:     string(actor.Role),
		ClinicID: actor.ClinicID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ActorFromContext returns the authenticated caller if present.
func ActorFromContext(ctx context.Context) (directory.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(directory.Actor)
	return actor, ok
}
