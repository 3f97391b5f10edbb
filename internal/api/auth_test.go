package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
)

func echoActor() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"user_id":   actor.UserID.String(),
			"role":      string(actor.Role),
			"clinic_id": actor.ClinicID.String(),
		})
	})
}

func TestActorJWTAcceptsSignedToken(t *testing.T) {
	actor := testActor(directory.RoleDoctor)
	token, err := SignActorToken(testSecret, actor, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	ActorJWT(testSecret)(echoActor()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), actor.UserID.String())
	assert.Contains(t, rec.Body.String(), `"role":"Doctor"`)
}

func TestActorJWTRejects(t *testing.T) {
	actor := testActor(directory.RolePatient)

	expired, err := SignActorToken(testSecret, actor, -time.Minute)
	require.NoError(t, err)
	foreign, err := SignActorToken("other-secret", actor, time.Minute)
	require.NoError(t, err)
	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, ActorClaims{
		Role:     "Nurse",
		ClinicID: actor.ClinicID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		header string
		code   string
	}{
		{"no header", testSecret, "", "missing_token"},
		{"not bearer", testSecret, "Basic abc", "missing_token"},
		{"garbage", testSecret, "Bearer abc.def.ghi", "invalid_token"},
		{"expired", testSecret, "Bearer " + expired, "invalid_token"},
		{"wrong secret", testSecret, "Bearer " + foreign, "invalid_token"},
		{"unknown role", testSecret, "Bearer " + badRole, "invalid_token"},
		{"no secret configured", "", "Bearer " + foreign, "auth_disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			ActorJWT(tt.secret)(echoActor()).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
		})
	}
}
