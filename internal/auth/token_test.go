package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytebank/backend/internal/auth"
)

func TestTokens_IssueAndParse(t *testing.T) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	userID := uuid.New()

	raw, err := tokens.Issue(userID)
	require.NoError(t, err)

	got, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestTokens_ParseRejectsExpired(t *testing.T) {
	tokens := auth.NewTokens("test-secret", -time.Minute)

	raw, err := tokens.Issue(uuid.New())
	require.NoError(t, err)

	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokens_ParseRejectsWrongSecret(t *testing.T) {
	issued, err := auth.NewTokens("secret-a", time.Hour).Issue(uuid.New())
	require.NoError(t, err)

	_, err = auth.NewTokens("secret-b", time.Hour).Parse(issued)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokens_ParseRejectsGarbage(t *testing.T) {
	_, err := auth.NewTokens("test-secret", time.Hour).Parse("not.a.token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	userID := uuid.New()

	raw, err := tokens.Issue(userID)
	require.NoError(t, err)

	var gotID uuid.UUID

	handler := auth.Middleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.UserID(r.Context())
		require.True(t, ok)
		gotID = id
	}))

	t.Run("BearerHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+raw)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, gotID)
	})

	t.Run("QueryParam", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?token="+raw, nil)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, gotID)
	})

	t.Run("Missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Invalid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
