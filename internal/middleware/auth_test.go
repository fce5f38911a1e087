package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func protectedEcho() (http.Handler, *string) {
	var seenUserID string
	handler := AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, ok := r.Context().Value("userID").(string); ok {
			seenUserID = userID
		}
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &seenUserID
}

func TestAuthMiddleware(t *testing.T) {
	viper.Set("jwt.secret_key", testSecret)
	InitAuthMiddleware(nil)

	t.Run("valid token", func(t *testing.T) {
		handler, seenUserID := protectedEcho()

		token := signTestToken(t, jwt.MapClaims{
			"user_id": "user-1",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/journal-entries/txn-1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "user-1", *seenUserID)
	})

	t.Run("missing header", func(t *testing.T) {
		handler, _ := protectedEcho()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/journal-entries/txn-1", nil)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		handler, _ := protectedEcho()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/journal-entries/txn-1", nil)
		req.Header.Set("Authorization", "Token abc")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("token signed with wrong key", func(t *testing.T) {
		handler, _ := protectedEcho()

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "user-1"})
		signed, err := token.SignedString([]byte("another-key"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/journal-entries/txn-1", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		handler, _ := protectedEcho()

		token := signTestToken(t, jwt.MapClaims{
			"user_id": "user-1",
			"exp":     time.Now().Add(-time.Hour).Unix(),
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/journal-entries/txn-1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("token without user id", func(t *testing.T) {
		handler, _ := protectedEcho()

		token := signTestToken(t, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/journal-entries/txn-1", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

func TestAuthMiddleware_RevokedToken(t *testing.T) {
	viper.Set("jwt.secret_key", testSecret)

	redisClient, redisMock := redismock.NewClientMock()
	InitAuthMiddleware(redisClient)
	defer InitAuthMiddleware(nil)

	token := signTestToken(t, jwt.MapClaims{
		"user_id": "user-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	redisMock.ExpectExists("revoked_token:" + token).SetVal(1)

	handler, _ := protectedEcho()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/journal-entries/txn-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
