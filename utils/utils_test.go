package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "user")
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "tablebook", claims.Issuer)
}

func TestParseTokenRejectsForeignKeyAndAlg(t *testing.T) {
	claims := &CustomClaims{UserID: 1, Role: "admin", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = ParseToken(forged)
	assert.Error(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken(unsigned)
	assert.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	original := TokenTTL
	TokenTTL = -time.Minute
	t.Cleanup(func() { TokenTTL = original })

	token, err := GenerateToken(1, "user")
	require.NoError(t, err)
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestRevokeToken(t *testing.T) {
	original := TokenTTL
	TokenTTL = 3 * time.Hour
	t.Cleanup(func() { TokenTTL = original })

	token, err := GenerateToken(9, "user")
	require.NoError(t, err)
	require.NoError(t, RevokeToken(token))

	_, err = ParseToken(token)
	assert.EqualError(t, err, "token has been revoked")
	assert.Error(t, RevokeToken(token))
}

func TestTokenBlacklistCleanup(t *testing.T) {
	b := NewTokenBlacklist()
	b.Revoke("expired", time.Now().Add(-time.Second))
	b.Revoke("live", time.Now().Add(time.Hour))

	assert.Equal(t, 1, b.Cleanup())
	assert.True(t, b.IsRevoked("live"))
	assert.False(t, b.IsRevoked("expired"))
}

func TestRespondValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondValidation(c, http.StatusUnprocessableEntity, "Num people exceeds the table's capacity",
		[]map[string]string{{"field": "num_people", "message": "exceeds the table's capacity"}})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Errors []map[string]string `json:"errors"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Status)
	assert.Equal(t, "num_people", body.Data.Errors[0]["field"])
}

func TestRespondJSONAndError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondJSON(c, http.StatusCreated, "ok", gin.H{"id": 1})
	assert.JSONEq(t, `{"status":true,"message":"ok","data":{"id":1}}`, w.Body.String())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	RespondError(c, http.StatusNotFound, errors.New("record not found"))
	assert.JSONEq(t, `{"status":false,"message":"record not found"}`, w.Body.String())
}

func TestInitLogger(t *testing.T) {
	InitLogger("debug")
	assert.Equal(t, "debug", InfoLogger.GetLevel().String())
	InitLogger("nonsense")
	assert.Equal(t, "info", InfoLogger.GetLevel().String())
}
