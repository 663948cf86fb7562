package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jwksServer(t *testing.T, key *rsa.PrivateKey, kid string, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		json.NewEncoder(w).Encode(jwkSet{Keys: []jwk{{
			Kty: "RSA",
			Kid: kid,
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
}

func signGoogleToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestVerifyIDToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	var hits int32
	srv := jwksServer(t, key, "k1", &hits)
	defer srv.Close()

	client := NewGoogleJWKSClient(srv.URL)
	token := signGoogleToken(t, key, "k1", jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            "client-123",
		"sub":            "google-sub-1",
		"email":          "ama@example.com",
		"email_verified": true,
		"given_name":     "Ama",
		"exp":            time.Now().Add(time.Hour).Unix(),
	})

	claims, err := client.VerifyIDToken(context.Background(), token, "client-123")
	require.NoError(t, err)
	assert.Equal(t, "google-sub-1", claims.Subject)
	assert.Equal(t, "ama@example.com", claims.Email)
	assert.True(t, claims.Verified())

	// second verification is served from the key cache
	_, err = client.VerifyIDToken(context.Background(), token, "client-123")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestVerifyIDTokenRejects(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	var hits int32
	srv := jwksServer(t, key, "k1", &hits)
	defer srv.Close()
	client := NewGoogleJWKSClient(srv.URL)

	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"iss": "accounts.google.com",
			"aud": "client-123",
			"sub": "s",
			"exp": time.Now().Add(time.Hour).Unix(),
		}
	}

	wrongAud := base()
	wrongAud["aud"] = "someone-else"
	_, err = client.VerifyIDToken(context.Background(), signGoogleToken(t, key, "k1", wrongAud), "client-123")
	assert.Error(t, err)

	wrongIss := base()
	wrongIss["iss"] = "https://evil.example.com"
	_, err = client.VerifyIDToken(context.Background(), signGoogleToken(t, key, "k1", wrongIss), "client-123")
	assert.Error(t, err)

	expired := base()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	_, err = client.VerifyIDToken(context.Background(), signGoogleToken(t, key, "k1", expired), "client-123")
	assert.Error(t, err)

	_, err = client.VerifyIDToken(context.Background(), signGoogleToken(t, key, "unknown", base()), "client-123")
	assert.Error(t, err)
}
