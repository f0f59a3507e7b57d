package auth

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

func jwksServer(t *testing.T, kid string, pub *rsa.PublicKey, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		_ = json.NewEncoder(w).Encode(JWKS{Keys: []JSONWebKey{{
			Kid: kid,
			Kty: "RSA",
			Alg: "RS256",
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}}})
	}))
}

func TestProviderValidatesRS256Token(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	var hits int32
	srv := jwksServer(t, "k1", &priv.PublicKey, &hits)
	defer srv.Close()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"sub": "auth0|abc", "exp": time.Now().Add(time.Hour).Unix()})
	tok.Header["kid"] = "k1"
	signed, err := tok.SignedString(priv)
	require.NoError(t, err)

	p := NewProvider(srv.URL)
	parsed, err := jwt.Parse(signed, p.KeyFunc)
	require.NoError(t, err)
	assert.True(t, parsed.Valid)

	// second validation is served from cache
	_, err = jwt.Parse(signed, p.KeyFunc)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestProviderUnknownKidIsThrottled(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	var hits int32
	srv := jwksServer(t, "k1", &priv.PublicKey, &hits)
	defer srv.Close()

	p := NewProvider(srv.URL)
	_, err = p.GetKey(context.Background(), "k1")
	require.NoError(t, err)

	_, err = p.GetKey(context.Background(), "rotated")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestKeyFuncRejectsHMAC(t *testing.T) {
	p := NewProvider("http://unused")
	tok := jwt.New(jwt.SigningMethodHS256)
	_, err := p.KeyFunc(tok)
	assert.Error(t, err)
}
