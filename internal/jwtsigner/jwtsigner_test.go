package jwtsigner

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, s *Signer) {
	t.Helper()
	signed, err := s.Sign(jwt.RegisteredClaims{Subject: "alice", Issuer: "rdapi"})
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.NewParser(jwt.WithValidMethods([]string{s.Alg()})).ParseWithClaims(signed, claims, s.Keyfunc)
	require.NoError(t, err)
	assert.True(t, tok.Valid)
	assert.Equal(t, "alice", claims.Subject)
}

func TestSigners(t *testing.T) {
	hs, err := New("hs256", "secret", "")
	require.NoError(t, err)
	assert.Equal(t, "HS256", hs.Alg())
	roundTrip(t, hs)

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	ed, err := New("EdDSA", base64.StdEncoding.EncodeToString(priv), "k1")
	require.NoError(t, err)
	assert.Equal(t, "EdDSA", ed.Alg())
	roundTrip(t, ed)

	ephemeral, err := NewEd25519FromBase64("", "")
	require.NoError(t, err)
	roundTrip(t, ephemeral)
}

func TestSignersRejectBadInput(t *testing.T) {
	_, err := New("HS256", "", "")
	assert.Error(t, err)
	_, err = New("RS256", "x", "")
	assert.Error(t, err)
	_, err = NewEd25519FromBase64("not base64!", "")
	assert.Error(t, err)
	_, err = NewEd25519FromBase64(base64.StdEncoding.EncodeToString([]byte("short")), "")
	assert.Error(t, err)
}

func TestForeignKeyIsRejected(t *testing.T) {
	a, err := NewHS256([]byte("a"))
	require.NoError(t, err)
	b, err := NewHS256([]byte("b"))
	require.NoError(t, err)

	signed, err := a.Sign(jwt.RegisteredClaims{Subject: "alice"})
	require.NoError(t, err)
	_, err = jwt.NewParser(jwt.WithValidMethods([]string{b.Alg()})).Parse(signed, b.Keyfunc)
	assert.Error(t, err)
}
