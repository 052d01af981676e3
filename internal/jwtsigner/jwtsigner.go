// Package jwtsigner holds the key material used to sign and verify access
// tokens, either a shared HS256 secret or an Ed25519 keypair.
package jwtsigner

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type Signer struct {
	method jwt.SigningMethod
	sign   any
	verify any
	KeyID  string
}

// NewHS256 signs with a shared secret.
func NewHS256(secret []byte) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty hs256 secret")
	}
	return &Signer{method: jwt.SigningMethodHS256, sign: secret, verify: secret}, nil
}

// NewEd25519FromBase64 creates a signer from base64-encoded ed25519 private
// key bytes. An empty key generates an ephemeral one.
func NewEd25519FromBase64(privB64, kid string) (*Signer, error) {
	var priv ed25519.PrivateKey
	if privB64 == "" {
		var err error
		if _, priv, err = ed25519.GenerateKey(rand.Reader); err != nil {
			return nil, err
		}
	} else {
		raw, err := base64.StdEncoding.DecodeString(privB64)
		if err != nil {
			return nil, err
		}
		if len(raw) != ed25519.PrivateKeySize {
			return nil, errors.New("invalid ed25519 private key size")
		}
		priv = ed25519.PrivateKey(raw)
	}
	return &Signer{
		method: jwt.SigningMethodEdDSA,
		sign:   priv,
		verify: priv.Public().(ed25519.PublicKey),
		KeyID:  kid,
	}, nil
}

// New picks the signer for alg: HS256 uses secret, EdDSA decodes it as a
// base64 ed25519 private key.
func New(alg, secret, kid string) (*Signer, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return NewHS256([]byte(secret))
	case "EDDSA", "ED25519":
		return NewEd25519FromBase64(secret, kid)
	default:
		return nil, fmt.Errorf("unsupported token algorithm %q", alg)
	}
}

func (s *Signer) Alg() string { return s.method.Alg() }

// Sign issues a JWT carrying claims.
func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	if s.KeyID != "" {
		t.Header["kid"] = s.KeyID
	}
	return t.SignedString(s.sign)
}

// Keyfunc returns the verification key for jwt parsers.
func (s *Signer) Keyfunc(*jwt.Token) (any, error) { return s.verify, nil }
