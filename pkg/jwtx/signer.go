package jwtx

import (
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Supported signing algorithms.
const (
	AlgorithmEdDSA = "EdDSA"
	AlgorithmRS256 = "RS256"
)

// Signer signs claims into compact JWT strings. Key material is always
// supplied by the caller, never generated or hardcoded here, so keys can be
// swapped in tests and rotated operationally.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	Public() any
}

// NewSigner loads a PKCS8 PEM private key and returns a signer for the
// given algorithm.
func NewSigner(algorithm, kid string, pemKey []byte) (Signer, error) {
	switch algorithm {
	case AlgorithmEdDSA:
		return newEdDSASigner(kid, pemKey)
	case AlgorithmRS256:
		return newRS256Signer(kid, pemKey)
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q (supported: EdDSA, RS256)", algorithm)
	}
}

func parsePKCS8(pemKey []byte) (any, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM")
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("jwtx: expected PRIVATE KEY block, got %q", block.Type)
	}
	return x509.ParsePKCS8PrivateKey(block.Bytes)
}

type edDSASigner struct {
	kid string
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

func newEdDSASigner(kid string, pemKey []byte) (*edDSASigner, error) {
	priv, err := parsePKCS8(pemKey)
	if err != nil {
		return nil, err
	}
	key, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not an Ed25519 private key")
	}
	return &edDSASigner{
		kid: kid,
		key: key,
		pub: key.Public().(ed25519.PublicKey),
	}, nil
}

func (s *edDSASigner) Alg() string { return jwt.SigningMethodEdDSA.Alg() }
func (s *edDSASigner) KID() string { return s.kid }
func (s *edDSASigner) Public() any { return s.pub }

func (s *edDSASigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

type rs256Signer struct {
	kid string
	key *rsa.PrivateKey
}

func newRS256Signer(kid string, pemKey []byte) (*rs256Signer, error) {
	priv, err := parsePKCS8(pemKey)
	if err != nil {
		return nil, err
	}
	key, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not an RSA private key")
	}
	return &rs256Signer{kid: kid, key: key}, nil
}

func (s *rs256Signer) Alg() string { return jwt.SigningMethodRS256.Alg() }
func (s *rs256Signer) KID() string { return s.kid }
func (s *rs256Signer) Public() any { return &s.key.PublicKey }

func (s *rs256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}
