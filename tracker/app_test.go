package tracker

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testAppKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return key, pemBytes
}

func TestMintAppJWT(t *testing.T) {
	key, pemBytes := testAppKey(t)

	signed, err := MintAppJWT(AppConfig{
		AppID:          12345,
		InstallationID: 99,
		PrivateKeyPEM:  pemBytes,
	})
	if err != nil {
		t.Fatalf("MintAppJWT: %v", err)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(token *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	})
	if err != nil {
		t.Fatalf("parse minted JWT: %v", err)
	}
	if !token.Valid {
		t.Error("minted JWT should be valid")
	}
	if claims.Issuer != "12345" {
		t.Errorf("issuer = %q, want %q", claims.Issuer, "12345")
	}

	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl > 10*time.Minute {
		t.Errorf("JWT lifetime %v exceeds GitHub's 10 minute ceiling", ttl)
	}
}

func TestMintAppJWT_BadKey(t *testing.T) {
	_, err := MintAppJWT(AppConfig{
		AppID:         1,
		PrivateKeyPEM: []byte("not a key"),
	})
	if err == nil {
		t.Error("expected error for malformed key")
	}
}
