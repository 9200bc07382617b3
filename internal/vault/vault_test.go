package vault

import (
	"crypto/x509"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestHasher() *Hasher {
	h := NewHasher()
	h.SetCost(bcrypt.MinCost)
	return h
}

func TestHashAndCheck(t *testing.T) {
	h := newTestHasher()

	hashed, err := h.Hash("password123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if hashed == "password123" {
		t.Fatal("hash should not equal plaintext")
	}
	if !IsHash(hashed) {
		t.Errorf("expected bcrypt hash, got %q", hashed)
	}
	if !h.Check("password123", hashed) {
		t.Error("correct password rejected")
	}
	if h.Check("password124", hashed) {
		t.Error("wrong password accepted")
	}
}

func TestCheckLegacyPlaintext(t *testing.T) {
	h := newTestHasher()
	if !h.Check("secret", "secret") {
		t.Error("plaintext match rejected")
	}
	if h.Check("Secret", "secret") {
		t.Error("plaintext comparison must be exact")
	}
	if h.Check("", "") {
		t.Error("empty stored password must never match")
	}
}

func TestGenerateSelfSignedCert(t *testing.T) {
	cert, err := GenerateSelfSignedCert()
	if err != nil {
		t.Fatalf("Failed to generate self-signed cert: %v", err)
	}

	if len(cert.Certificate) == 0 {
		t.Fatal("Generated certificate is empty")
	}

	if cert.PrivateKey == nil {
		t.Fatal("Generated private key is nil")
	}

	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("certificate does not parse: %v", err)
	}
	if err := parsed.VerifyHostname("localhost"); err != nil {
		t.Errorf("certificate not valid for localhost: %v", err)
	}
}
