package provsign

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"fmt"

	"github.com/veraison/go-cose"
)

// MemorySigner holds a private key and certificate chain entirely in
// process memory. It suits tests and short-lived batch jobs; anything
// that should survive a process restart belongs in FileSigner or, for
// keys that must never leave dedicated hardware, HSMSigner.
type MemorySigner struct {
	key   *ecdsa.PrivateKey
	chain []*x509.Certificate
}

// NewMemorySigner builds a signer from an already-loaded key and the
// leaf-to-root certificate chain for it. chain[0] must be the leaf whose
// public key matches key.
func NewMemorySigner(key *ecdsa.PrivateKey, chain []*x509.Certificate) (*MemorySigner, error) {
	if len(chain) == 0 {
		return nil, ErrNoCertificate
	}
	leafKey, ok := chain[0].PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, ErrUnsupportedKey
	}
	if leafKey.X.Cmp(key.PublicKey.X) != 0 || leafKey.Y.Cmp(key.PublicKey.Y) != 0 {
		return nil, ErrKeyMismatch
	}
	return &MemorySigner{key: key, chain: chain}, nil
}

// Serial satisfies Signer.
func (s *MemorySigner) Serial() string {
	return s.chain[0].SerialNumber.String()
}

// CertificatesForRecord satisfies Signer.
func (s *MemorySigner) CertificatesForRecord() ([]*x509.Certificate, error) {
	return s.chain, nil
}

// Sign satisfies Signer.
func (s *MemorySigner) Sign(data []byte) ([]byte, error) {
	signer, err := cose.NewSigner(cose.AlgorithmES256, s.key)
	if err != nil {
		return nil, fmt.Errorf("constructing signer: %w", err)
	}
	return signer.Sign(rand.Reader, data)
}
