package provsign

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// FileSigner wraps a MemorySigner loaded from PEM files on disk: an
// EC PRIVATE KEY (or PKCS#8) block for the key, and one or more
// CERTIFICATE blocks, leaf first, for the chain.
type FileSigner struct {
	*MemorySigner
}

// NewFileSigner reads keyPath and chainPath and builds a signer from
// their contents.
func NewFileSigner(keyPath, chainPath string) (*FileSigner, error) {
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading signing key: %w", err)
	}
	chainPEM, err := os.ReadFile(chainPath)
	if err != nil {
		return nil, fmt.Errorf("reading certificate chain: %w", err)
	}

	key, err := parsePrivateKey(keyPEM)
	if err != nil {
		return nil, err
	}
	chain, err := parseCertificateChain(chainPEM)
	if err != nil {
		return nil, err
	}

	mem, err := NewMemorySigner(key, chain)
	if err != nil {
		return nil, err
	}
	return &FileSigner{MemorySigner: mem}, nil
}

func parsePrivateKey(raw []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in signing key file")
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing signing key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, ErrUnsupportedKey
	}
	return key, nil
}

func parseCertificateChain(raw []byte) ([]*x509.Certificate, error) {
	var chain []*x509.Certificate
	rest := raw
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing certificate chain: %w", err)
		}
		chain = append(chain, cert)
	}
	if len(chain) == 0 {
		return nil, ErrNoCertificate
	}
	return chain, nil
}
