package provcert

import (
	"crypto"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DirectoryProvider resolves certificates from a local directory rather
// than from the record itself: each serial's leaf-to-root chain is read
// from <dir>/<serial>.pem. This suits a verifying party that keeps its
// own curated trust material rather than relying on whatever the signer
// chose to embed.
//
// Chain validity is re-checked against signTimestamp on every call, since
// a cached pass/fail would go stale as soon as a caller verifies records
// signed at two different times against the same serial. Only the parsed
// certificate bytes are cached, not the verification outcome.
type DirectoryProvider struct {
	verifier *ChainVerifier
	dir      string

	mu    sync.Mutex
	chains map[string][]*x509.Certificate
}

// NewDirectoryProvider builds a provider trusting roots, resolving
// certificate chains from PEM files under dir.
func NewDirectoryProvider(roots []byte, dir string) (*DirectoryProvider, error) {
	rootCerts, err := parsePEMCertificateBundle(roots)
	if err != nil {
		return nil, err
	}
	verifier, err := NewChainVerifier(rootCerts)
	if err != nil {
		return nil, err
	}
	return &DirectoryProvider{
		verifier: verifier,
		dir:      dir,
		chains:   make(map[string][]*x509.Certificate),
	}, nil
}

func (p *DirectoryProvider) loadChain(serial string) ([]*x509.Certificate, error) {
	p.mu.Lock()
	if chain, ok := p.chains[serial]; ok {
		p.mu.Unlock()
		return chain, nil
	}
	p.mu.Unlock()

	path := filepath.Join(p.dir, serial+".pem")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", serial, ErrCertNotFound, err)
	}
	chain, err := parsePEMCertificateBundle(raw)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.chains[serial] = chain
	p.mu.Unlock()
	return chain, nil
}

func (p *DirectoryProvider) resolve(serial string, signTimestamp time.Time) (resolvedCert, error) {
	chain, err := p.loadChain(serial)
	if err != nil {
		return resolvedCert{}, err
	}
	return p.verifier.Verify(chain[0], chain[1:], signTimestamp)
}

// PublicKey satisfies provrecord.CertificateProvider.
func (p *DirectoryProvider) PublicKey(serial string, signTimestamp time.Time) (crypto.PublicKey, error) {
	rc, err := p.resolve(serial, signTimestamp)
	if err != nil {
		return nil, err
	}
	return rc.leaf.PublicKey, nil
}

// SignerInfo satisfies Provider.
func (p *DirectoryProvider) SignerInfo(serial string, signTimestamp time.Time) (SignerInfo, error) {
	rc, err := p.resolve(serial, signTimestamp)
	if err != nil {
		return SignerInfo{}, err
	}
	return rc.info, nil
}
