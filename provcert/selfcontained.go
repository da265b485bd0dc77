package provcert

import (
	"crypto"
	"time"
)

// SelfContainedProvider resolves certificates from the record's own
// embedded certificates map: every certificate a verifier needs is
// carried alongside the record, so verification works offline and
// independently of whatever directory structure the verifying party
// happens to keep its trust material in.
type SelfContainedProvider struct {
	verifier *ChainVerifier
	entries  map[string]CertEntry
}

// NewSelfContainedProvider builds a provider trusting roots, resolving
// leaf and intermediate certificates from entries.
func NewSelfContainedProvider(roots []byte, entries map[string]CertEntry) (*SelfContainedProvider, error) {
	rootCerts, err := parsePEMCertificateBundle(roots)
	if err != nil {
		return nil, err
	}
	verifier, err := NewChainVerifier(rootCerts)
	if err != nil {
		return nil, err
	}
	return &SelfContainedProvider{verifier: verifier, entries: entries}, nil
}

func (p *SelfContainedProvider) resolve(serial string, signTimestamp time.Time) (resolvedCert, error) {
	chain, err := MaterializeChain(serial, p.entries)
	if err != nil {
		return resolvedCert{}, err
	}
	return p.verifier.Verify(chain[0], chain[1:], signTimestamp)
}

// PublicKey satisfies provrecord.CertificateProvider.
func (p *SelfContainedProvider) PublicKey(serial string, signTimestamp time.Time) (crypto.PublicKey, error) {
	rc, err := p.resolve(serial, signTimestamp)
	if err != nil {
		return nil, err
	}
	return rc.leaf.PublicKey, nil
}

// SignerInfo satisfies Provider.
func (p *SelfContainedProvider) SignerInfo(serial string, signTimestamp time.Time) (SignerInfo, error) {
	rc, err := p.resolve(serial, signTimestamp)
	if err != nil {
		return SignerInfo{}, err
	}
	return rc.info, nil
}
