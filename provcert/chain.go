package provcert

import (
	"crypto/ecdsa"
	"crypto/x509"
	"fmt"
	"strings"
	"time"
)

// ChainVerifier validates a leaf certificate against a fixed set of
// trusted roots, pinning the validation instant to the signature's own
// sign timestamp so a certificate that has since expired or been
// superseded still verifies signatures it made while it was current.
type ChainVerifier struct {
	roots *x509.CertPool
}

// NewChainVerifier builds a ChainVerifier trusting exactly the given root
// certificates.
func NewChainVerifier(roots []*x509.Certificate) (*ChainVerifier, error) {
	if len(roots) == 0 {
		return nil, ErrNoTrustedRoots
	}
	pool := x509.NewCertPool()
	for _, r := range roots {
		pool.AddCert(r)
	}
	return &ChainVerifier{roots: pool}, nil
}

// Verify checks that leaf chains to a trusted root through intermediates,
// as of signTimestamp, and that its public key is an algorithm this
// package knows how to verify signatures with.
func (v *ChainVerifier) Verify(leaf *x509.Certificate, intermediates []*x509.Certificate, signTimestamp time.Time) (resolvedCert, error) {
	pool := x509.NewCertPool()
	for _, c := range intermediates {
		pool.AddCert(c)
	}

	opts := x509.VerifyOptions{
		Roots:         v.roots,
		Intermediates: pool,
		CurrentTime:   signTimestamp,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}

	if _, err := leaf.Verify(opts); err != nil {
		return resolvedCert{}, fmt.Errorf("%s: %w: %v", leaf.Subject.CommonName, ErrChainInvalid, err)
	}

	if _, ok := leaf.PublicKey.(*ecdsa.PublicKey); !ok {
		return resolvedCert{}, fmt.Errorf("%s: %w", leaf.Subject.CommonName, ErrUnsupportedKey)
	}

	return resolvedCert{
		leaf: leaf,
		info: signerInfoFromCertificate(leaf),
	}, nil
}

// signerInfoFromCertificate extracts the trust-framework identity a root
// CA is expected to encode into a leaf certificate's subject: the member
// as the common name, roles as the organizational units, and the
// application, when present, as the first organization entry.
func signerInfoFromCertificate(leaf *x509.Certificate) SignerInfo {
	info := SignerInfo{
		Member: leaf.Subject.CommonName,
		Roles:  append([]string{}, leaf.Subject.OrganizationalUnit...),
	}
	if len(leaf.Subject.Organization) > 0 {
		info.Application = strings.TrimSpace(leaf.Subject.Organization[0])
	}
	return info
}
