package provcert

import (
	"crypto"
	"crypto/x509"
	"time"
)

// SignerInfo carries the trust-framework identity attached to a
// certificate, beyond the bare public key: which member the certificate
// was issued to, what roles it was issued for, and which application
// registered it, when the issuing root CA encodes that information into
// the certificate's subject or extensions.
type SignerInfo struct {
	Member      string
	Roles       []string
	Application string
}

// Provider resolves the public key and identity a signature block's
// serial should be verified against, having validated that the
// corresponding certificate chains to a trusted root as of signTimestamp.
// Its method set satisfies provrecord.CertificateProvider.
type Provider interface {
	PublicKey(serial string, signTimestamp time.Time) (crypto.PublicKey, error)
	SignerInfo(serial string, signTimestamp time.Time) (SignerInfo, error)
}

// resolvedCert bundles a validated leaf certificate with the identity
// information a ChainVerifier extracted from it.
type resolvedCert struct {
	leaf *x509.Certificate
	info SignerInfo
}
