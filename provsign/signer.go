package provsign

import "crypto/x509"

// Signer produces signatures on behalf of one member's certificate within
// the trust framework. It is the contract provrecord.Builder.Sign needs;
// CertificatesForRecord additionally lets a caller embed the chain a
// SelfContainedProvider will need to verify it.
type Signer interface {
	// Serial returns the canonical decimal serial number of the signing
	// certificate.
	Serial() string
	// CertificatesForRecord returns the leaf-to-root chain that should be
	// embedded in a record signed with this signer, for self-contained
	// verification.
	CertificatesForRecord() ([]*x509.Certificate, error)
	// Sign returns the raw ECDSA signature over data.
	Sign(data []byte) ([]byte, error)
}
