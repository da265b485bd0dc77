// Package provcert resolves the public key a provenance record's
// signature block should be verified against, having first checked that
// the signer's certificate chains to a trusted root as of the signature's
// own sign timestamp rather than wall-clock-at-verification time.
//
// Two Provider implementations are offered: SelfContainedProvider, which
// resolves a certificate chain embedded directly in the record's
// certificates map, and DirectoryProvider, which resolves certificates
// from a local directory keyed by serial. Both share a ChainVerifier that
// performs the actual x509 chain validation and signature algorithm check.
package provcert
