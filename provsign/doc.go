// Package provsign provides the Signer implementations a Builder needs to
// seal a provenance record: an in-memory key for tests and short-lived
// processes, a PEM-file-backed signer for a signer whose key lives on
// disk, and an HSM-backed signer that never exposes the private key to
// the process at all.
//
// Every variant implements the same minimal contract: report the
// certificate serial the resulting signature should be checked against,
// report the certificate chain to embed, and sign a block of bytes.
// Key management, rotation, and storage are each variant's own concern.
package provsign
