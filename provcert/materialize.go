package provcert

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// CertEntry is one certificate as carried in a record's certificates map:
// its own PEM bytes, plus the serial of the certificate that issued it, so
// a chain can be walked back towards a trusted root one link at a time.
// Issuer is empty for a certificate the provider is expected to resolve
// against its trusted roots directly.
type CertEntry struct {
	PEM    string
	Issuer string
}

// MaterializeChain walks entries from serial back towards its root,
// returning the chain in leaf-to-issuer order (serial's own certificate
// first). It makes two passes: the first walks the issuer links building
// the serial order and detecting cycles, the second parses each entry's
// PEM bytes, so a cycle is reported before any parsing work is wasted on
// a chain that can never terminate.
func MaterializeChain(serial string, entries map[string]CertEntry) ([]*x509.Certificate, error) {
	order, err := walkIssuerChain(serial, entries)
	if err != nil {
		return nil, err
	}

	chain := make([]*x509.Certificate, 0, len(order))
	for _, s := range order {
		cert, err := parsePEMCertificate(entries[s].PEM)
		if err != nil {
			return nil, fmt.Errorf("serial %s: %w", s, err)
		}
		chain = append(chain, cert)
	}
	return chain, nil
}

// walkIssuerChain returns the serials from serial up to and including the
// first serial whose entry has no issuer link, failing if the same serial
// is encountered twice.
func walkIssuerChain(serial string, entries map[string]CertEntry) ([]string, error) {
	var order []string
	visited := make(map[string]bool)

	current := serial
	for {
		if visited[current] {
			return nil, fmt.Errorf("serial %s: %w", current, ErrCertPathCycle)
		}
		visited[current] = true

		entry, ok := entries[current]
		if !ok {
			return nil, fmt.Errorf("serial %s: %w", current, ErrCertNotFound)
		}
		order = append(order, current)

		if entry.Issuer == "" {
			return order, nil
		}
		current = entry.Issuer
	}
}

// parsePEMCertificate decodes a single PEM-encoded certificate block.
func parsePEMCertificate(raw string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(raw))
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, ErrMalformedChain
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedChain, err)
	}
	return cert, nil
}

// MergeCertEntries combines certificate maps gathered from multiple
// records into one, failing if the same serial resolves to two different
// certificates rather than silently preferring one.
func MergeCertEntries(into map[string]CertEntry, from map[string]CertEntry) error {
	for serial, entry := range from {
		existing, ok := into[serial]
		if !ok {
			into[serial] = entry
			continue
		}
		if existing.PEM != entry.PEM || existing.Issuer != entry.Issuer {
			return fmt.Errorf("serial %s: %w", serial, ErrCertConflict)
		}
	}
	return nil
}
