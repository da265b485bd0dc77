package provcert

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// parsePEMCertificateBundle decodes every CERTIFICATE block in raw, in
// the order they appear.
func parsePEMCertificateBundle(raw []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
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
			return nil, fmt.Errorf("%w: %v", ErrMalformedChain, err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("no CERTIFICATE blocks found: %w", ErrMalformedChain)
	}
	return certs, nil
}
