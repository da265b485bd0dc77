package provcert

import "errors"

var (
	ErrCertNotFound   = errors.New("no certificate found for the given serial")
	ErrChainInvalid   = errors.New("certificate does not chain to a trusted root")
	ErrCertConflict   = errors.New("certificate serial resolves to two different certificates")
	ErrCertPathCycle  = errors.New("certificate chain contains a cycle")
	ErrUnsupportedKey = errors.New("certificate public key is not an ECDSA P-256 key")
	ErrNoTrustedRoots = errors.New("no trusted root certificates were configured")
	ErrMalformedChain = errors.New("certificate chain entries could not be parsed")
)
