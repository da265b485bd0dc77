package provsign

import "errors"

var (
	ErrNoCertificate  = errors.New("signer has no certificate configured")
	ErrKeyMismatch    = errors.New("private key does not match the certificate's public key")
	ErrHSMSession     = errors.New("hsm session could not be established")
	ErrHSMSignFailed  = errors.New("hsm signing operation failed")
	ErrUnsupportedKey = errors.New("signer key is not an ECDSA P-256 key")
)
