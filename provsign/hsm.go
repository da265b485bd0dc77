package provsign

import (
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"sync"

	"github.com/miekg/pkcs11"
)

// HSMSigner signs by submitting a SHA-256 digest to a PKCS#11 token,
// never the private key material itself. A session is opened once at
// construction and guarded by a mutex, since PKCS#11 sessions are not
// safe for concurrent use from multiple goroutines.
type HSMSigner struct {
	ctx       *pkcs11.Ctx
	session   pkcs11.SessionHandle
	keyHandle pkcs11.ObjectHandle
	chain     []*x509.Certificate

	mu sync.Mutex
}

// NewHSMSigner opens modulePath, logs into the given slot with pin, and
// locates the private key object labeled keyLabel. chain is the
// leaf-to-root certificate chain to embed for self-contained
// verification; it is supplied by the caller because PKCS#11 tokens
// typically store only the key, not the certificate.
func NewHSMSigner(modulePath string, slot uint, pin, keyLabel string, chain []*x509.Certificate) (*HSMSigner, error) {
	if len(chain) == 0 {
		return nil, ErrNoCertificate
	}

	ctx := pkcs11.New(modulePath)
	if ctx == nil {
		return nil, fmt.Errorf("loading pkcs11 module %s: %w", modulePath, ErrHSMSession)
	}
	if err := ctx.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing pkcs11 module: %w: %v", ErrHSMSession, err)
	}

	session, err := ctx.OpenSession(slot, pkcs11.CKF_SERIAL_SESSION|pkcs11.CKF_RW_SESSION)
	if err != nil {
		ctx.Finalize()
		return nil, fmt.Errorf("opening pkcs11 session: %w: %v", ErrHSMSession, err)
	}
	if err := ctx.Login(session, pkcs11.CKU_USER, pin); err != nil {
		ctx.CloseSession(session)
		ctx.Finalize()
		return nil, fmt.Errorf("logging into pkcs11 session: %w: %v", ErrHSMSession, err)
	}

	template := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PRIVATE_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_LABEL, keyLabel),
	}
	if err := ctx.FindObjectsInit(session, template); err != nil {
		return nil, fmt.Errorf("finding signing key %s: %w: %v", keyLabel, ErrHSMSession, err)
	}
	handles, _, err := ctx.FindObjects(session, 1)
	ctx.FindObjectsFinal(session)
	if err != nil || len(handles) == 0 {
		return nil, fmt.Errorf("signing key %s not found: %w", keyLabel, ErrHSMSession)
	}

	return &HSMSigner{
		ctx:       ctx,
		session:   session,
		keyHandle: handles[0],
		chain:     chain,
	}, nil
}

// Close logs out, closes the session, and unloads the PKCS#11 module.
func (s *HSMSigner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx.Logout(s.session)
	s.ctx.CloseSession(s.session)
	s.ctx.Finalize()
	s.ctx.Destroy()
	return nil
}

// Serial satisfies Signer.
func (s *HSMSigner) Serial() string {
	return s.chain[0].SerialNumber.String()
}

// CertificatesForRecord satisfies Signer.
func (s *HSMSigner) CertificatesForRecord() ([]*x509.Certificate, error) {
	return s.chain, nil
}

// Sign hashes data locally and submits only the digest to the token,
// returning the raw r||s ECDSA signature bytes CKM_ECDSA produces.
func (s *HSMSigner) Sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	mechanism := []*pkcs11.Mechanism{pkcs11.NewMechanism(pkcs11.CKM_ECDSA, nil)}
	if err := s.ctx.SignInit(s.session, mechanism, s.keyHandle); err != nil {
		return nil, fmt.Errorf("initializing hsm signature: %w: %v", ErrHSMSignFailed, err)
	}
	sig, err := s.ctx.Sign(s.session, digest[:])
	if err != nil {
		return nil, fmt.Errorf("hsm signature: %w: %v", ErrHSMSignFailed, err)
	}
	return sig, nil
}
