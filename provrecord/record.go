package provrecord

import (
	"crypto"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/icebreakerone/provenance/provcert"
	"github.com/veraison/go-cose"
)

// Signer produces a signature over the canonical bytes of a record on
// behalf of one identified member of the trust framework. Concrete
// implementations live outside this package; Builder.Sign only needs this
// much of their contract. provsign.Signer's method set satisfies it
// structurally.
type Signer interface {
	// Serial returns the canonical decimal serial number of the
	// certificate the resulting signature should be verified against.
	Serial() string
	// CertificatesForRecord returns the leaf-to-root chain Sign should
	// embed when the certificate policy asks for it, or nil if this
	// signer has none to offer.
	CertificatesForRecord() ([]*x509.Certificate, error)
	// Sign returns the raw ECDSA signature over data.
	Sign(data []byte) ([]byte, error)
}

// CertificatePolicy reports whether Sign should automatically embed the
// signer's certificate chain into the record it produces.
// provcert.SelfContainedPolicy and provcert.DirectoryPolicy satisfy it.
type CertificatePolicy interface {
	PolicyIncludeCertificatesInRecord() bool
}

// CertificateProvider resolves the public key and trust-framework
// identity a signature block's serial and sign timestamp should be
// verified against, having already checked that serial chains to a
// trusted root as of signTimestamp. Concrete implementations live in the
// certificate provider package; Sealed.Verify only needs this much of
// their contract. provcert.Provider's method set satisfies it
// structurally.
type CertificateProvider interface {
	PublicKey(serial string, signTimestamp time.Time) (crypto.PublicKey, error)
	SignerInfo(serial string, signTimestamp time.Time) (provcert.SignerInfo, error)
}

// Builder accumulates steps and embedded records for one participant's
// contribution to a provenance record. It is mutable and unsigned; Sign
// consumes it and returns a Sealed record, after which the Builder must
// not be reused.
type Builder struct {
	body    entryList
	origins []string
	certs   map[string]provcert.CertEntry
	signed  bool
}

// NewBuilder starts an empty record.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddStep appends an already-validated, already-minted step to the
// record, in the order it was added.
func (b *Builder) AddStep(s Step) error {
	if b.signed {
		return fmt.Errorf("builder already signed: %w", ErrNotSigned)
	}
	encoded, err := EncodeStep(s)
	if err != nil {
		return err
	}
	b.body = append(b.body, encoded)
	return nil
}

// AddRecord embeds a record received from another member as a nested
// element: its entries, signature block included, are wrapped in full
// rather than flattened. The embedding record's origins absorb the
// embedded record's origins, so a chain of custody accumulates the full
// set of contributors regardless of nesting depth.
func (b *Builder) AddRecord(r *Sealed) error {
	if b.signed {
		return fmt.Errorf("builder already signed: %w", ErrNotSigned)
	}
	if r == nil || r.entries == nil {
		return ErrNotARecord
	}
	b.body = append(b.body, r.entries)
	b.origins = mergeOrigins(b.origins, r.origins)
	if len(r.certs) > 0 {
		if b.certs == nil {
			b.certs = make(map[string]provcert.CertEntry, len(r.certs))
		}
		if err := provcert.MergeCertEntries(b.certs, r.certs); err != nil {
			return err
		}
	}
	return nil
}

// EmbedCertificates attaches certificates to the record, keyed by serial,
// so a SelfContainedProvider can verify it without consulting any
// external directory. entries maps each certificate's serial to itself
// and its issuer, last entry pointing at a root the verifier is expected
// to already trust. Sign calls this automatically when its
// CertificatePolicy asks for it; callers only need this directly to
// embed certificates Sign would not otherwise know about.
func (b *Builder) EmbedCertificates(entries map[string]provcert.CertEntry) error {
	if b.certs == nil {
		b.certs = make(map[string]provcert.CertEntry, len(entries))
	}
	return provcert.MergeCertEntries(b.certs, entries)
}

func mergeOrigins(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// originStepType is the step type whose id is accumulated into a
// record's origins.
const originStepType = "origin"

// deriveOrigins merges the origins inherited from embedded records with
// the id of every pending step of type "origin", matching the ordered
// concatenation sign() performs: inherited origins first, then origins
// minted at this level.
func (b *Builder) deriveOrigins() ([]string, error) {
	var minted []string
	for _, e := range b.body {
		encoded, ok := e.(string)
		if !ok {
			continue
		}
		step, err := DecodeStep(encoded)
		if err != nil {
			return nil, err
		}
		if step.Type() == originStepType {
			minted = append(minted, step.ID())
		}
	}
	return mergeOrigins(b.origins, minted), nil
}

// Sign signs the accumulated body with signer and returns the resulting
// Sealed record. If policy reports PolicyIncludeCertificatesInRecord,
// signer's certificate chain is embedded automatically; pass nil to skip
// this and rely on an explicit EmbedCertificates call instead. The
// Builder must not be used again afterwards.
func (b *Builder) Sign(signer Signer, policy CertificatePolicy, now time.Time) (*Sealed, error) {
	if b.signed {
		return nil, fmt.Errorf("builder already signed: %w", ErrNotSigned)
	}
	if len(b.body) == 0 {
		return nil, fmt.Errorf("record has no steps: %w", ErrMalformedRecord)
	}

	signTimestamp := now.UTC().Format(time.RFC3339Nano)
	serial := signer.Serial()
	if !isCanonicalSerial(serial) {
		return nil, fmt.Errorf("%s: %w", serial, ErrBadSerial)
	}

	if policy != nil && policy.PolicyIncludeCertificatesInRecord() {
		chain, err := signer.CertificatesForRecord()
		if err != nil {
			return nil, fmt.Errorf("resolving certificates to embed: %w", err)
		}
		if len(chain) > 0 {
			if err := b.EmbedCertificates(certChainToEntries(chain)); err != nil {
				return nil, err
			}
		}
	}

	origins, err := b.deriveOrigins()
	if err != nil {
		return nil, err
	}

	additional := []string{fmt.Sprintf("%d", containerFormatVersion), serial, signTimestamp}
	digestInput, err := dataForSigning(b.body, additional)
	if err != nil {
		return nil, err
	}

	rawSig, err := signer.Sign([]byte(digestInput))
	if err != nil {
		return nil, fmt.Errorf("signing record: %w", err)
	}

	sig := SigBlock{
		Version:       containerFormatVersion,
		Serial:        serial,
		SignTimestamp: signTimestamp,
		Signature:     base64.RawURLEncoding.EncodeToString(rawSig),
	}

	entries := append(append(entryList{}, b.body...), sigBlockEntries(sig))
	b.signed = true

	logger.Sugar.Debugf("signed record: serial=%s entries=%d signTimestamp=%s", serial, len(b.body), signTimestamp)

	return &Sealed{
		entries: entries,
		origins: origins,
		certs:   b.certs,
	}, nil
}

// certChainToEntries renders a leaf-to-root certificate chain as the
// serial-keyed entries a record's certificates map stores, each entry
// pointing at the serial of the certificate that issued it.
func certChainToEntries(chain []*x509.Certificate) map[string]provcert.CertEntry {
	entries := make(map[string]provcert.CertEntry, len(chain))
	for i, cert := range chain {
		entry := provcert.CertEntry{PEM: pemEncodeCert(cert)}
		if i+1 < len(chain) {
			entry.Issuer = chain[i+1].SerialNumber.String()
		}
		entries[cert.SerialNumber.String()] = entry
	}
	return entries
}

func pemEncodeCert(cert *x509.Certificate) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}))
}

// Sealed is an immutable, signed provenance record. It may be verified,
// decoded, embedded into a further record via the Builder it produces
// through Extend, or marshaled back onto the wire.
type Sealed struct {
	entries      entryList
	origins      []string
	certs        map[string]provcert.CertEntry
	verified     bool
	decodedSteps []Step
}

// Unmarshal parses a wire-format record envelope into a Sealed record
// without verifying it. Callers must call Verify before trusting its
// contents.
func Unmarshal(raw []byte) (*Sealed, error) {
	entries, origins, certs, err := unmarshalEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if _, _, err := splitSigBlock(entries); err != nil {
		return nil, err
	}
	return &Sealed{entries: entries, origins: origins, certs: certs}, nil
}

// Marshal renders the record back onto the wire, byte-identical to what
// was signed (assuming no step re-encoding has occurred), including its
// origins and any embedded certificate bundle.
func (s *Sealed) Marshal() ([]byte, error) {
	return marshalEnvelope(s.entries, s.origins, s.certs)
}

// Certificates returns the certificate bundle embedded in this record,
// keyed by serial, for building a SelfContainedProvider against it.
func (s *Sealed) Certificates() map[string]provcert.CertEntry {
	out := make(map[string]provcert.CertEntry, len(s.certs))
	for k, v := range s.certs {
		out[k] = v
	}
	return out
}

// SigBlock returns the record's own trailing signature block.
func (s *Sealed) SigBlock() (SigBlock, error) {
	_, sig, err := splitSigBlock(s.entries)
	return sig, err
}

// Verify recursively verifies this record's signature and the signature
// of every record it embeds, against the public key and identity
// provider resolves for each signature block's serial, each as of that
// block's own sign timestamp rather than wall-clock-at-verification. On
// success, the flat, order-preserving list of every step in the tree is
// available from Decoded, each annotated with the identity of the signer
// who first signed it and the stack of every signer whose enclosing
// container subsequently wrapped it. On any failure the record is left
// unverified.
func (s *Sealed) Verify(provider CertificateProvider) error {
	steps, err := verifyChain(s.entries, provider, nil)
	if err != nil {
		return err
	}
	s.verified = true
	s.decodedSteps = steps
	return nil
}

// verifyChain verifies one level of a container and returns the flat,
// ordered list of steps it and everything it embeds contain. includedBy
// is the stack of signers whose containers already wrap this level,
// immediate wrapper first; it is prepended with this level's own signer
// before recursing into anything this level embeds.
func verifyChain(entries entryList, provider CertificateProvider, includedBy []provcert.SignerInfo) ([]Step, error) {
	body, sig, err := splitSigBlock(entries)
	if err != nil {
		return nil, err
	}

	signTimestamp, err := time.Parse(time.RFC3339Nano, sig.SignTimestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: bad signTimestamp: %v", ErrMalformedRecord, err)
	}

	pubKey, err := provider.PublicKey(sig.Serial, signTimestamp)
	if err != nil {
		return nil, fmt.Errorf("resolving signer: %w", err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, pubKey)
	if err != nil {
		return nil, fmt.Errorf("constructing verifier: %w", err)
	}

	additional := []string{fmt.Sprintf("%d", sig.Version), sig.Serial, sig.SignTimestamp}
	digestInput, err := dataForSigning(body, additional)
	if err != nil {
		return nil, err
	}

	rawSig, err := base64.RawURLEncoding.DecodeString(sig.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: bad signature encoding: %v", ErrMalformedRecord, err)
	}

	if err := verifier.Verify([]byte(digestInput), rawSig); err != nil {
		logger.Sugar.Errorf("signature verification failed for serial %s: %v", sig.Serial, err)
		return nil, fmt.Errorf("signature does not verify: %w", err)
	}

	info, err := provider.SignerInfo(sig.Serial, signTimestamp)
	if err != nil {
		return nil, fmt.Errorf("resolving signer identity: %w", err)
	}
	logger.Sugar.Debugf("verified record: serial=%s member=%s signTimestamp=%s", sig.Serial, info.Member, sig.SignTimestamp)

	nestedIncludedBy := append([]provcert.SignerInfo{info}, includedBy...)

	var steps []Step
	for _, e := range body {
		switch t := e.(type) {
		case string:
			step, err := DecodeStep(t)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step.withSignature(info, includedBy))
		case entryList:
			nested, err := verifyChain(t, provider, nestedIncludedBy)
			if err != nil {
				return nil, err
			}
			steps = append(steps, nested...)
		default:
			return nil, fmt.Errorf("unexpected body element %T: %w", e, ErrMalformedRecord)
		}
	}
	return steps, nil
}

// Decoded returns the flat, order-preserving list of every step in the
// tree Verify walked, each carrying its "_signature" metadata. Requires
// Verify to have succeeded first.
func (s *Sealed) Decoded() ([]Step, error) {
	if !s.verified {
		return nil, ErrNotVerified
	}
	return append([]Step{}, s.decodedSteps...), nil
}

// Extend opens a fresh Builder seeded with this record embedded as its
// first element, ready for the next participant in the chain to add their
// own steps and sign.
func (s *Sealed) Extend() (*Builder, error) {
	b := NewBuilder()
	if err := b.AddRecord(s); err != nil {
		return nil, err
	}
	return b, nil
}

// Origins returns the set of step ids this record's chain of custody has
// accumulated for every step of type "origin", in first-seen order.
func (s *Sealed) Origins() []string {
	return append([]string{}, s.origins...)
}
