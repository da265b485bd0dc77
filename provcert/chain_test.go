package provcert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// selfSignedRoot builds a minimal self-signed CA certificate valid over
// [notBefore, notAfter], for tests that need a trust anchor without
// touching the filesystem or a real CA.
func selfSignedRoot(t *testing.T, notBefore, notAfter time.Time) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test Root CA"},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key
}

// leafSignedBy issues a leaf certificate under root, encoding member and
// roles the way a trust-framework root CA would.
func leafSignedBy(t *testing.T, root *x509.Certificate, rootKey *ecdsa.PrivateKey, serial int64, member string, roles []string, notBefore, notAfter time.Time) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject: pkix.Name{
			CommonName:         member,
			OrganizationalUnit: roles,
		},
		NotBefore:   notBefore,
		NotAfter:    notAfter,
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, root, &key.PublicKey, rootKey)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key
}

func pemEncode(cert *x509.Certificate) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}))
}

func TestChainVerifier_ValidatesAsOfSignTimestamp(t *testing.T) {
	rootNotBefore := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	rootNotAfter := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	root, rootKey := selfSignedRoot(t, rootNotBefore, rootNotAfter)

	leafNotBefore := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	leafNotAfter := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	leaf, _ := leafSignedBy(t, root, rootKey, 42, "IB1.member.example", []string{"data-holder"}, leafNotBefore, leafNotAfter)

	verifier, err := NewChainVerifier([]*x509.Certificate{root})
	require.NoError(t, err)

	// Within the leaf's validity window: verifies.
	rc, err := verifier.Verify(leaf, nil, time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "IB1.member.example", rc.info.Member)
	require.Equal(t, []string{"data-holder"}, rc.info.Roles)

	// Long after the leaf expired, but signTimestamp still pins to when it
	// was current: still verifies.
	rc, err = verifier.Verify(leaf, nil, time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "IB1.member.example", rc.info.Member)

	// Before the leaf existed: fails.
	_, err = verifier.Verify(leaf, nil, time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, ErrChainInvalid)
}

func TestMaterializeChain_DetectsCycle(t *testing.T) {
	entries := map[string]CertEntry{
		"1": {PEM: "irrelevant", Issuer: "2"},
		"2": {PEM: "irrelevant", Issuer: "1"},
	}
	_, err := MaterializeChain("1", entries)
	require.ErrorIs(t, err, ErrCertPathCycle)
}

func TestMaterializeChain_ReportsMissingSerial(t *testing.T) {
	entries := map[string]CertEntry{
		"1": {PEM: "irrelevant", Issuer: "2"},
	}
	_, err := MaterializeChain("1", entries)
	require.ErrorIs(t, err, ErrCertNotFound)
}

func TestSelfContainedProvider_ResolvesChain(t *testing.T) {
	now := time.Now()
	root, rootKey := selfSignedRoot(t, now.Add(-time.Hour), now.Add(time.Hour))
	leaf, _ := leafSignedBy(t, root, rootKey, 7, "IB1.member.example", []string{"data-holder"}, now.Add(-time.Minute), now.Add(time.Hour))

	provider, err := NewSelfContainedProvider([]byte(pemEncode(root)), map[string]CertEntry{
		"7": {PEM: pemEncode(leaf)},
	})
	require.NoError(t, err)

	pubKey, err := provider.PublicKey("7", now)
	require.NoError(t, err)
	require.NotNil(t, pubKey)

	info, err := provider.SignerInfo("7", now)
	require.NoError(t, err)
	require.Equal(t, "IB1.member.example", info.Member)
}

func TestMergeCertEntries_DetectsConflict(t *testing.T) {
	into := map[string]CertEntry{"1": {PEM: "a"}}
	from := map[string]CertEntry{"1": {PEM: "b"}}
	err := MergeCertEntries(into, from)
	require.ErrorIs(t, err, ErrCertConflict)
}
