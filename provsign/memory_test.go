package provsign

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/veraison/go-cose"
)

func selfSignedLeaf(t *testing.T) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(99),
		Subject:      pkix.Name{CommonName: "IB1.member.example"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IsCA:         true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key
}

func TestMemorySigner_SignVerifyRoundTrip(t *testing.T) {
	cert, key := selfSignedLeaf(t)
	signer, err := NewMemorySigner(key, []*x509.Certificate{cert})
	require.NoError(t, err)
	require.Equal(t, "99", signer.Serial())

	sig, err := signer.Sign([]byte("some canonical bytes"))
	require.NoError(t, err)

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, &key.PublicKey)
	require.NoError(t, err)
	require.NoError(t, verifier.Verify([]byte("some canonical bytes"), sig))
}

func TestNewMemorySigner_RejectsMismatchedKey(t *testing.T) {
	cert, _ := selfSignedLeaf(t)
	otherKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	_, err = NewMemorySigner(otherKey, []*x509.Certificate{cert})
	require.ErrorIs(t, err, ErrKeyMismatch)
}

func TestNewMemorySigner_RejectsEmptyChain(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	_, err = NewMemorySigner(key, nil)
	require.ErrorIs(t, err, ErrNoCertificate)
}
