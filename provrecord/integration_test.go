package provrecord_test

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

	"github.com/icebreakerone/provenance/provcert"
	"github.com/icebreakerone/provenance/provrecord"
	"github.com/icebreakerone/provenance/provsign"
)

func issueChain(t *testing.T) (*x509.Certificate, *x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	rootKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	rootTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "IB1 Root CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	rootDER, err := x509.CreateCertificate(rand.Reader, rootTmpl, rootTmpl, &rootKey.PublicKey, rootKey)
	require.NoError(t, err)
	root, err := x509.ParseCertificate(rootDER)
	require.NoError(t, err)

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	leafTmpl := &x509.Certificate{
		SerialNumber:       big.NewInt(555),
		Subject:            pkix.Name{CommonName: "IB1.member.example", OrganizationalUnit: []string{"data-holder"}},
		NotBefore:          time.Now().Add(-time.Hour),
		NotAfter:           time.Now().Add(time.Hour),
		KeyUsage:           x509.KeyUsageDigitalSignature,
		ExtKeyUsage:        []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTmpl, root, &leafKey.PublicKey, rootKey)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(leafDER)
	require.NoError(t, err)

	return leaf, root, leafKey
}

func pemOf(cert *x509.Certificate) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}))
}

func TestEndToEnd_SelfContainedSignAndVerify(t *testing.T) {
	leaf, root, leafKey := issueChain(t)
	signer, err := provsign.NewMemorySigner(leafKey, []*x509.Certificate{leaf, root})
	require.NoError(t, err)

	step, err := provrecord.NewStep("id-1", time.Now(), map[string]any{
		"type":   "origin",
		"member": "IB1.member.example",
	}, []string{"type", "member"})
	require.NoError(t, err)

	b := provrecord.NewBuilder()
	require.NoError(t, b.AddStep(step))

	sealed, err := b.Sign(signer, provcert.SelfContainedPolicy, time.Now())
	require.NoError(t, err)
	require.Equal(t, []string{"id-1"}, sealed.Origins())

	raw, err := sealed.Marshal()
	require.NoError(t, err)

	parsed, err := provrecord.Unmarshal(raw)
	require.NoError(t, err)
	require.Equal(t, []string{"id-1"}, parsed.Origins())

	provider, err := provcert.NewSelfContainedProvider([]byte(pemOf(root)), parsed.Certificates())
	require.NoError(t, err)

	require.NoError(t, parsed.Verify(provider))

	steps, err := parsed.Decoded()
	require.NoError(t, err)
	require.Len(t, steps, 1)
	require.Equal(t, "IB1.member.example", steps[0].Map()["member"])

	sig, ok := steps[0].Signature()
	require.True(t, ok)
	require.Equal(t, "IB1.member.example", sig.Signed.Member)
	require.Equal(t, []string{"data-holder"}, sig.Signed.Roles)
	require.Empty(t, sig.IncludedBy)

	info, err := provider.SignerInfo("555", time.Now())
	require.NoError(t, err)
	require.Equal(t, []string{"data-holder"}, info.Roles)
}
