package provcert

// Policy controls whether signing should automatically embed a signer's
// certificate chain into the record it produces: true for self-contained
// records, which travel with everything a verifier needs; false for
// directory-backed records, which stay smaller on the wire and leave
// verifiers to resolve the chain out of band.
type Policy interface {
	PolicyIncludeCertificatesInRecord() bool
}

type selfContainedPolicy struct{}

func (selfContainedPolicy) PolicyIncludeCertificatesInRecord() bool { return true }

type directoryPolicy struct{}

func (directoryPolicy) PolicyIncludeCertificatesInRecord() bool { return false }

// SelfContainedPolicy embeds the signer's certificate chain into every
// record it signs.
var SelfContainedPolicy Policy = selfContainedPolicy{}

// DirectoryPolicy never embeds certificates, leaving verifiers to resolve
// the signer's chain from a shared directory such as DirectoryProvider.
var DirectoryPolicy Policy = directoryPolicy{}
