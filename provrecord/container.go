package provrecord

import (
	"encoding/json"
	"fmt"
)

// containerFormatVersion is the only format version this package emits or
// accepts.
const containerFormatVersion = 0

// SigBlock is the trailing element of every container: the signer's
// identity and the signature covering everything that came before it.
type SigBlock struct {
	Version       int
	Serial        string
	SignTimestamp string
	Signature     string
}

// sigBlockEntries renders a SigBlock into the entryList form it takes as
// the last element of a container.
func sigBlockEntries(sb SigBlock) entryList {
	return entryList{
		json.Number(fmt.Sprintf("%d", sb.Version)),
		sb.Serial,
		sb.SignTimestamp,
		sb.Signature,
	}
}

// splitSigBlock separates a container's body entries from its trailing
// signature block, validating the signature block's shape.
func splitSigBlock(c entryList) (body entryList, sig SigBlock, err error) {
	if len(c) == 0 {
		return nil, SigBlock{}, fmt.Errorf("empty container: %w", ErrMalformedRecord)
	}
	last, ok := c[len(c)-1].(entryList)
	if !ok || len(last) != 4 {
		return nil, SigBlock{}, ErrInvalidSigBlock
	}

	versionNum, ok := last[0].(json.Number)
	if !ok {
		return nil, SigBlock{}, ErrInvalidSigBlock
	}
	version, err := versionNum.Int64()
	if err != nil {
		return nil, SigBlock{}, fmt.Errorf("%w: %v", ErrInvalidSigBlock, err)
	}
	if version != containerFormatVersion {
		return nil, SigBlock{}, fmt.Errorf("got version %d: %w", version, ErrUnknownVersion)
	}

	serial, ok := last[1].(string)
	if !ok {
		return nil, SigBlock{}, ErrInvalidSigBlock
	}
	signTimestamp, ok := last[2].(string)
	if !ok {
		return nil, SigBlock{}, ErrInvalidSigBlock
	}
	signature, ok := last[3].(string)
	if !ok {
		return nil, SigBlock{}, ErrInvalidSigBlock
	}
	if !isCanonicalSerial(serial) {
		return nil, SigBlock{}, fmt.Errorf("%s: %w", serial, ErrBadSerial)
	}

	return c[:len(c)-1], SigBlock{
		Version:       int(version),
		Serial:        serial,
		SignTimestamp: signTimestamp,
		Signature:     signature,
	}, nil
}

// isCanonicalSerial reports whether s is a non-negative decimal integer
// with no leading zero, the canonical form x509 serial numbers are
// rendered in within a signature block.
func isCanonicalSerial(s string) bool {
	if s == "" {
		return false
	}
	if s == "0" {
		return true
	}
	if s[0] == '0' {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// marshalContainer renders entries (body plus trailing signature block
// already appended) as compact JSON.
func marshalContainer(c entryList) ([]byte, error) {
	return json.Marshal([]any(c))
}
