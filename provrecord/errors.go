package provrecord

import "errors"

// Sentinel errors, one per taxonomy kind named in the container's error
// handling design. Callers should match against these with errors.Is; wrap
// them with fmt.Errorf("...: %w", ...) at the call site for detail.
var (
	ErrMalformedRecord = errors.New("malformed provenance record")
	ErrUnknownVersion  = errors.New("unrecognized container format version")
	ErrBadSerial       = errors.New("certificate serial is not a canonical decimal string")
	ErrStepReservedKey = errors.New("step may not contain keys beginning with an underscore")
	ErrStepHasID       = errors.New("step may not contain an id key, identifiers are allocated automatically")
	ErrStepMissingType = errors.New("step is missing the required type key")
	ErrNotSigned       = errors.New("record is not signed, call Sign and use the returned record")
	ErrNotVerified     = errors.New("record has not been verified, call Verify first")
	ErrStepNotFound    = errors.New("no step matched the given pattern")
	ErrNotARecord      = errors.New("argument is not a sealed provenance record")
	ErrInvalidSigBlock = errors.New("signature block has the wrong shape")
)
