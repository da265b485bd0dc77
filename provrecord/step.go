package provrecord

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elliotchance/orderedmap/v3"
	"github.com/icebreakerone/provenance/provcert"
)

// reservedType is the one key every step must carry.
const reservedType = "type"

// reservedID is the key the container mints automatically; callers may
// never supply it themselves.
const reservedID = "id"

// reservedSignature is the verifier-attached key carrying a decoded
// step's signer identity and wrapping-signer stack. It never appears on
// the wire and is rejected like any other underscore-prefixed key if a
// caller tries to supply it themselves.
const reservedSignature = "_signature"

// Step is a single entry in a provenance record: an open schema key/value
// map describing one thing that happened. Step preserves the insertion
// order of its keys, because that order is part of the bytes a signature
// covers once the step is encoded into a container.
//
// signature is nil for every step the caller builds or that is decoded
// straight off the wire; Sealed.Verify attaches it once the step's
// signer identity and the stack of signers that later wrapped it are
// known. It is never part of the encoded/signed bytes.
type Step struct {
	fields    *orderedmap.OrderedMap[string, any]
	signature *StepSignature
}

// StepSignature is the verifier-attached `_signature` metadata: who
// originally signed the step, and the ordered stack of every signer
// whose enclosing container subsequently wrapped it, immediate wrapper
// first.
type StepSignature struct {
	Signed     provcert.SignerInfo
	IncludedBy []provcert.SignerInfo
}

// withSignature returns a copy of s carrying the given signature
// metadata.
func (s Step) withSignature(signed provcert.SignerInfo, includedBy []provcert.SignerInfo) Step {
	s.signature = &StepSignature{
		Signed:     signed,
		IncludedBy: append([]provcert.SignerInfo{}, includedBy...),
	}
	return s
}

// Signature returns the step's verifier-attached signature metadata, and
// whether it has been verified at all.
func (s Step) Signature() (StepSignature, bool) {
	if s.signature == nil {
		return StepSignature{}, false
	}
	return *s.signature, true
}

func signerInfoToMap(info provcert.SignerInfo) map[string]any {
	return map[string]any{
		"member":      info.Member,
		"roles":       info.Roles,
		"application": info.Application,
	}
}

func signatureToMap(sig StepSignature) map[string]any {
	includedBy := make([]map[string]any, len(sig.IncludedBy))
	for i, info := range sig.IncludedBy {
		includedBy[i] = signerInfoToMap(info)
	}
	return map[string]any{
		"signed":     signerInfoToMap(sig.Signed),
		"includedBy": includedBy,
	}
}

// NewStep builds a Step from caller-supplied fields, validating against
// the step schema rules: type is required, id may not be supplied by the
// caller, and no key may begin with an underscore. id and timestamp are
// minted and stamped onto the step in the order they are added, ahead of
// the caller's own fields, matching the reference encoder's field
// ordering.
func NewStep(id string, now time.Time, fields map[string]any, order []string) (Step, error) {
	if _, ok := fields[reservedType]; !ok {
		return Step{}, ErrStepMissingType
	}
	if _, ok := fields[reservedID]; ok {
		return Step{}, ErrStepHasID
	}
	for k := range fields {
		if strings.HasPrefix(k, "_") {
			return Step{}, fmt.Errorf("%s: %w", k, ErrStepReservedKey)
		}
	}

	om := orderedmap.NewOrderedMap[string, any]()
	om.Set(reservedID, id)
	om.Set("timestamp", now.UTC().Format(time.RFC3339Nano))
	for _, k := range order {
		v, ok := fields[k]
		if !ok {
			continue
		}
		om.Set(k, v)
	}

	return Step{fields: om}, nil
}

// Get returns the value stored under key and whether it was present.
// "_signature" is handled specially: it is never a field of the step
// itself, only the verifier-attached metadata surfaced by Signature.
func (s Step) Get(key string) (any, bool) {
	if key == reservedSignature {
		if s.signature == nil {
			return nil, false
		}
		return signatureToMap(*s.signature), true
	}
	if s.fields == nil {
		return nil, false
	}
	return s.fields.Get(key)
}

// Type returns the step's type discriminator.
func (s Step) Type() string {
	v, _ := s.Get(reservedType)
	t, _ := v.(string)
	return t
}

// ID returns the step's minted identifier.
func (s Step) ID() string {
	v, _ := s.Get(reservedID)
	id, _ := v.(string)
	return id
}

// Map returns the step's fields as a plain map, in no particular order,
// for callers that only want to inspect values rather than re-encode. A
// verified step additionally carries "_signature".
func (s Step) Map() map[string]any {
	out := make(map[string]any, s.fields.Len()+1)
	for k, v := range s.fields.AllFromFront() {
		out[k] = v
	}
	if s.signature != nil {
		out[reservedSignature] = signatureToMap(*s.signature)
	}
	return out
}

// EncodeStep renders a step to the wire form stored inside a container: a
// compact JSON object, base64url-encoded without padding.
func EncodeStep(s Step) (string, error) {
	ordered := make([]any, 0, s.fields.Len()*2)
	for k, v := range s.fields.AllFromFront() {
		ordered = append(ordered, k, v)
	}
	raw, err := marshalOrderedObject(ordered)
	if err != nil {
		return "", fmt.Errorf("encoding step: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeStep reverses EncodeStep, restoring field order from the encoded
// bytes so a decoded step remains byte-identical if re-encoded.
func DecodeStep(encoded string) (Step, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Step{}, fmt.Errorf("%w: bad base64: %v", ErrMalformedRecord, err)
	}

	keys, values, err := decodeOrderedObject(raw)
	if err != nil {
		return Step{}, err
	}

	om := orderedmap.NewOrderedMap[string, any]()
	for i, k := range keys {
		om.Set(k, values[i])
	}
	if _, ok := om.Get(reservedType); !ok {
		return Step{}, ErrStepMissingType
	}
	return Step{fields: om}, nil
}

// marshalOrderedObject renders alternating key, value pairs as a compact
// JSON object with keys emitted in the given order. encoding/json does not
// offer ordered-object marshaling directly, so the object is assembled as
// raw bytes.
func marshalOrderedObject(kv []any) ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i := 0; i < len(kv); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		key, _ := kv[i].(string)
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		valJSON, err := json.Marshal(kv[i+1])
		if err != nil {
			return nil, err
		}
		b.Write(keyJSON)
		b.WriteByte(':')
		b.Write(valJSON)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// decodeOrderedObject decodes a JSON object while recording the order its
// keys appeared in, using json.Decoder's token stream rather than
// unmarshaling into a map (which would discard order).
func decodeOrderedObject(raw []byte) ([]string, []any, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("%w: step is not a JSON object", ErrMalformedRecord)
	}

	var keys []string
	var values []any
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("%w: non-string step key", ErrMalformedRecord)
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		keys = append(keys, key)
		values = append(values, val)
	}
	return keys, values, nil
}
