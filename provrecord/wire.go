package provrecord

import (
	"encoding/json"
	"fmt"

	"github.com/icebreakerone/provenance/provcert"
)

// wireEnvelope is the outermost JSON object a record is transmitted as:
// the accumulated origins, the signed container itself under "steps", and
// an optional bundle of certificates the signers along the chain chose to
// embed for self-contained verification. certificates is addressed by
// serial rather than nested inside the container, since it is side
// information about the signatures rather than part of what they cover.
type wireEnvelope struct {
	Origins      []string                       `json:"origins,omitempty"`
	Steps        json.RawMessage                `json:"steps"`
	Certificates map[string]provcert.CertEntry `json:"certificates,omitempty"`
}

// marshalEnvelope renders entries, origins and certs as the outer wire
// envelope.
func marshalEnvelope(entries entryList, origins []string, certs map[string]provcert.CertEntry) ([]byte, error) {
	stepsJSON, err := marshalContainer(entries)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEnvelope{
		Origins:      origins,
		Steps:        stepsJSON,
		Certificates: certs,
	})
}

// unmarshalEnvelope parses the outer wire envelope, falling back to
// treating raw as a bare container array, with no origins or
// certificates, for records serialized without the envelope wrapper.
func unmarshalEnvelope(raw []byte) (entryList, []string, map[string]provcert.CertEntry, error) {
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Steps) > 0 {
		entries, err := decodeEntryList(env.Steps)
		if err != nil {
			return nil, nil, nil, err
		}
		return entries, env.Origins, env.Certificates, nil
	}

	entries, err := decodeEntryList(raw)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: not a valid container or envelope", ErrMalformedRecord)
	}
	return entries, nil, nil, nil
}
