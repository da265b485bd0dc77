package provrecord

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// entryList is the generic shape a container, or a signature block, takes
// once decoded from JSON: a slice whose elements are either strings
// (encoded steps, certificate serials, base64url signatures, ISO-8601
// timestamps), numbers (the container format version), or further nested
// entryLists (a wrapped sub-container, or a signature block in trailing
// position).
//
// Using json.Number (rather than the default float64) keeps the container
// format version as the exact decimal text it was written with, which
// matters because the canonical serializer emits that text verbatim and
// rejects any other numeric type.
type entryList []any

// decodeEntryList parses raw JSON into an entryList, preserving the
// distinction between strings, numbers and nested arrays that the
// canonical serializer depends on.
func decodeEntryList(raw json.RawMessage) (entryList, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding container: %w: %v", ErrMalformedRecord, err)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("container is not a JSON array: %w", ErrMalformedRecord)
	}
	return normalizeEntryList(list)
}

// normalizeEntryList recursively walks a generically-decoded JSON value,
// asserting that every element is a string, a json.Number, or a further
// array, and converts nested arrays into entryList so the recursion is
// typed all the way down.
func normalizeEntryList(v []any) (entryList, error) {
	out := make(entryList, len(v))
	for i, e := range v {
		switch t := e.(type) {
		case string, json.Number:
			out[i] = t
		case []any:
			nested, err := normalizeEntryList(t)
			if err != nil {
				return nil, err
			}
			out[i] = nested
		default:
			return nil, fmt.Errorf("unexpected container element %T: %w", e, ErrMalformedRecord)
		}
	}
	return out, nil
}
