package provrecord

import (
	"encoding/json"
	"fmt"
	"strings"
)

// dataForSigning builds the canonical, prefix-free byte sequence that a
// Signer signs and a verifier re-derives to check a signature. It walks
// data generically: a string is emitted as itself, a json.Number is
// emitted as its decimal digits, and any nested entryList (including a
// previously-sealed signature block found in trailing position) is wrapped
// in "%...&" and recursed into with no additional tail. additional, when
// present, is appended unwrapped after the wrapped elements of data and is
// only ever non-empty at the outermost call for the level currently being
// signed: [format version, signer serial, signTimestamp].
//
// This mirrors the reference serializer element for element, including the
// seemingly redundant double-wrapping that results when a nested
// container's own signature block is walked one level down: the recursion
// does not special-case a trailing signature block, it is just another
// entryList.
func dataForSigning(data entryList, additional []string) (string, error) {
	gather := make([]string, 0, len(data)+len(additional))
	for _, e := range data {
		switch t := e.(type) {
		case string:
			gather = append(gather, t)
		case json.Number:
			gather = append(gather, t.String())
		case entryList:
			nested, err := dataForSigning(t, nil)
			if err != nil {
				return "", err
			}
			gather = append(gather, "%", nested, "&")
		default:
			return "", fmt.Errorf("entry of type %T cannot be canonically serialized: %w", e, ErrMalformedRecord)
		}
	}
	gather = append(gather, additional...)
	return strings.Join(gather, "."), nil
}
