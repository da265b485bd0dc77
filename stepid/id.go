package stepid

import "encoding/base64"

// NextIDString mints the next id and renders it as a URL-safe base64 string
// suitable for use directly as a step's "id" field.
func (m *Minter) NextIDString() (string, error) {
	id, err := m.NextID()
	if err != nil {
		return "", err
	}
	return EncodeID(id), nil
}

// EncodeID renders a minted id as the URL-safe, unpadded base64 string used
// on the wire.
func EncodeID(id uint64) string {
	buf := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		buf[i] = byte(id)
		id >>= 8
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
