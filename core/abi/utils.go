package abi

import (
	"bytes"
	"encoding/hex"
	"io"
	"strings"
)

// jsonReader adapts a json.RawMessage to the io.Reader gethabi.JSON expects.
func jsonReader(raw []byte) io.Reader {
	return bytes.NewReader(raw)
}

// decodeHexMaybe0x decodes a hex string that may or may not carry a 0x
// prefix, returning nil for an empty string.
func decodeHexMaybe0x(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
