// Package statefile encodes the city record store as the state.json document
// kept in the cloud folders.
package statefile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/eintrusts/MahacapV2/internal/domain"
)

// DefaultFilename of the persisted document inside a folder.
const DefaultFilename = "state.json"

// MimeType of the persisted document.
const MimeType = "application/json"

// ErrDecode marks a document that could not be parsed. Callers treat it as
// "no prior state".
var ErrDecode = errors.New("state decode failed")

// Encode renders recs as UTF-8 JSON with 2-space indentation. Non-ASCII and
// HTML characters are written as-is.
func Encode(recs domain.CityRecords) ([]byte, error) {
	if recs == nil {
		recs = domain.CityRecords{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recs); err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a document produced by Encode. Any failure wraps ErrDecode.
func Decode(b []byte) (domain.CityRecords, error) {
	var recs domain.CityRecords
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if recs == nil {
		return nil, fmt.Errorf("%w: document is not an object", ErrDecode)
	}
	return recs, nil
}
