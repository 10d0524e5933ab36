// Package codec encodes hookstat wire values as JSON or msgpack.
// JSON streams are newline-delimited; msgpack streams are concatenated values.
package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the wire encoding.
type Format string

const (
	JSON    Format = "json"
	Msgpack Format = "msgpack"
)

// ParseFormat converts a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json", "ndjson", "":
		return JSON, nil
	case "msgpack", "mpk":
		return Msgpack, nil
	default:
		return "", fmt.Errorf("invalid codec: %q (expected: json|msgpack)", s)
	}
}

// FormatForPath picks the format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mpk":
		return Msgpack
	default:
		return JSON
	}
}

// Marshal encodes v.
func Marshal(f Format, v any) ([]byte, error) {
	switch f {
	case Msgpack:
		return msgpack.Marshal(v)
	case JSON:
		return json.Marshal(v)
	default:
		return nil, fmt.Errorf("unknown codec: %q", f)
	}
}

// Unmarshal decodes data into v.
func Unmarshal(f Format, data []byte, v any) error {
	switch f {
	case Msgpack:
		return msgpack.Unmarshal(data, v)
	case JSON:
		return json.Unmarshal(data, v)
	default:
		return fmt.Errorf("unknown codec: %q", f)
	}
}

// Encoder writes a stream of values.
type Encoder interface {
	Encode(v any) error
}

// Decoder reads a stream of values. Decode returns io.EOF at the end of the stream.
type Decoder interface {
	Decode(v any) error
}

// NewEncoder returns a stream encoder for f.
func NewEncoder(w io.Writer, f Format) Encoder {
	if f == Msgpack {
		return msgpack.NewEncoder(w)
	}
	return json.NewEncoder(w)
}

// NewDecoder returns a stream decoder for f.
func NewDecoder(r io.Reader, f Format) Decoder {
	if f == Msgpack {
		return msgpack.NewDecoder(r)
	}
	return json.NewDecoder(r)
}
