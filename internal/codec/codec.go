// Package codec holds the encoding interfaces snapshot formats implement.
package codec

import "io"

type Encoder interface {
	Encode(v any) error
}

type Decoder interface {
	Decode(v any) error
}

type Marshaler interface {
	Marshal(v any) ([]byte, error)
	NewEncoder(w io.Writer) Encoder
}

type Unmarshaler interface {
	Unmarshal(data []byte, dst any) error
	NewDecoder(r io.Reader) Decoder
}

// Codec is a named format that can both write and read.
type Codec interface {
	Marshaler
	Unmarshaler
	// Name is the format name, also used as the file extension.
	Name() string
}
