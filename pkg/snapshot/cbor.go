package snapshot

import (
	"encoding/json"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/surrealdb/surrealoutline/internal/codec"
)

type CustomCBORTag uint64

var (
	// DocumentTag marks a snapshot document, so that a reader can tell a snapshot
	// from any other CBOR file before decoding it.
	DocumentTag CustomCBORTag = 61001
)

func registerCborTags() cbor.TagSet {
	customTags := map[CustomCBORTag]any{
		DocumentTag: Snapshot{},
	}

	tags := cbor.NewTagSet()
	for tag, customType := range customTags {
		err := tags.Add(
			cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired},
			reflect.TypeOf(customType),
			uint64(tag),
		)
		if err != nil {
			panic(err)
		}
	}

	return tags
}

// CborCodec is the default snapshot format.
type CborCodec struct{}

func (CborCodec) Name() string { return "cbor" }

func (CborCodec) Marshal(v any) ([]byte, error) {
	return getCborEncoder().Marshal(v)
}

func (CborCodec) NewEncoder(w io.Writer) codec.Encoder {
	return getCborEncoder().NewEncoder(w)
}

func (CborCodec) Unmarshal(data []byte, dst any) error {
	return getCborDecoder().Unmarshal(data, dst)
}

func (CborCodec) NewDecoder(r io.Reader) codec.Decoder {
	return getCborDecoder().NewDecoder(r)
}

func getCborEncoder() cbor.EncMode {
	em, err := cbor.EncOptions{
		Sort:    cbor.SortCanonical,
		Time:    cbor.TimeRFC3339,
		TimeTag: cbor.EncTagRequired,
	}.EncModeWithTags(registerCborTags())
	if err != nil {
		panic(err)
	}
	return em
}

func getCborDecoder() cbor.DecMode {
	dm, err := cbor.DecOptions{
		TimeTagToAny: cbor.TimeTagToTime,
	}.DecModeWithTags(registerCborTags())
	if err != nil {
		panic(err)
	}
	return dm
}

// JSONCodec writes indented JSON, for snapshots meant to be read by people.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (JSONCodec) NewEncoder(w io.Writer) codec.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc
}

func (JSONCodec) Unmarshal(data []byte, dst any) error {
	return json.Unmarshal(data, dst)
}

func (JSONCodec) NewDecoder(r io.Reader) codec.Decoder {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec
}

var (
	_ codec.Codec = CborCodec{}
	_ codec.Codec = JSONCodec{}
)
