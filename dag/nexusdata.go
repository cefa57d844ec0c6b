package dag

import (
	"encoding/json"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/nexuserrors"
)

// nexusDataInlineStorageTag is the hard-coded storage identifier meaning
// "this value can be parsed as-is, without dereferencing any storage
// backend".
const nexusDataInlineStorageTag = "inline"

// InlineData is an embedded JSON value, optionally flagged as encrypted
// (the caller is responsible for decrypting before handing it to a
// tool).
type InlineData struct {
	Data      json.RawMessage
	Encrypted bool
}

// RemoteData is a reference to data held in an external storage backend.
// The wire format for dereferencing remote storage is explicit future
// work upstream; this repository recognizes the variant on the wire
// (so a real document round-trips) but does not dereference it, mirroring
// spec.md §4.4.1's "the remote variant is observed but not dereferenced".
type RemoteData struct {
	Storage []byte
}

// NexusData is the tagged union of on-chain data representations: Inline
// (embedded) or Remote (a storage reference). Exactly one of Inline or
// Remote is set.
type NexusData struct {
	Inline *InlineData
	Remote *RemoteData
}

type nexusDataWire struct {
	Storage   []byte   `json:"storage"`
	Data      [][]byte `json:"data"`
	Encrypted bool     `json:"encrypted"`
}

// MarshalJSON renders the on-chain representation: {storage, data,
// encrypted} where storage is the inline tag and data is an array of
// JSON-encoded byte blobs (one per top-level array element, or a single
// blob for any non-array value).
func (d NexusData) MarshalJSON() ([]byte, error) {
	switch {
	case d.Inline != nil:
		var raw any
		if len(d.Inline.Data) > 0 {
			if err := json.Unmarshal(d.Inline.Data, &raw); err != nil {
				return nil, nexuserrors.Wrap(nexuserrors.KindValidation, err, "dag: invalid inline nexus data")
			}
		}
		blobs, err := jsonValueToByteArrays(raw)
		if err != nil {
			return nil, nexuserrors.Wrap(nexuserrors.KindValidation, err, "dag: failed to encode nexus data")
		}
		return json.Marshal(nexusDataWire{
			Storage:   []byte(nexusDataInlineStorageTag),
			Data:      blobs,
			Encrypted: d.Inline.Encrypted,
		})

	case d.Remote != nil:
		return json.Marshal(nexusDataWire{Storage: d.Remote.Storage})

	default:
		return nil, nexuserrors.Internal("dag: NexusData has neither Inline nor Remote set")
	}
}

// UnmarshalJSON inverts MarshalJSON, except that a one-element array comes
// back as its lone element (both encode to a single blob). A non-"inline"
// storage tag is recognized as Remote without attempting to dereference it.
func (d *NexusData) UnmarshalJSON(b []byte) error {
	var wire nexusDataWire
	if err := json.Unmarshal(b, &wire); err != nil {
		return nexuserrors.Wrap(nexuserrors.KindValidation, err, "dag: malformed nexus data")
	}

	if string(wire.Storage) != nexusDataInlineStorageTag {
		d.Remote = &RemoteData{Storage: wire.Storage}
		d.Inline = nil
		return nil
	}

	value, err := byteArraysToJSONValue(wire.Data)
	if err != nil {
		return nexuserrors.Wrap(nexuserrors.KindValidation, err, "dag: malformed inline nexus data")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nexuserrors.Wrap(nexuserrors.KindValidation, err, "dag: failed to re-encode inline nexus data")
	}

	d.Inline = &InlineData{Data: raw, Encrypted: wire.Encrypted}
	d.Remote = nil
	return nil
}

func jsonValueToByteArrays(v any) ([][]byte, error) {
	if arr, ok := v.([]any); ok {
		out := make([][]byte, len(arr))
		for i, elem := range arr {
			b, err := json.Marshal(elem)
			if err != nil {
				return nil, err
			}
			out[i] = b
		}
		return out, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return [][]byte{b}, nil
}

func byteArraysToJSONValue(blobs [][]byte) (any, error) {
	if len(blobs) == 1 {
		var v any
		if err := json.Unmarshal(blobs[0], &v); err != nil {
			return nil, err
		}
		return v, nil
	}

	out := make([]any, len(blobs))
	for i, b := range blobs {
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
