package core

import (
	"fmt"
	"math"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-maintained MUS serializers for the stored domain types.
// They follow the layout the mus-format generator emits: fields in
// declaration order, varint integers, length-prefixed strings and slices.

// IDMUS serializes core.ID values.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Marshal(v ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

// VectorMUS serializes Vector values, both full-precision and quantized.
var VectorMUS = vectorMUS{}

type vectorMUS struct{}

func (vectorMUS) Size(v Vector) (size int) {
	size = IDMUS.Size(v.ChunkId)
	size += varint.Int.Size(v.Dim)
	size += varint.Int.Size(int(v.Kind))
	size += varint.Int.Size(len(v.Values))
	for _, f := range v.Values {
		size += varint.Uint32.Size(math.Float32bits(f))
	}
	size += varint.Int.Size(len(v.Packed))
	size += len(v.Packed)
	size += varint.Uint32.Size(math.Float32bits(v.Scale))
	size += varint.Uint32.Size(math.Float32bits(v.Offset))
	return size
}

func (vectorMUS) Marshal(v Vector, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ChunkId, bs)
	n += varint.Int.Marshal(v.Dim, bs[n:])
	n += varint.Int.Marshal(int(v.Kind), bs[n:])
	n += varint.Int.Marshal(len(v.Values), bs[n:])
	for _, f := range v.Values {
		n += varint.Uint32.Marshal(math.Float32bits(f), bs[n:])
	}
	n += varint.Int.Marshal(len(v.Packed), bs[n:])
	n += copy(bs[n:], v.Packed)
	n += varint.Uint32.Marshal(math.Float32bits(v.Scale), bs[n:])
	n += varint.Uint32.Marshal(math.Float32bits(v.Offset), bs[n:])
	return n
}

func (vectorMUS) Unmarshal(bs []byte) (v Vector, n int, err error) {
	var n1 int
	v.ChunkId, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return v, n, err
	}
	v.Dim, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	kind, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	v.Kind = VectorKind(kind)

	count, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	if count < 0 {
		return v, n, fmt.Errorf("negative values length %d", count)
	}
	if count > 0 {
		v.Values = make([]float32, count)
		for i := 0; i < count; i++ {
			bits, n2, err := varint.Uint32.Unmarshal(bs[n:])
			n += n2
			if err != nil {
				return v, n, err
			}
			v.Values[i] = math.Float32frombits(bits)
		}
	}

	packed, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	if packed < 0 || packed > len(bs)-n {
		return v, n, fmt.Errorf("invalid packed length %d", packed)
	}
	if packed > 0 {
		v.Packed = make([]byte, packed)
		n += copy(v.Packed, bs[n:n+packed])
	}

	bits, n1, err := varint.Uint32.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	v.Scale = math.Float32frombits(bits)

	bits, n1, err = varint.Uint32.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	v.Offset = math.Float32frombits(bits)

	return v, n, nil
}

// PayloadMUS serializes Payload values.
var PayloadMUS = payloadMUS{}

type payloadMUS struct{}

func (payloadMUS) Size(v Payload) (size int) {
	size = IDMUS.Size(v.DocumentId)
	size += varint.Int.Size(v.Ordinal)
	size += ord.String.Size(v.Text)
	size += sizeStringSlice(v.HierarchyPath)
	size += sizeStringSlice(v.Entities)
	size += varint.Int.Size(int(v.Method))
	return size
}

func (payloadMUS) Marshal(v Payload, bs []byte) (n int) {
	n = IDMUS.Marshal(v.DocumentId, bs)
	n += varint.Int.Marshal(v.Ordinal, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += marshalStringSlice(v.HierarchyPath, bs[n:])
	n += marshalStringSlice(v.Entities, bs[n:])
	n += varint.Int.Marshal(int(v.Method), bs[n:])
	return n
}

func (payloadMUS) Unmarshal(bs []byte) (v Payload, n int, err error) {
	var n1 int
	v.DocumentId, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return v, n, err
	}
	v.Ordinal, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	v.HierarchyPath, n1, err = unmarshalStringSlice(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	v.Entities, n1, err = unmarshalStringSlice(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	method, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	v.Method = ExtractionMethod(method)
	return v, n, nil
}

// IndexEntryMUS serializes IndexEntry values.
var IndexEntryMUS = indexEntryMUS{}

type indexEntryMUS struct{}

func (indexEntryMUS) Size(v IndexEntry) int {
	return IDMUS.Size(v.ChunkId) + VectorMUS.Size(v.Vector) + PayloadMUS.Size(v.Payload)
}

func (indexEntryMUS) Marshal(v IndexEntry, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ChunkId, bs)
	n += VectorMUS.Marshal(v.Vector, bs[n:])
	n += PayloadMUS.Marshal(v.Payload, bs[n:])
	return n
}

func (indexEntryMUS) Unmarshal(bs []byte) (v IndexEntry, n int, err error) {
	var n1 int
	v.ChunkId, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return v, n, err
	}
	v.Vector, n1, err = VectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	v.Payload, n1, err = PayloadMUS.Unmarshal(bs[n:])
	n += n1
	return v, n, err
}

// SearchResultMUS serializes SearchResult values, used for cached
// search responses.
var SearchResultMUS = searchResultMUS{}

type searchResultMUS struct{}

func (searchResultMUS) Size(v SearchResult) int {
	return IDMUS.Size(v.ChunkId) +
		varint.Uint32.Size(math.Float32bits(v.Score)) +
		PayloadMUS.Size(v.Payload)
}

func (searchResultMUS) Marshal(v SearchResult, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ChunkId, bs)
	n += varint.Uint32.Marshal(math.Float32bits(v.Score), bs[n:])
	n += PayloadMUS.Marshal(v.Payload, bs[n:])
	return n
}

func (searchResultMUS) Unmarshal(bs []byte) (v SearchResult, n int, err error) {
	var n1 int
	v.ChunkId, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return v, n, err
	}
	bits, n1, err := varint.Uint32.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	v.Score = math.Float32frombits(bits)
	v.Payload, n1, err = PayloadMUS.Unmarshal(bs[n:])
	n += n1
	return v, n, err
}

func sizeStringSlice(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

func marshalStringSlice(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStringSlice(bs []byte) (v []string, n int, err error) {
	count, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if count < 0 {
		return nil, n, fmt.Errorf("negative slice length %d", count)
	}
	if count == 0 {
		return nil, n, nil
	}
	v = make([]string, count)
	for i := 0; i < count; i++ {
		var n1 int
		v[i], n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}
