package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Wire types, matching the protobuf wire format's tag encoding
// (field_number<<3 | wire_type).
const (
	wireVarint = 0
	wireBytes  = 2
)

func tag(fieldNum int, wireType int) uint64 {
	return uint64(fieldNum)<<3 | uint64(wireType)
}

// writer appends protobuf-wire-format fields to a growing byte slice. It is
// the encode side of the hand-rolled codec: no reflection, no generated
// code, just the same tag/varint/length-delimited shapes protoc-gen-gogo
// would emit for these field kinds.
type writer struct {
	buf []byte
}

func (w *writer) putVarint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.buf = append(w.buf, tmp[:n]...)
}

func (w *writer) varintField(field int, v uint64) {
	w.putVarint(tag(field, wireVarint))
	w.putVarint(v)
}

func (w *writer) boolField(field int, b bool) {
	var v uint64
	if b {
		v = 1
	}
	w.varintField(field, v)
}

func (w *writer) bytesField(field int, b []byte) {
	w.putVarint(tag(field, wireBytes))
	w.putVarint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) stringField(field int, s string) {
	w.bytesField(field, []byte(s))
}

// packedVarintField writes a repeated int64 field using the packed
// encoding: one length-delimited field holding every element's varint
// back to back.
func (w *writer) packedVarintField(field int, values []int64) {
	var inner writer
	for _, v := range values {
		inner.putVarint(uint64(v))
	}
	w.bytesField(field, inner.buf)
}

// reader walks a byte slice produced by writer, one (field, wireType)
// tag at a time.
type reader struct {
	data []byte
	i    int
}

func (r *reader) done() bool { return r.i >= len(r.data) }

func (r *reader) getVarint() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.i:])
	if n <= 0 {
		return 0, errors.New("wire: malformed varint")
	}
	r.i += n
	return v, nil
}

func (r *reader) tag() (field int, wireType int, err error) {
	key, err := r.getVarint()
	if err != nil {
		return 0, 0, err
	}
	return int(key >> 3), int(key & 0x7), nil
}

func (r *reader) getBytes() ([]byte, error) {
	l, err := r.getVarint()
	if err != nil {
		return nil, err
	}
	end := r.i + int(l)
	if l > uint64(len(r.data)) || end > len(r.data) || end < r.i {
		return nil, errors.New("wire: malformed length-delimited field")
	}
	b := r.data[r.i:end]
	r.i = end
	return b, nil
}

func (r *reader) getPackedVarints() ([]int64, error) {
	b, err := r.getBytes()
	if err != nil {
		return nil, err
	}
	inner := reader{data: b}
	var out []int64
	for !inner.done() {
		v, err := inner.getVarint()
		if err != nil {
			return nil, err
		}
		out = append(out, int64(v))
	}
	return out, nil
}

// skip discards a field this codec version does not recognize, keeping
// decoding forward-compatible with snapshots written by a newer build.
func (r *reader) skip(wireType int) error {
	switch wireType {
	case wireVarint:
		_, err := r.getVarint()
		return err
	case wireBytes:
		_, err := r.getBytes()
		return err
	default:
		return errors.Errorf("wire: unsupported wire type %d", wireType)
	}
}
