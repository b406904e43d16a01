package types

import "encoding/binary"

// encbuf accumulates the canonical big-endian serialization: fixed-width
// integers and byte strings concatenated in field order, variable-length
// sequences prefixed by a 32-bit big-endian length.
type encbuf struct {
	buf []byte
}

func (e *encbuf) u64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *encbuf) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *encbuf) byte(v byte) {
	e.buf = append(e.buf, v)
}

func (e *encbuf) fixed(b []byte) {
	e.buf = append(e.buf, b...)
}

// variable writes a 32-bit big-endian length prefix followed by b.
func (e *encbuf) variable(b []byte) {
	e.u32(uint32(len(b)))
	e.fixed(b)
}

func (e *encbuf) bytes() []byte {
	return e.buf
}
