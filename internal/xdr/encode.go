package xdr

import (
	"bytes"
	"encoding/binary"
)

// MaxOpaqueLength is the bound callers pass to ReadOpaque/ReadString
// when no tighter limit applies; the encoders do not check it. NFSv3
// payloads are chunked by rtmax/wtmax well below this; it exists to stop
// a malformed or hostile length prefix from causing an oversized
// allocation.
const MaxOpaqueLength = 4 * 1024 * 1024

// WriteOpaque encodes variable-length opaque data: length, data, then
// zero padding to the next 4-byte boundary (RFC 4506 §4.9).
func WriteOpaque(buf *bytes.Buffer, data []byte) error {
	length := uint32(len(data))
	if err := WriteUint32(buf, length); err != nil {
		return err
	}
	if _, err := buf.Write(data); err != nil {
		return ioErr("opaque.data", err)
	}
	return WritePadding(buf, length)
}

// WriteFixedOpaque encodes fixed-length opaque data: no length prefix,
// just the bytes and padding (RFC 4506 §4.9, fixed-length case).
func WriteFixedOpaque(buf *bytes.Buffer, data []byte) error {
	if _, err := buf.Write(data); err != nil {
		return ioErr("fixed_opaque.data", err)
	}
	return WritePadding(buf, uint32(len(data)))
}

// WriteString encodes a string using the same length-prefixed,
// zero-padded layout as WriteOpaque (RFC 4506 §4.11).
func WriteString(buf *bytes.Buffer, s string) error {
	return WriteOpaque(buf, []byte(s))
}

// WritePadding emits the zero bytes needed to align dataLen up to a
// 4-byte boundary.
func WritePadding(buf *bytes.Buffer, dataLen uint32) error {
	pad := padLen(dataLen)
	if pad == 0 {
		return nil
	}
	var zero [3]byte
	if _, err := buf.Write(zero[:pad]); err != nil {
		return ioErr("padding", err)
	}
	return nil
}

func padLen(dataLen uint32) uint32 {
	return (4 - (dataLen % 4)) % 4
}

// WriteUint32 encodes an unsigned 32-bit integer, big-endian (RFC 4506 §4.1).
func WriteUint32(buf *bytes.Buffer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	if _, err := buf.Write(b[:]); err != nil {
		return ioErr("uint32", err)
	}
	return nil
}

// WriteUint64 encodes an unsigned 64-bit integer, big-endian (RFC 4506 §4.5).
func WriteUint64(buf *bytes.Buffer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	if _, err := buf.Write(b[:]); err != nil {
		return ioErr("uint64", err)
	}
	return nil
}

// WriteInt32 encodes a signed 32-bit integer, big-endian two's complement.
func WriteInt32(buf *bytes.Buffer, v int32) error {
	return WriteUint32(buf, uint32(v))
}

// WriteInt64 encodes a signed 64-bit integer, big-endian two's complement.
func WriteInt64(buf *bytes.Buffer, v int64) error {
	return WriteUint64(buf, uint64(v))
}

// WriteBool encodes a boolean as a uint32 (0 or 1), per RFC 4506 §4.4.
func WriteBool(buf *bytes.Buffer, v bool) error {
	if v {
		return WriteUint32(buf, 1)
	}
	return WriteUint32(buf, 0)
}
