package xdr

import (
	"encoding/binary"
	"io"
)

// ReadOpaque decodes variable-length opaque data: a length prefix, the
// data, and zero padding to the next 4-byte boundary. max bounds the
// accepted length; pass MaxOpaqueLength when no tighter NFS-level limit
// (rtmax, NAME_MAX, ...) applies.
func ReadOpaque(r io.Reader, field string, max uint32) ([]byte, error) {
	length, err := ReadUint32(r, field+".length")
	if err != nil {
		return nil, err
	}
	if length > max {
		return nil, tooLarge(field, length, max)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, ioErr(field+".data", err)
	}
	if pad := padLen(length); pad > 0 {
		var skip [3]byte
		if _, err := io.ReadFull(r, skip[:pad]); err != nil {
			return nil, ioErr(field+".padding", err)
		}
	}
	return data, nil
}

// ReadString decodes a variable-length string using the opaque layout,
// bounded by max bytes.
func ReadString(r io.Reader, field string, max uint32) (string, error) {
	data, err := ReadOpaque(r, field, max)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadFixedOpaque decodes exactly n bytes of fixed-length opaque data
// plus its padding. No length prefix is present on the wire.
func ReadFixedOpaque(r io.Reader, field string, n int) ([]byte, error) {
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, ioErr(field, err)
	}
	if pad := padLen(uint32(n)); pad > 0 {
		var skip [3]byte
		if _, err := io.ReadFull(r, skip[:pad]); err != nil {
			return nil, ioErr(field+".padding", err)
		}
	}
	return data, nil
}

// ReadUint32 decodes an unsigned 32-bit integer, big-endian.
func ReadUint32(r io.Reader, field string) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, ioErr(field, err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// ReadUint64 decodes an unsigned 64-bit integer, big-endian.
func ReadUint64(r io.Reader, field string) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, ioErr(field, err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// ReadInt32 decodes a signed 32-bit integer, big-endian two's complement.
func ReadInt32(r io.Reader, field string) (int32, error) {
	v, err := ReadUint32(r, field)
	return int32(v), err
}

// ReadInt64 decodes a signed 64-bit integer, big-endian two's complement.
func ReadInt64(r io.Reader, field string) (int64, error) {
	v, err := ReadUint64(r, field)
	return int64(v), err
}

// ReadBool decodes a boolean encoded as a uint32. Only 0 (false) and 1
// (true) are legal; any other value is rejected rather than silently
// treated as true.
func ReadBool(r io.Reader, field string) (bool, error) {
	v, err := ReadUint32(r, field)
	if err != nil {
		return false, err
	}
	if v > 1 {
		return false, invalidEnum(field, v)
	}
	return v != 0, nil
}

// ReadEnum decodes a uint32 discriminant and checks it against max (the
// highest valid ordinal). Returns an InvalidEnumValue error otherwise.
func ReadEnum(r io.Reader, field string, max uint32) (uint32, error) {
	v, err := ReadUint32(r, field)
	if err != nil {
		return 0, err
	}
	if v > max {
		return 0, invalidEnum(field, v)
	}
	return v, nil
}
