package rpc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFragmentSize bounds a single reassembled RPC record. It must clear
// the advertised rtmax/wtmax (1 MiB) plus NFS call/reply header
// overhead, so a legitimate large READ/WRITE never trips it.
const MaxFragmentSize = (1 << 20) + (1 << 18)

// FragmentHeader is the 4-byte RPC record-marking header (RFC 1057
// §11): the top bit flags the last fragment of a record, the remaining
// 31 bits carry that fragment's length.
type FragmentHeader struct {
	IsLast bool
	Length uint32
}

// ReadFragmentHeader reads and parses one 4-byte fragment header. EOF
// is returned unwrapped so callers can distinguish a clean client
// disconnect between records from a framing error mid-record.
func ReadFragmentHeader(r io.Reader) (FragmentHeader, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return FragmentHeader{}, err
	}
	header := binary.BigEndian.Uint32(buf[:])
	return FragmentHeader{
		IsLast: header&0x80000000 != 0,
		Length: header & 0x7FFFFFFF,
	}, nil
}

// ReadRecord reassembles one complete RPC record (possibly spanning
// several fragments) from r, enforcing MaxFragmentSize on the running
// total to bound memory use against a hostile or corrupt length.
func ReadRecord(r io.Reader) ([]byte, error) {
	var record []byte
	for {
		hdr, err := ReadFragmentHeader(r)
		if err != nil {
			return nil, err
		}
		if uint64(len(record))+uint64(hdr.Length) > MaxFragmentSize {
			return nil, fmt.Errorf("rpc: record exceeds maximum size %d bytes", MaxFragmentSize)
		}
		frag := make([]byte, hdr.Length)
		if _, err := io.ReadFull(r, frag); err != nil {
			return nil, fmt.Errorf("rpc: read fragment: %w", err)
		}
		record = append(record, frag...)
		if hdr.IsLast {
			return record, nil
		}
	}
}

// WriteRecord frames payload as a single-fragment RPC record (the last
// fragment flag set, no continuation) and writes it to w.
func WriteRecord(w io.Writer, payload []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload))|0x80000000)
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("rpc: write fragment header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("rpc: write fragment body: %w", err)
	}
	return nil
}
