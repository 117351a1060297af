package rpc

import (
	"bytes"
	"fmt"

	"github.com/go-nfsd/nfsd3/internal/xdr"
)

// replyHeader writes the common reply_body prefix shared by every
// accepted reply: xid, msg_type=REPLY, reply_stat=MSG_ACCEPTED, and a
// null (AUTH_NONE) verifier. The server never returns a non-null
// verifier since it performs no RPCSEC_GSS session setup.
func replyHeader(buf *bytes.Buffer, xid uint32) error {
	if err := xdr.WriteUint32(buf, xid); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, Reply); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, MsgAccepted); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, AuthNull); err != nil {
		return err
	}
	return xdr.WriteUint32(buf, 0) // null verifier body length
}

// MakeAcceptedReply frames a successful reply: the common header, an
// accept_stat of SUCCESS, followed by the already-encoded procedure
// result.
func MakeAcceptedReply(xid uint32, resultBody []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := replyHeader(&buf, xid); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, Success); err != nil {
		return nil, err
	}
	if _, err := buf.Write(resultBody); err != nil {
		return nil, fmt.Errorf("rpc: write result body: %w", err)
	}
	return frame(buf.Bytes())
}

// MakeProgUnavailReply frames a reply rejecting an unrecognized
// program number (accept_stat = PROG_UNAVAIL).
func MakeProgUnavailReply(xid uint32) ([]byte, error) {
	return makeSimpleAcceptError(xid, ProgUnavail)
}

// MakeProcUnavailReply frames a reply rejecting an unrecognized
// procedure number within a known program/version (accept_stat =
// PROC_UNAVAIL).
func MakeProcUnavailReply(xid uint32) ([]byte, error) {
	return makeSimpleAcceptError(xid, ProcUnavail)
}

// MakeGarbageArgsReply frames a reply indicating the call's arguments
// could not be decoded (accept_stat = GARBAGE_ARGS).
func MakeGarbageArgsReply(xid uint32) ([]byte, error) {
	return makeSimpleAcceptError(xid, GarbageArgs)
}

// MakeSystemErrReply frames a reply indicating an internal server
// failure unrelated to the client's request (accept_stat = SYSTEM_ERR).
func MakeSystemErrReply(xid uint32) ([]byte, error) {
	return makeSimpleAcceptError(xid, SystemErr)
}

func makeSimpleAcceptError(xid, acceptStat uint32) ([]byte, error) {
	var buf bytes.Buffer
	if err := replyHeader(&buf, xid); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, acceptStat); err != nil {
		return nil, err
	}
	return frame(buf.Bytes())
}

// MakeProgMismatchReply frames a reply indicating the requested program
// is known but not at the requested version (accept_stat =
// PROG_MISMATCH), reporting the [low, high] range of versions this
// server supports for that program.
func MakeProgMismatchReply(xid, low, high uint32) ([]byte, error) {
	if low > high {
		return nil, fmt.Errorf("rpc: invalid version range: low (%d) > high (%d)", low, high)
	}
	var buf bytes.Buffer
	if err := replyHeader(&buf, xid); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, ProgMismatch); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, low); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, high); err != nil {
		return nil, err
	}
	return frame(buf.Bytes())
}

// MakeRPCMismatchReply frames a MSG_DENIED reply with reject_stat =
// RPC_MISMATCH, used when the call's rpcvers is not 2.
func MakeRPCMismatchReply(xid, low, high uint32) ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.WriteUint32(&buf, xid); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, Reply); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, MsgDenied); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, RPCMismatch); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, low); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, high); err != nil {
		return nil, err
	}
	return frame(buf.Bytes())
}

// MakeAuthErrorReply frames a MSG_DENIED reply with reject_stat =
// AUTH_ERROR and the given auth_stat, used when a credential is
// malformed or uses an unsupported flavor.
func MakeAuthErrorReply(xid, authStat uint32) ([]byte, error) {
	var buf bytes.Buffer
	if err := xdr.WriteUint32(&buf, xid); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, Reply); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, MsgDenied); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, AuthErr); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, authStat); err != nil {
		return nil, err
	}
	return frame(buf.Bytes())
}

// frame wraps a reply payload in a single-fragment RPC record marking
// header (last-fragment bit set, no continuation).
func frame(payload []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := WriteRecord(&out, payload); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
