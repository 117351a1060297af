// Package rpc implements ONC RPC v2 (RFC 1057/5531) record framing,
// call parsing, reply construction and dispatch support shared by the
// NFSv3, MOUNT v3 and PORTMAP v2 programs.
package rpc

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Message types (RFC 1057 §8, msg_type).
const (
	Call  = uint32(0)
	Reply = uint32(1)
)

// Reply statuses (RFC 1057 §8, reply_stat).
const (
	MsgAccepted = uint32(0)
	MsgDenied   = uint32(1)
)

// Accept statuses (RFC 1057 §8, accept_stat).
const (
	Success      = uint32(0)
	ProgUnavail  = uint32(1)
	ProgMismatch = uint32(2)
	ProcUnavail  = uint32(3)
	GarbageArgs  = uint32(4)
	SystemErr    = uint32(5)
)

// Reject statuses (RFC 1057 §8, reject_stat).
const (
	RPCMismatch = uint32(0)
	AuthErr     = uint32(1)
)

// Auth statuses (RFC 1057 §8, auth_stat), used only for the rejected
// reply; the server itself issues AuthRejectedCred for any credential
// flavor other than AUTH_NONE and AUTH_UNIX.
const (
	AuthBadCred      = uint32(1)
	AuthRejectedCred = uint32(2)
	AuthBadVerf      = uint32(3)
	AuthRejectedVerf = uint32(4)
	AuthTooWeak      = uint32(5)
)

// Legacy aliases kept for readability at call sites that mirror the
// RPC wire spec's own names.
const (
	RPCCall          = Call
	RPCReply         = Reply
	RPCMsgAccepted   = MsgAccepted
	RPCMsgDenied     = MsgDenied
	RPCProgMismatch  = ProgMismatch
	RPCSuccess       = Success
	RPCProgUnavail   = ProgUnavail
	RPCProcUnavail   = ProcUnavail
	RPCGarbageArgs   = GarbageArgs
	RPCAuthRPCSECGSS = uint32(6)
)

// AuthRPCSECGSS is the RPCSEC_GSS auth flavor number (RFC 2203). The
// server never attempts to verify such a credential; a call using it is
// answered with AUTH_ERROR/AuthRejectedCred like any other unsupported
// flavor.
const AuthRPCSECGSS = RPCAuthRPCSECGSS

// CallMessage is a parsed ONC RPC call: the header fields plus the
// raw, still-XDR-encoded procedure arguments.
type CallMessage struct {
	XID         uint32
	Program     uint32
	Version     uint32
	Procedure   uint32
	CredFlavor  uint32
	CredBody    []byte
	VerfFlavor  uint32
	VerfBody    []byte
	Args        []byte
}

// GetAuthFlavor returns the credential's auth flavor.
func (c *CallMessage) GetAuthFlavor() uint32 { return c.CredFlavor }

// GetAuthBody returns the raw, still-encoded credential body.
func (c *CallMessage) GetAuthBody() []byte { return c.CredBody }

// VersionMismatchError reports a call whose rpcvers field is not 2. The
// XID is still known at this point in parsing, so the caller can reply
// with RPC_MISMATCH instead of dropping the connection.
type VersionMismatchError struct {
	XID uint32
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("rpc: unsupported rpcvers (xid=0x%x)", e.XID)
}

// ReadCall decodes an RPC call message (RFC 1057 §8, call_body) from a
// single reassembled record. The remaining, unconsumed bytes become
// Args, left for the procedure-specific decoder.
func ReadCall(record []byte) (*CallMessage, error) {
	r := bytes.NewReader(record)

	fields := make([]uint32, 6)
	for i := range fields {
		v, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("rpc: read call header: %w", err)
		}
		fields[i] = v
	}
	xid, msgType, rpcvers, program, version, procedure := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]
	if msgType != Call {
		return nil, fmt.Errorf("rpc: not a call message (msg_type=%d)", msgType)
	}
	if rpcvers != 2 {
		return nil, &VersionMismatchError{XID: xid}
	}

	credFlavor, credBody, err := readOpaqueAuth(r)
	if err != nil {
		return nil, fmt.Errorf("rpc: read cred: %w", err)
	}
	verfFlavor, verfBody, err := readOpaqueAuth(r)
	if err != nil {
		return nil, fmt.Errorf("rpc: read verf: %w", err)
	}

	args := make([]byte, r.Len())
	if _, err := r.Read(args); err != nil && r.Len() != 0 {
		return nil, fmt.Errorf("rpc: read args: %w", err)
	}

	return &CallMessage{
		XID:        xid,
		Program:    program,
		Version:    version,
		Procedure:  procedure,
		CredFlavor: credFlavor,
		CredBody:   credBody,
		VerfFlavor: verfFlavor,
		VerfBody:   verfBody,
		Args:       args,
	}, nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// readOpaqueAuth decodes an opaque_auth structure: flavor followed by a
// variable-length opaque body.
func readOpaqueAuth(r *bytes.Reader) (uint32, []byte, error) {
	flavor, err := readU32(r)
	if err != nil {
		return 0, nil, err
	}
	length, err := readU32(r)
	if err != nil {
		return 0, nil, err
	}
	body := make([]byte, length)
	if length > 0 {
		if _, err := r.Read(body); err != nil {
			return 0, nil, err
		}
	}
	if pad := padLen(length); pad > 0 {
		skip := make([]byte, pad)
		if _, err := r.Read(skip); err != nil {
			return 0, nil, err
		}
	}
	return flavor, body, nil
}
