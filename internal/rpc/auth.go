package rpc

import (
	"encoding/binary"
	"fmt"
)

// Auth flavors recognized on the wire (RFC 1057 §9). RPCSEC_GSS and
// DES-based auth are not decoded by this server; only AUTH_NONE and
// AUTH_UNIX credentials are inspected.
const (
	AuthNull  = uint32(0)
	AuthUnix  = uint32(1)
	AuthShort = uint32(2)
	AuthDES   = uint32(3)
)

const (
	maxMachineNameLen = 255
	maxGIDs           = 16
)

// UnixAuth holds the decoded fields of an AUTH_UNIX credential body
// (RFC 1057 §9.2): a client timestamp, the client's reported hostname,
// the calling user's uid/gid, and up to 16 supplementary group ids.
type UnixAuth struct {
	Stamp       uint32
	MachineName string
	UID         uint32
	GID         uint32
	GIDs        []uint32
}

func (a *UnixAuth) String() string {
	return fmt.Sprintf("UnixAuth{machine=%s uid=%d gid=%d gids=%v}", a.MachineName, a.UID, a.GID, a.GIDs)
}

// ParseUnixAuth decodes an AUTH_UNIX credential body. It rejects a
// machine name longer than 255 bytes and more than 16 supplementary
// group ids, matching the limits a conforming RPC implementation
// enforces to avoid unbounded allocation from a malformed request.
func ParseUnixAuth(body []byte) (*UnixAuth, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("auth_unix: empty credential body")
	}
	if len(body) < 4 {
		return nil, fmt.Errorf("auth_unix: body too short for stamp")
	}
	off := 0
	stamp := binary.BigEndian.Uint32(body[off:])
	off += 4

	if len(body[off:]) < 4 {
		return nil, fmt.Errorf("auth_unix: body too short for machine name length")
	}
	nameLen := binary.BigEndian.Uint32(body[off:])
	off += 4
	if nameLen > maxMachineNameLen {
		return nil, fmt.Errorf("auth_unix: machine name too long (%d > %d)", nameLen, maxMachineNameLen)
	}
	padded := int(nameLen) + padLen(nameLen)
	if len(body[off:]) < padded {
		return nil, fmt.Errorf("auth_unix: body too short for machine name")
	}
	machineName := string(body[off : off+int(nameLen)])
	off += padded

	if len(body[off:]) < 8 {
		return nil, fmt.Errorf("auth_unix: body too short for uid/gid")
	}
	uid := binary.BigEndian.Uint32(body[off:])
	off += 4
	gid := binary.BigEndian.Uint32(body[off:])
	off += 4

	if len(body[off:]) < 4 {
		return nil, fmt.Errorf("auth_unix: body too short for gid count")
	}
	ngids := binary.BigEndian.Uint32(body[off:])
	off += 4
	if ngids > maxGIDs {
		return nil, fmt.Errorf("auth_unix: too many gids (%d > %d)", ngids, maxGIDs)
	}
	if len(body[off:]) < int(ngids)*4 {
		return nil, fmt.Errorf("auth_unix: body too short for gid list")
	}
	gids := make([]uint32, ngids)
	for i := range gids {
		gids[i] = binary.BigEndian.Uint32(body[off:])
		off += 4
	}

	return &UnixAuth{
		Stamp:       stamp,
		MachineName: machineName,
		UID:         uid,
		GID:         gid,
		GIDs:        gids,
	}, nil
}

func padLen(n uint32) int {
	return int((4 - (n % 4)) % 4)
}
