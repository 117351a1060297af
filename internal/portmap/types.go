// Package portmap implements the PORTMAP protocol (RFC 1057 Appendix
// A / RFC 1833's predecessor): the rpcbind-style service mapping
// (program, version, protocol) triples to listening ports, so clients
// using a well-known port 111 can discover where NFS and MOUNT
// actually live.
package portmap

// Program/version identifying this service to itself (portmap answers
// queries about its own registrations too, though this server never
// registers prog=100000 — only NFS and MOUNT).
const (
	Program = uint32(100000)
	Version = uint32(2)
)

// Procedure numbers (RFC 1057 Appendix A).
const (
	ProcNull    = uint32(0)
	ProcSet     = uint32(1)
	ProcUnset   = uint32(2)
	ProcGetport = uint32(3)
	ProcDump    = uint32(4)
	ProcCallit  = uint32(5)
)

// IP protocol numbers used in mapping entries.
const (
	IPProtoTCP = uint32(6)
	IPProtoUDP = uint32(17)
)

// Mapping is one (prog, vers, prot) -> port registration.
type Mapping struct {
	Prog uint32
	Vers uint32
	Prot uint32
	Port uint32
}

// MappingWireSize is the fixed XDR encoding size of one Mapping.
const MappingWireSize = 16
