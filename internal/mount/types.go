// Package mount implements the MOUNT protocol (RFC 1813 Appendix I):
// the handshake NFSv3 clients use to trade an export path for a root
// file handle before issuing any NFS call.
package mount

// Program/version identifying this service to PORTMAP.
const (
	Program = uint32(100005)
	Version = uint32(3)
)

// Procedure numbers (RFC 1813 Appendix I).
const (
	ProcNull     = uint32(0)
	ProcMnt      = uint32(1)
	ProcDump     = uint32(2)
	ProcUmnt     = uint32(3)
	ProcUmntAll  = uint32(4)
	ProcExport   = uint32(5)
)

// mountstat3 values.
const (
	StatOK           = uint32(0)
	StatErrPerm      = uint32(1)
	StatErrNoEnt     = uint32(2)
	StatErrIO        = uint32(5)
	StatErrAccess    = uint32(13)
	StatErrNotDir    = uint32(20)
	StatErrInval     = uint32(22)
	StatErrNameTooLong = uint32(63)
	StatErrNotSupp   = uint32(10004)
	StatErrServerFault = uint32(10006)
)

// Auth flavors this server advertises in the MNT reply.
const (
	AuthNull = int32(0)
	AuthUnix = int32(1)
)
