// Package nfs3 implements the NFSv3 (RFC 1813) procedure handlers: XDR
// request/response structs, the file-handle converter, and the
// dispatch table invoked by the RPC layer for program 100003 version 3.
package nfs3

// Program/version identifying this service to PORTMAP and the RPC
// dispatcher.
const (
	Program = uint32(100003)
	Version = uint32(3)
)

// Procedure numbers (RFC 1813 §3.3).
const (
	ProcNull        = uint32(0)
	ProcGetAttr     = uint32(1)
	ProcSetAttr     = uint32(2)
	ProcLookup      = uint32(3)
	ProcAccess      = uint32(4)
	ProcReadlink    = uint32(5)
	ProcRead        = uint32(6)
	ProcWrite       = uint32(7)
	ProcCreate      = uint32(8)
	ProcMkdir       = uint32(9)
	ProcSymlink     = uint32(10)
	ProcMknod       = uint32(11)
	ProcRemove      = uint32(12)
	ProcRmdir       = uint32(13)
	ProcRename      = uint32(14)
	ProcLink        = uint32(15)
	ProcReaddir     = uint32(16)
	ProcReaddirplus = uint32(17)
	ProcFsstat      = uint32(18)
	ProcFsinfo      = uint32(19)
	ProcPathconf    = uint32(20)
	ProcCommit      = uint32(21)
)

// nfsstat3 values (RFC 1813 §2.6).
const (
	StatOK             = uint32(0)
	StatErrPerm        = uint32(1)
	StatErrNoEnt       = uint32(2)
	StatErrIO          = uint32(5)
	StatErrNxio        = uint32(6)
	StatErrAcces       = uint32(13)
	StatErrExist       = uint32(17)
	StatErrXdev        = uint32(18)
	StatErrNodev       = uint32(19)
	StatErrNotDir      = uint32(20)
	StatErrIsDir       = uint32(21)
	StatErrInval       = uint32(22)
	StatErrFbig        = uint32(27)
	StatErrNoSpc       = uint32(28)
	StatErrRofs        = uint32(30)
	StatErrMlink       = uint32(31)
	StatErrNameTooLong = uint32(63)
	StatErrNotEmpty    = uint32(66)
	StatErrDquot       = uint32(69)
	StatErrStale       = uint32(70)
	StatErrRemote      = uint32(71)
	StatErrBadHandle   = uint32(10001)
	StatErrNotSync     = uint32(10002)
	StatErrBadCookie   = uint32(10003)
	StatErrNotSupp     = uint32(10004)
	StatErrTooSmall    = uint32(10005)
	StatErrServerFault = uint32(10006)
	StatErrBadType     = uint32(10007)
	StatErrJukebox     = uint32(10008)
)

// ftype3 values (RFC 1813 §2.5).
const (
	FTypeReg  = uint32(1)
	FTypeDir  = uint32(2)
	FTypeBlk  = uint32(3)
	FTypeChr  = uint32(4)
	FTypeLnk  = uint32(5)
	FTypeSock = uint32(6)
	FTypeFifo = uint32(7)
)

// stable_how values (RFC 1813 §3.3.7).
const (
	Unstable = uint32(0)
	DataSync = uint32(1)
	FileSync = uint32(2)
)

// createmode3 values (RFC 1813 §3.3.8).
const (
	Unchecked = uint32(0)
	Guarded   = uint32(1)
	Exclusive = uint32(2)
)

// ACCESS bit mask (RFC 1813 §3.3.4).
const (
	AccessRead    = uint32(0x0001)
	AccessLookup  = uint32(0x0002)
	AccessModify  = uint32(0x0004)
	AccessExtend  = uint32(0x0008)
	AccessDelete  = uint32(0x0010)
	AccessExecute = uint32(0x0020)
)

// FSINFO properties bit mask (RFC 1813 §3.3.19).
const (
	FSFLink        = uint32(0x0001)
	FSFSymlink     = uint32(0x0002)
	FSFHomogeneous = uint32(0x0008)
	FSFCanSetTime  = uint32(0x0010)
)

// NFS3MaxFHSize is the largest nfs_fh3 this server ever mints or
// accepts (RFC 1813 caps it at 64).
const NFS3MaxFHSize = 64

// NameMax and PathMax are advertised via PATHCONF.
const (
	NameMax = uint32(255)
	PathMax = uint32(4096)
)
