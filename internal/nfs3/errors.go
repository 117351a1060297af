package nfs3

import (
	"fmt"

	"github.com/go-nfsd/nfsd3/internal/vfs"
)

// mapVFSError turns a vfs.Error's Code into the matching nfsstat3. A
// nil err maps to StatOK; any error that is not a *vfs.Error (a bug in
// a back-end, not a client-facing condition) maps to StatErrIO.
func mapVFSError(err error) uint32 {
	if err == nil {
		return StatOK
	}
	verr, ok := err.(*vfs.Error)
	if !ok {
		return StatErrIO
	}
	switch verr.Code {
	case vfs.ErrNotFound:
		return StatErrNoEnt
	case vfs.ErrAccessDenied:
		return StatErrAcces
	case vfs.ErrNotDirectory:
		return StatErrNotDir
	case vfs.ErrIsDirectory:
		return StatErrIsDir
	case vfs.ErrAlreadyExists:
		return StatErrExist
	case vfs.ErrNotEmpty:
		return StatErrNotEmpty
	case vfs.ErrNoSpace:
		return StatErrNoSpc
	case vfs.ErrReadOnly:
		return StatErrRofs
	case vfs.ErrStaleHandle:
		return StatErrStale
	case vfs.ErrInvalidHandle:
		return StatErrBadHandle
	case vfs.ErrNotSupported:
		return StatErrNotSupp
	case vfs.ErrInvalidArgument:
		return StatErrInval
	case vfs.ErrNameTooLong:
		return StatErrNameTooLong
	case vfs.ErrBadCookie:
		return StatErrBadCookie
	case vfs.ErrTooSmall:
		return StatErrTooSmall
	case vfs.ErrJukebox:
		return StatErrJukebox
	case vfs.ErrIOError:
		return StatErrIO
	default:
		return StatErrServerFault
	}
}

var statusNames = map[uint32]string{
	StatOK:             "NFS3_OK",
	StatErrPerm:        "NFS3ERR_PERM",
	StatErrNoEnt:       "NFS3ERR_NOENT",
	StatErrIO:          "NFS3ERR_IO",
	StatErrNxio:        "NFS3ERR_NXIO",
	StatErrAcces:       "NFS3ERR_ACCES",
	StatErrExist:       "NFS3ERR_EXIST",
	StatErrXdev:        "NFS3ERR_XDEV",
	StatErrNodev:       "NFS3ERR_NODEV",
	StatErrNotDir:      "NFS3ERR_NOTDIR",
	StatErrIsDir:       "NFS3ERR_ISDIR",
	StatErrInval:       "NFS3ERR_INVAL",
	StatErrFbig:        "NFS3ERR_FBIG",
	StatErrNoSpc:       "NFS3ERR_NOSPC",
	StatErrRofs:        "NFS3ERR_ROFS",
	StatErrMlink:       "NFS3ERR_MLINK",
	StatErrNameTooLong: "NFS3ERR_NAMETOOLONG",
	StatErrNotEmpty:    "NFS3ERR_NOTEMPTY",
	StatErrDquot:       "NFS3ERR_DQUOT",
	StatErrStale:       "NFS3ERR_STALE",
	StatErrRemote:      "NFS3ERR_REMOTE",
	StatErrBadHandle:   "NFS3ERR_BADHANDLE",
	StatErrNotSync:     "NFS3ERR_NOT_SYNC",
	StatErrBadCookie:   "NFS3ERR_BAD_COOKIE",
	StatErrNotSupp:     "NFS3ERR_NOTSUPP",
	StatErrTooSmall:    "NFS3ERR_TOOSMALL",
	StatErrServerFault: "NFS3ERR_SERVERFAULT",
	StatErrBadType:     "NFS3ERR_BADTYPE",
	StatErrJukebox:     "NFS3ERR_JUKEBOX",
}

// StatusName returns the nfsstat3 mnemonic for status, or a numeric
// fallback for any value outside RFC 1813 §2.6 (should not occur from
// a handler in this package, but metrics labeling must not panic on
// one).
func StatusName(status uint32) string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return fmt.Sprintf("NFS3ERR_UNKNOWN(%d)", status)
}
