package nfs3

import "github.com/go-nfsd/nfsd3/internal/vfs"

// Limits bundles the configurable ceilings FSINFO/PATHCONF advertise
// and READ/WRITE enforce server-side, all sourced from internal/config.
type Limits struct {
	RtMax, RtPref       uint32
	WtMax, WtPref       uint32
	DtPref              uint32
	MaxFileSize         uint64
	NameMax, PathMax    uint32
}

// DefaultLimits mirrors the figures spec.md's scenario S2 exercises.
func DefaultLimits() Limits {
	return Limits{
		RtMax: 1 << 20, RtPref: 1 << 20,
		WtMax: 1 << 20, WtPref: 1 << 20,
		DtPref:      32 * 1024,
		MaxFileSize: 1 << 30,
		NameMax:     NameMax,
		PathMax:     PathMax,
	}
}

// Handler binds a VFS back-end and a file-handle converter to the set
// of NFSv3 procedure implementations in this package.
type Handler struct {
	FS     vfs.FileSystem
	FH     *FileHandleConverter
	Limits Limits
}

// NewHandler builds a Handler over fs, minting handles tagged with
// exportID.
func NewHandler(fs vfs.FileSystem, exportID byte, limits Limits) *Handler {
	return &Handler{FS: fs, FH: NewFileHandleConverter(exportID), Limits: limits}
}

// resolveHandle decodes a wire nfs_fh3 into a vfs.FileID, mapping a
// malformed or foreign handle to BADHANDLE per spec.md §4.3 step 1.
func (h *Handler) resolveHandle(wire []byte) (vfs.FileID, uint32) {
	id, err := h.FH.FromHandle(wire)
	if err != nil {
		return 0, StatErrBadHandle
	}
	return id, StatOK
}

// validateName rejects an empty name, matching spec.md §4.3 step 2.
// NUL-byte rejection is the caller's responsibility where the name
// originates from a length-prefixed opaque (decode already stops at
// the declared length, so embedded NULs pass through verbatim as valid
// bytes unless the caller checks for one explicitly).
func (h *Handler) validateName(name string) uint32 {
	if name == "" {
		return StatErrInval
	}
	if uint32(len(name)) > h.Limits.NameMax {
		return StatErrNameTooLong
	}
	return StatOK
}

// HandlerResult is the outcome of one procedure invocation: the
// XDR-encoded reply body and the nfsstat3 it carries, surfaced
// separately so the dispatcher can feed the status into metrics
// without re-decoding the reply.
type HandlerResult struct {
	Data   []byte
	Status uint32
}
