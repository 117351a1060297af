package nfs3

import (
	"bytes"

	gxdr "github.com/go-nfsd/nfsd3/internal/xdr"
	"github.com/go-nfsd/nfsd3/internal/vfs"
)

// Null implements NFSPROC3_NULL: no arguments, no reply body, a pure
// liveness probe (RFC 1813 §3.3.0).
func (h *Handler) Null(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	return &HandlerResult{Data: nil, Status: StatOK}, nil
}

func decodeHandle(r *bytes.Reader) ([]byte, error) {
	return gxdr.ReadOpaque(r, "fh3", NFS3MaxFHSize)
}

// Getattr implements NFSPROC3_GETATTR (RFC 1813 §3.3.1).
func (h *Handler) Getattr(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	id, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	attr, vErr := h.FS.GetAttr(ctx.Context, id)
	if vErr != nil {
		return errorResult(mapVFSError(vErr)), nil
	}

	var buf bytes.Buffer
	_ = gxdr.WriteUint32(&buf, StatOK)
	if err := encodeFattr3(&buf, attr); err != nil {
		return nil, err
	}
	return &HandlerResult{Data: buf.Bytes(), Status: StatOK}, nil
}

// Setattr implements NFSPROC3_SETATTR (RFC 1813 §3.3.2), with an
// optional ctime guard: when present, it must match the object's
// current ctime or the call fails with NFS3ERR_NOT_SYNC before any
// attribute is applied.
func (h *Handler) Setattr(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	id, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	newAttr, err := decodeSattr3(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	checkGuard, err := gxdr.ReadBool(r, "setattr.check_guard")
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	var guard *vfs.Time
	if checkGuard {
		t, err := readNFSTime(r)
		if err != nil {
			return errorResult(StatErrInval), nil
		}
		guard = &t
	}

	pre, post, vErr := h.FS.SetAttr(ctx.Context, id, newAttr, guard)
	if vErr != nil {
		stat := mapVFSError(vErr)
		if stat == StatErrInval {
			stat = StatErrNotSync
		}
		var buf bytes.Buffer
		_ = gxdr.WriteUint32(&buf, stat)
		_ = writeWccData(&buf, pre, post, nil, vErr)
		return &HandlerResult{Data: buf.Bytes(), Status: stat}, nil
	}

	var buf bytes.Buffer
	_ = gxdr.WriteUint32(&buf, StatOK)
	if err := writeWccData(&buf, pre, post, nil, nil); err != nil {
		return nil, err
	}
	return &HandlerResult{Data: buf.Bytes(), Status: StatOK}, nil
}

// Access implements NFSPROC3_ACCESS (RFC 1813 §3.3.4): the server
// intersects the requested mask with what the caller's uid/gid permits
// against the object's mode/owner/group.
func (h *Handler) Access(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	requested, err := gxdr.ReadUint32(r, "access.mask")
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	id, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	attr, vErr := h.FS.GetAttr(ctx.Context, id)
	if vErr != nil {
		return errorResult(mapVFSError(vErr)), nil
	}

	granted := grantedAccess(attr, ctx.UID, ctx.GID) & requested

	var buf bytes.Buffer
	_ = gxdr.WriteUint32(&buf, StatOK)
	_ = writePostOpAttr(&buf, attr, nil)
	_ = gxdr.WriteUint32(&buf, granted)
	return &HandlerResult{Data: buf.Bytes(), Status: StatOK}, nil
}

// grantedAccess computes the NFSv3 ACCESS mask the caller holds
// against attr, using the standard owner/group/other POSIX mode bits.
// A request with no decoded credential (AUTH_NONE, or a parse failure)
// is evaluated against the "other" bits only.
func grantedAccess(attr vfs.Attr, uid, gid *uint32) uint32 {
	var bits uint32
	switch {
	case uid != nil && *uid == attr.UID:
		bits = (attr.Mode >> 6) & 0o7
	case gid != nil && *gid == attr.GID:
		bits = (attr.Mode >> 3) & 0o7
	default:
		bits = attr.Mode & 0o7
	}

	var mask uint32
	if bits&0o4 != 0 {
		mask |= AccessRead | AccessLookup
	}
	if bits&0o2 != 0 {
		mask |= AccessModify | AccessExtend | AccessDelete
	}
	if bits&0o1 != 0 {
		mask |= AccessExecute
	}
	if attr.Type == vfs.TypeDir {
		// directories never advertise EXECUTE; LOOKUP substitutes.
		mask &^= AccessExecute
	}
	return mask
}

// Readlink implements NFSPROC3_READLINK (RFC 1813 §3.3.5).
func (h *Handler) Readlink(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	id, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	attr, attrErr := h.FS.GetAttr(ctx.Context, id)
	target, vErr := h.FS.Readlink(ctx.Context, id)
	if vErr != nil {
		var buf bytes.Buffer
		st := mapVFSError(vErr)
		_ = gxdr.WriteUint32(&buf, st)
		_ = writePostOpAttr(&buf, attr, attrErr)
		return &HandlerResult{Data: buf.Bytes(), Status: st}, nil
	}

	var buf bytes.Buffer
	_ = gxdr.WriteUint32(&buf, StatOK)
	_ = writePostOpAttr(&buf, attr, attrErr)
	if err := gxdr.WriteString(&buf, target); err != nil {
		return nil, err
	}
	return &HandlerResult{Data: buf.Bytes(), Status: StatOK}, nil
}

// Fsstat implements NFSPROC3_FSSTAT (RFC 1813 §3.3.18).
func (h *Handler) Fsstat(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	id, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	attr, attrErr := h.FS.GetAttr(ctx.Context, id)
	fsstat, vErr := h.FS.FSStat(ctx.Context, id)
	if vErr != nil {
		return errorResult(mapVFSError(vErr)), nil
	}

	var buf bytes.Buffer
	_ = gxdr.WriteUint32(&buf, StatOK)
	_ = writePostOpAttr(&buf, attr, attrErr)
	_ = gxdr.WriteUint64(&buf, fsstat.TotalBytes)
	_ = gxdr.WriteUint64(&buf, fsstat.FreeBytes)
	_ = gxdr.WriteUint64(&buf, fsstat.AvailBytes)
	_ = gxdr.WriteUint64(&buf, fsstat.TotalFiles)
	_ = gxdr.WriteUint64(&buf, fsstat.FreeFiles)
	_ = gxdr.WriteUint64(&buf, fsstat.AvailFiles)
	_ = gxdr.WriteUint32(&buf, 0) // invarsec: no estimate offered
	return &HandlerResult{Data: buf.Bytes(), Status: StatOK}, nil
}

// Fsinfo implements NFSPROC3_FSINFO (RFC 1813 §3.3.19), advertising
// the transfer-size and file-size limits this server enforces.
func (h *Handler) Fsinfo(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	id, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	attr, attrErr := h.FS.GetAttr(ctx.Context, id)
	info, vErr := h.FS.FSInfo(ctx.Context, id)
	if vErr != nil {
		return errorResult(mapVFSError(vErr)), nil
	}

	var buf bytes.Buffer
	_ = gxdr.WriteUint32(&buf, StatOK)
	_ = writePostOpAttr(&buf, attr, attrErr)
	_ = gxdr.WriteUint32(&buf, min32(h.Limits.RtMax, info.RtMax))
	_ = gxdr.WriteUint32(&buf, min32(h.Limits.RtPref, info.RtPref))
	_ = gxdr.WriteUint32(&buf, info.RtMult)
	_ = gxdr.WriteUint32(&buf, min32(h.Limits.WtMax, info.WtMax))
	_ = gxdr.WriteUint32(&buf, min32(h.Limits.WtPref, info.WtPref))
	_ = gxdr.WriteUint32(&buf, info.WtMult)
	_ = gxdr.WriteUint32(&buf, min32(h.Limits.DtPref, info.DtPref))
	_ = gxdr.WriteUint64(&buf, minU64(h.Limits.MaxFileSize, info.MaxFileSize))
	_ = writeNFSTime(&buf, info.TimeDelta)
	_ = gxdr.WriteUint32(&buf, info.Properties)
	return &HandlerResult{Data: buf.Bytes(), Status: StatOK}, nil
}

// Pathconf implements NFSPROC3_PATHCONF (RFC 1813 §3.3.20).
func (h *Handler) Pathconf(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	id, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	attr, attrErr := h.FS.GetAttr(ctx.Context, id)

	var buf bytes.Buffer
	_ = gxdr.WriteUint32(&buf, StatOK)
	_ = writePostOpAttr(&buf, attr, attrErr)
	_ = gxdr.WriteUint32(&buf, 8) // linkmax: conservative constant
	_ = gxdr.WriteUint32(&buf, h.Limits.NameMax)
	_ = gxdr.WriteBool(&buf, true)  // no_trunc
	_ = gxdr.WriteBool(&buf, false) // chown_restricted
	_ = gxdr.WriteBool(&buf, false) // case_insensitive
	_ = gxdr.WriteBool(&buf, true)  // case_preserving
	return &HandlerResult{Data: buf.Bytes(), Status: StatOK}, nil
}

func errorResult(stat uint32) *HandlerResult {
	var buf bytes.Buffer
	_ = gxdr.WriteUint32(&buf, stat)
	return &HandlerResult{Data: buf.Bytes(), Status: stat}
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
