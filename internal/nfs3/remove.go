package nfs3

import (
	"bytes"

	gxdr "github.com/go-nfsd/nfsd3/internal/xdr"
)

// Remove implements NFSPROC3_REMOVE (RFC 1813 §3.3.12).
func (h *Handler) Remove(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	name, err := gxdr.ReadString(r, "remove.name", PathMax)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	dir, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	if stat := h.validateName(name); stat != StatOK {
		return errorResult(stat), nil
	}

	preAttr, preErr := h.FS.GetAttr(ctx.Context, dir)
	vErr := h.FS.Remove(ctx.Context, dir, name)
	postAttr, postErr := h.FS.GetAttr(ctx.Context, dir)

	var buf bytes.Buffer
	st := mapVFSError(vErr)
	_ = gxdr.WriteUint32(&buf, st)
	_ = writeWccData(&buf, preAttr, postAttr, preErr, postErr)
	return &HandlerResult{Data: buf.Bytes(), Status: st}, nil
}

// Rmdir implements NFSPROC3_RMDIR (RFC 1813 §3.3.13).
func (h *Handler) Rmdir(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	name, err := gxdr.ReadString(r, "rmdir.name", PathMax)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	dir, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	if stat := h.validateName(name); stat != StatOK {
		return errorResult(stat), nil
	}

	preAttr, preErr := h.FS.GetAttr(ctx.Context, dir)
	vErr := h.FS.Rmdir(ctx.Context, dir, name)
	postAttr, postErr := h.FS.GetAttr(ctx.Context, dir)

	var buf bytes.Buffer
	st := mapVFSError(vErr)
	_ = gxdr.WriteUint32(&buf, st)
	_ = writeWccData(&buf, preAttr, postAttr, preErr, postErr)
	return &HandlerResult{Data: buf.Bytes(), Status: st}, nil
}

// Rename implements NFSPROC3_RENAME (RFC 1813 §3.3.14), reporting
// wcc_data for both the source and target directories.
func (h *Handler) Rename(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fromFH, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	fromName, err := gxdr.ReadString(r, "rename.from_name", PathMax)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	toFH, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	toName, err := gxdr.ReadString(r, "rename.to_name", PathMax)
	if err != nil {
		return errorResult(StatErrInval), nil
	}

	fromDir, stat := h.resolveHandle(fromFH)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	toDir, stat := h.resolveHandle(toFH)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	if stat := h.validateName(fromName); stat != StatOK {
		return errorResult(stat), nil
	}
	if stat := h.validateName(toName); stat != StatOK {
		return errorResult(stat), nil
	}

	fromPreAttr, fromPreErr := h.FS.GetAttr(ctx.Context, fromDir)
	toPreAttr, toPreErr := h.FS.GetAttr(ctx.Context, toDir)
	vErr := h.FS.Rename(ctx.Context, fromDir, fromName, toDir, toName)
	fromPostAttr, fromPostErr := h.FS.GetAttr(ctx.Context, fromDir)
	toPostAttr, toPostErr := h.FS.GetAttr(ctx.Context, toDir)

	var buf bytes.Buffer
	st := mapVFSError(vErr)
	_ = gxdr.WriteUint32(&buf, st)
	_ = writeWccData(&buf, fromPreAttr, fromPostAttr, fromPreErr, fromPostErr)
	_ = writeWccData(&buf, toPreAttr, toPostAttr, toPreErr, toPostErr)
	return &HandlerResult{Data: buf.Bytes(), Status: st}, nil
}

// Link implements NFSPROC3_LINK (RFC 1813 §3.3.15): creates a new hard
// link name in dir pointing at the object identified by fh.
func (h *Handler) Link(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	dirFH, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	name, err := gxdr.ReadString(r, "link.name", PathMax)
	if err != nil {
		return errorResult(StatErrInval), nil
	}

	id, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	dir, stat := h.resolveHandle(dirFH)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	if stat := h.validateName(name); stat != StatOK {
		return errorResult(stat), nil
	}

	attr, attrErr := h.FS.GetAttr(ctx.Context, id)
	dirPreAttr, dirPreErr := h.FS.GetAttr(ctx.Context, dir)
	vErr := h.FS.Link(ctx.Context, id, dir, name)
	dirPostAttr, dirPostErr := h.FS.GetAttr(ctx.Context, dir)

	var buf bytes.Buffer
	st := mapVFSError(vErr)
	_ = gxdr.WriteUint32(&buf, st)
	_ = writePostOpAttr(&buf, attr, attrErr)
	_ = writeWccData(&buf, dirPreAttr, dirPostAttr, dirPreErr, dirPostErr)
	return &HandlerResult{Data: buf.Bytes(), Status: st}, nil
}
