package nfs3

import (
	"bytes"

	"github.com/go-nfsd/nfsd3/internal/vfs"
	gxdr "github.com/go-nfsd/nfsd3/internal/xdr"
)

func vfsStableHow(v uint32) vfs.StableHow {
	switch v {
	case DataSync:
		return vfs.DataSync
	case FileSync:
		return vfs.FileSync
	default:
		return vfs.Unstable
	}
}

// Read implements NFSPROC3_READ (RFC 1813 §3.3.6), capping count at
// the server's advertised rtmax.
func (h *Handler) Read(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	offset, err := gxdr.ReadUint64(r, "read.offset")
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	count, err := gxdr.ReadUint32(r, "read.count")
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	if count > h.Limits.RtMax {
		count = h.Limits.RtMax
	}

	id, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	attr, attrErr := h.FS.GetAttr(ctx.Context, id)
	data, eof, vErr := h.FS.Read(ctx.Context, id, offset, count)
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
	_ = gxdr.WriteUint32(&buf, uint32(len(data)))
	_ = gxdr.WriteBool(&buf, eof)
	if err := gxdr.WriteOpaque(&buf, data); err != nil {
		return nil, err
	}
	return &HandlerResult{Data: buf.Bytes(), Status: StatOK}, nil
}

// Write implements NFSPROC3_WRITE (RFC 1813 §3.3.7).
func (h *Handler) Write(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	offset, err := gxdr.ReadUint64(r, "write.offset")
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	_, err = gxdr.ReadUint32(r, "write.count") // redundant with opaque length; kept for wire fidelity
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	stable, err := gxdr.ReadEnum(r, "write.stable", uint32(FileSync))
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	data, err := gxdr.ReadOpaque(r, "write.data", h.Limits.WtMax)
	if err != nil {
		return errorResult(StatErrInval), nil
	}

	id, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	preAttr, preErr := h.FS.GetAttr(ctx.Context, id)
	committed, writeverf, vErr := h.FS.Write(ctx.Context, id, offset, vfsStableHow(stable), data)
	postAttr, postErr := h.FS.GetAttr(ctx.Context, id)
	if vErr != nil {
		var buf bytes.Buffer
		st := mapVFSError(vErr)
		_ = gxdr.WriteUint32(&buf, st)
		_ = writeWccData(&buf, preAttr, postAttr, preErr, postErr)
		return &HandlerResult{Data: buf.Bytes(), Status: st}, nil
	}

	var buf bytes.Buffer
	_ = gxdr.WriteUint32(&buf, StatOK)
	_ = writeWccData(&buf, preAttr, postAttr, preErr, postErr)
	_ = gxdr.WriteUint32(&buf, uint32(len(data)))
	_ = gxdr.WriteUint32(&buf, uint32(committed))
	_ = gxdr.WriteUint64(&buf, writeverf)
	return &HandlerResult{Data: buf.Bytes(), Status: StatOK}, nil
}

// Commit implements NFSPROC3_COMMIT (RFC 1813 §3.3.21): flushes
// previously-written unstable data to stable storage.
func (h *Handler) Commit(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	offset, err := gxdr.ReadUint64(r, "commit.offset")
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	count, err := gxdr.ReadUint32(r, "commit.count")
	if err != nil {
		return errorResult(StatErrInval), nil
	}

	id, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	preAttr, preErr := h.FS.GetAttr(ctx.Context, id)
	writeverf, vErr := h.FS.Commit(ctx.Context, id, offset, count)
	postAttr, postErr := h.FS.GetAttr(ctx.Context, id)
	if vErr != nil {
		var buf bytes.Buffer
		st := mapVFSError(vErr)
		_ = gxdr.WriteUint32(&buf, st)
		_ = writeWccData(&buf, preAttr, postAttr, preErr, postErr)
		return &HandlerResult{Data: buf.Bytes(), Status: st}, nil
	}

	var buf bytes.Buffer
	_ = gxdr.WriteUint32(&buf, StatOK)
	_ = writeWccData(&buf, preAttr, postAttr, preErr, postErr)
	_ = gxdr.WriteUint64(&buf, writeverf)
	return &HandlerResult{Data: buf.Bytes(), Status: StatOK}, nil
}
