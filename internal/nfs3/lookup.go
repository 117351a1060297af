package nfs3

import (
	"bytes"

	gxdr "github.com/go-nfsd/nfsd3/internal/xdr"
)

// Lookup implements NFSPROC3_LOOKUP (RFC 1813 §3.3.3).
func (h *Handler) Lookup(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	name, err := gxdr.ReadString(r, "lookup.name", PathMax)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	dir, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	if stat := h.validateName(name); stat != StatOK && name != "." && name != ".." {
		return errorResult(stat), nil
	}

	dirAttr, dirAttrErr := h.FS.GetAttr(ctx.Context, dir)
	child, vErr := h.FS.Lookup(ctx.Context, dir, name)
	if vErr != nil {
		var buf bytes.Buffer
		st := mapVFSError(vErr)
		_ = gxdr.WriteUint32(&buf, st)
		_ = writePostOpAttr(&buf, dirAttr, dirAttrErr)
		return &HandlerResult{Data: buf.Bytes(), Status: st}, nil
	}

	childAttr, childAttrErr := h.FS.GetAttr(ctx.Context, child)

	var buf bytes.Buffer
	_ = gxdr.WriteUint32(&buf, StatOK)
	if err := gxdr.WriteOpaque(&buf, h.FH.ToHandle(child)); err != nil {
		return nil, err
	}
	_ = writePostOpAttr(&buf, childAttr, childAttrErr)
	_ = writePostOpAttr(&buf, dirAttr, dirAttrErr)
	return &HandlerResult{Data: buf.Bytes(), Status: StatOK}, nil
}
