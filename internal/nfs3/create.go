package nfs3

import (
	"bytes"

	"github.com/go-nfsd/nfsd3/internal/vfs"
	gxdr "github.com/go-nfsd/nfsd3/internal/xdr"
)

// writeNewObjectReply encodes the common diropres-shaped tail shared by
// CREATE, MKDIR, SYMLINK and MKNOD: an optional new handle, optional
// new attributes, then the parent's wcc_data.
func writeNewObjectReply(buf *bytes.Buffer, h *Handler, ctx *HandlerContext, child vfs.FileID, childErr error, preAttr, postAttr vfs.Attr, preErr, postErr error) error {
	if childErr != nil {
		if err := gxdr.WriteBool(buf, false); err != nil {
			return err
		}
	} else {
		if err := gxdr.WriteBool(buf, true); err != nil {
			return err
		}
		if err := gxdr.WriteOpaque(buf, h.FH.ToHandle(child)); err != nil {
			return err
		}
		childAttr, childAttrErr := h.FS.GetAttr(ctx.Context, child)
		if err := writePostOpAttr(buf, childAttr, childAttrErr); err != nil {
			return err
		}
	}
	return writeWccData(buf, preAttr, postAttr, preErr, postErr)
}

// Create implements NFSPROC3_CREATE (RFC 1813 §3.3.8).
func (h *Handler) Create(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	name, err := gxdr.ReadString(r, "create.name", PathMax)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	how, err := gxdr.ReadEnum(r, "create.how", uint32(Exclusive))
	if err != nil {
		return errorResult(StatErrInval), nil
	}

	var sattr vfs.SetAttr
	var verifier uint64
	if how == Exclusive {
		raw, err := gxdr.ReadFixedOpaque(r, "create.verf", 8)
		if err != nil {
			return errorResult(StatErrInval), nil
		}
		verifier = beUint64(raw)
	} else {
		sattr, err = decodeSattr3(r)
		if err != nil {
			return errorResult(StatErrInval), nil
		}
	}

	dir, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	if stat := h.validateName(name); stat != StatOK {
		return errorResult(stat), nil
	}

	preAttr, preErr := h.FS.GetAttr(ctx.Context, dir)
	child, vErr := h.FS.Create(ctx.Context, dir, name, vfsCreateHow(how), sattr, verifier)
	postAttr, postErr := h.FS.GetAttr(ctx.Context, dir)

	var buf bytes.Buffer
	stat2 := mapVFSError(vErr)
	_ = gxdr.WriteUint32(&buf, stat2)
	if err := writeNewObjectReply(&buf, h, ctx, child, vErr, preAttr, postAttr, preErr, postErr); err != nil {
		return nil, err
	}
	return &HandlerResult{Data: buf.Bytes(), Status: stat2}, nil
}

// Mkdir implements NFSPROC3_MKDIR (RFC 1813 §3.3.9).
func (h *Handler) Mkdir(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	name, err := gxdr.ReadString(r, "mkdir.name", PathMax)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	sattr, err := decodeSattr3(r)
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
	child, vErr := h.FS.Mkdir(ctx.Context, dir, name, sattr)
	postAttr, postErr := h.FS.GetAttr(ctx.Context, dir)

	var buf bytes.Buffer
	stat2 := mapVFSError(vErr)
	_ = gxdr.WriteUint32(&buf, stat2)
	if err := writeNewObjectReply(&buf, h, ctx, child, vErr, preAttr, postAttr, preErr, postErr); err != nil {
		return nil, err
	}
	return &HandlerResult{Data: buf.Bytes(), Status: stat2}, nil
}

// Symlink implements NFSPROC3_SYMLINK (RFC 1813 §3.3.10).
func (h *Handler) Symlink(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	name, err := gxdr.ReadString(r, "symlink.name", PathMax)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	sattr, err := decodeSattr3(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	target, err := gxdr.ReadString(r, "symlink.target", PathMax)
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
	child, vErr := h.FS.Symlink(ctx.Context, dir, name, target, sattr)
	postAttr, postErr := h.FS.GetAttr(ctx.Context, dir)

	var buf bytes.Buffer
	stat2 := mapVFSError(vErr)
	_ = gxdr.WriteUint32(&buf, stat2)
	if err := writeNewObjectReply(&buf, h, ctx, child, vErr, preAttr, postAttr, preErr, postErr); err != nil {
		return nil, err
	}
	return &HandlerResult{Data: buf.Bytes(), Status: stat2}, nil
}

// Mknod implements NFSPROC3_MKNOD (RFC 1813 §3.3.11), limited to the
// device- and fifo-node cases VFS can represent.
func (h *Handler) Mknod(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	name, err := gxdr.ReadString(r, "mknod.name", PathMax)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	ftype, err := gxdr.ReadEnum(r, "mknod.type", FTypeFifo)
	if err != nil {
		return errorResult(StatErrInval), nil
	}

	var sattr vfs.SetAttr
	var major, minor uint32
	switch ftype {
	case FTypeChr, FTypeBlk:
		sattr, err = decodeSattr3(r)
		if err != nil {
			return errorResult(StatErrInval), nil
		}
		major, err = gxdr.ReadUint32(r, "mknod.major")
		if err != nil {
			return errorResult(StatErrInval), nil
		}
		minor, err = gxdr.ReadUint32(r, "mknod.minor")
		if err != nil {
			return errorResult(StatErrInval), nil
		}
	case FTypeSock, FTypeFifo:
		sattr, err = decodeSattr3(r)
		if err != nil {
			return errorResult(StatErrInval), nil
		}
	default:
		return errorResult(StatErrBadType), nil
	}

	dir, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	if stat := h.validateName(name); stat != StatOK {
		return errorResult(stat), nil
	}

	preAttr, preErr := h.FS.GetAttr(ctx.Context, dir)
	child, vErr := h.FS.Mknod(ctx.Context, dir, name, vfsFileType(ftype), major, minor, sattr)
	postAttr, postErr := h.FS.GetAttr(ctx.Context, dir)

	var buf bytes.Buffer
	stat2 := mapVFSError(vErr)
	_ = gxdr.WriteUint32(&buf, stat2)
	if err := writeNewObjectReply(&buf, h, ctx, child, vErr, preAttr, postAttr, preErr, postErr); err != nil {
		return nil, err
	}
	return &HandlerResult{Data: buf.Bytes(), Status: stat2}, nil
}

func vfsCreateHow(v uint32) vfs.CreateHow {
	switch v {
	case Guarded:
		return vfs.Guarded
	case Exclusive:
		return vfs.Exclusive
	default:
		return vfs.Unchecked
	}
}

func vfsFileType(v uint32) vfs.FileType {
	switch v {
	case FTypeDir:
		return vfs.TypeDir
	case FTypeBlk:
		return vfs.TypeBlk
	case FTypeChr:
		return vfs.TypeChr
	case FTypeLnk:
		return vfs.TypeLnk
	case FTypeSock:
		return vfs.TypeSock
	case FTypeFifo:
		return vfs.TypeFifo
	default:
		return vfs.TypeReg
	}
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
