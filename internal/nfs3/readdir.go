package nfs3

import (
	"bytes"

	"github.com/go-nfsd/nfsd3/internal/vfs"
	gxdr "github.com/go-nfsd/nfsd3/internal/xdr"
)

// encodeDirEntry writes one plain READDIR entry body: fileid, name,
// cookie (the nextentry flag is written by the caller).
func encodeDirEntry(e vfs.DirEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gxdr.WriteUint64(&buf, uint64(e.FileID)); err != nil {
		return nil, err
	}
	if err := gxdr.WriteString(&buf, e.Name); err != nil {
		return nil, err
	}
	if err := gxdr.WriteUint64(&buf, e.Cookie); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeDirEntryPlus writes one READDIRPLUS entry body: fileid, name,
// cookie, name_attributes, name_handle.
func encodeDirEntryPlus(fh *FileHandleConverter, e vfs.DirEntryPlus) ([]byte, error) {
	var buf bytes.Buffer
	if err := gxdr.WriteUint64(&buf, uint64(e.FileID)); err != nil {
		return nil, err
	}
	if err := gxdr.WriteString(&buf, e.Name); err != nil {
		return nil, err
	}
	if err := gxdr.WriteUint64(&buf, e.Cookie); err != nil {
		return nil, err
	}
	if err := writePostOpAttr(&buf, e.Attr, nil); err != nil {
		return nil, err
	}
	if err := gxdr.WriteBool(&buf, true); err != nil {
		return nil, err
	}
	if err := gxdr.WriteOpaque(&buf, fh.ToHandle(e.ChildID)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Readdir implements NFSPROC3_READDIR (RFC 1813 §3.3.16). It projects
// the plus iterator via vfs.ReadDir (the "back-ends auto-promote"
// contract), bounding the reply by count bytes.
func (h *Handler) Readdir(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	cookie, err := gxdr.ReadUint64(r, "readdir.cookie")
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	cookieverfRaw, err := gxdr.ReadFixedOpaque(r, "readdir.cookieverf", 8)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	cookieverf := beUint64(cookieverfRaw)
	count, err := gxdr.ReadUint32(r, "readdir.count")
	if err != nil {
		return errorResult(StatErrInval), nil
	}

	dir, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	dirAttr, dirAttrErr := h.FS.GetAttr(ctx.Context, dir)

	if stat := h.checkCookieVerf(dirAttr, dirAttrErr, cookie, cookieverf); stat != StatOK {
		return errorResult(stat), nil
	}

	it, vErr := vfs.ReadDir(ctx.Context, h.FS, dir, cookie)
	if vErr != nil {
		return errorResult(mapVFSError(vErr)), nil
	}

	list := gxdr.NewBoundedList[[]byte](count)
	eof := false
loop:
	for {
		next := it.Next(ctx.Context)
		switch {
		case next.Err != nil:
			return errorResult(mapVFSError(next.Err)), nil
		case next.Eof:
			eof = true
			break loop
		}
		entryBytes, err := encodeDirEntry(next.Entry)
		if err != nil {
			return nil, err
		}
		if !list.TryPush(entryBytes, uint32(len(entryBytes)+4), 0) {
			break loop
		}
	}
	if list.Truncated() {
		eof = false
	}

	var buf bytes.Buffer
	_ = gxdr.WriteUint32(&buf, StatOK)
	_ = writePostOpAttr(&buf, dirAttr, dirAttrErr)
	if err := gxdr.WriteFixedOpaque(&buf, cookieVerfBytes(dirAttr, dirAttrErr)); err != nil {
		return nil, err
	}
	for _, item := range list.Items() {
		if err := gxdr.WriteBool(&buf, true); err != nil {
			return nil, err
		}
		buf.Write(item)
	}
	_ = gxdr.WriteBool(&buf, false)
	_ = gxdr.WriteBool(&buf, eof)
	return &HandlerResult{Data: buf.Bytes(), Status: StatOK}, nil
}

// Readdirplus implements NFSPROC3_READDIRPLUS (RFC 1813 §3.3.17),
// accounting dircount and maxcount as two independent byte budgets.
func (h *Handler) Readdirplus(ctx *HandlerContext, args []byte) (*HandlerResult, error) {
	r := bytes.NewReader(args)
	fh, err := decodeHandle(r)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	cookie, err := gxdr.ReadUint64(r, "readdirplus.cookie")
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	cookieverfRaw, err := gxdr.ReadFixedOpaque(r, "readdirplus.cookieverf", 8)
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	cookieverf := beUint64(cookieverfRaw)
	dircount, err := gxdr.ReadUint32(r, "readdirplus.dircount")
	if err != nil {
		return errorResult(StatErrInval), nil
	}
	maxcount, err := gxdr.ReadUint32(r, "readdirplus.maxcount")
	if err != nil {
		return errorResult(StatErrInval), nil
	}

	dir, stat := h.resolveHandle(fh)
	if stat != StatOK {
		return errorResult(stat), nil
	}
	dirAttr, dirAttrErr := h.FS.GetAttr(ctx.Context, dir)

	if stat := h.checkCookieVerf(dirAttr, dirAttrErr, cookie, cookieverf); stat != StatOK {
		return errorResult(stat), nil
	}

	it, vErr := h.FS.ReadDirPlus(ctx.Context, dir, cookie)
	if vErr != nil {
		return errorResult(mapVFSError(vErr)), nil
	}

	list := gxdr.NewBoundedEntryPlusList[[]byte](dircount, maxcount)
	eof := false
loop:
	for {
		next := it.Next(ctx.Context)
		switch {
		case next.Err != nil:
			return errorResult(mapVFSError(next.Err)), nil
		case next.Eof:
			eof = true
			break loop
		}
		plain, err := encodeDirEntry(next.Entry.DirEntry)
		if err != nil {
			return nil, err
		}
		plusBytes, err := encodeDirEntryPlus(h.FH, next.Entry)
		if err != nil {
			return nil, err
		}
		if !list.TryPush(plusBytes, uint32(len(plain)+4), uint32(len(plusBytes)+4)) {
			break loop
		}
	}
	if list.Truncated() {
		eof = false
	}

	var buf bytes.Buffer
	_ = gxdr.WriteUint32(&buf, StatOK)
	_ = writePostOpAttr(&buf, dirAttr, dirAttrErr)
	if err := gxdr.WriteFixedOpaque(&buf, cookieVerfBytes(dirAttr, dirAttrErr)); err != nil {
		return nil, err
	}
	for _, item := range list.Items() {
		if err := gxdr.WriteBool(&buf, true); err != nil {
			return nil, err
		}
		buf.Write(item)
	}
	_ = gxdr.WriteBool(&buf, false)
	_ = gxdr.WriteBool(&buf, eof)
	return &HandlerResult{Data: buf.Bytes(), Status: StatOK}, nil
}

// checkCookieVerf validates a non-zero resumption cookie against the
// directory's current verifier, rejecting a stale scan with BAD_COOKIE.
// A cookie of 0 always starts a fresh scan regardless of the verifier
// presented.
func (h *Handler) checkCookieVerf(attr vfs.Attr, attrErr error, cookie, presented uint64) uint32 {
	if cookie == 0 {
		return StatOK
	}
	expected := sentinelCookieVerf
	if attrErr == nil {
		expected = cookieVerfFromAttr(attr)
	}
	if presented != expected {
		return StatErrBadCookie
	}
	return StatOK
}

func cookieVerfBytes(attr vfs.Attr, attrErr error) []byte {
	v := sentinelCookieVerf
	if attrErr == nil {
		v = cookieVerfFromAttr(attr)
	}
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}
