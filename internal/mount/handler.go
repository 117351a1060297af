package mount

import (
	"bytes"
	"context"

	"github.com/go-nfsd/nfsd3/internal/logger"
	gxdr "github.com/go-nfsd/nfsd3/internal/xdr"
	xdr2 "github.com/rasky/go-xdr/xdr2"
)

// Handler implements the MOUNT v3 procedures against a single-export
// Registry.
type Handler struct {
	Registry *Registry
}

// NewHandler builds a Handler bound to registry.
func NewHandler(registry *Registry) *Handler {
	return &Handler{Registry: registry}
}

// HandlerContext carries the per-call state MOUNT procedures need:
// cancellation and the caller's address for registry bookkeeping.
type HandlerContext struct {
	Context    context.Context
	ClientAddr string
}

// mntRequest is the MNT procedure's dirpath argument, decoded with
// rasky/go-xdr the same way the teacher's Mount handler does.
type mntRequest struct {
	DirPath string
}

// Null implements MOUNTPROC3_NULL.
func (h *Handler) Null(ctx *HandlerContext, args []byte) ([]byte, error) {
	return nil, nil
}

// Mnt implements MOUNTPROC3_MNT (RFC 1813 Appendix I): validates the
// requested path against the single configured export and returns its
// root file handle plus the accepted auth flavors.
func (h *Handler) Mnt(ctx *HandlerContext, args []byte) ([]byte, error) {
	var req mntRequest
	if _, err := xdr2.Unmarshal(bytes.NewReader(args), &req); err != nil {
		return encodeMntReply(StatErrInval, nil), nil
	}

	if req.DirPath != h.Registry.ExportName() {
		logger.Warn("mount denied: unknown export", "path", req.DirPath, "client", ctx.ClientAddr)
		return encodeMntReply(StatErrNoEnt, nil), nil
	}

	h.Registry.Mount(ctx.ClientAddr, req.DirPath)
	logger.Info("mount accepted", "path", req.DirPath, "client", ctx.ClientAddr)
	return encodeMntReply(StatOK, h.Registry.RootHandle()), nil
}

// encodeMntReply writes the fhstatus3 union: status, and on success the
// file handle plus the [AUTH_UNIX, AUTH_NONE] auth flavor list (RFC
// 1813 Appendix I).
func encodeMntReply(status uint32, handle []byte) []byte {
	var buf bytes.Buffer
	_ = gxdr.WriteUint32(&buf, status)
	if status != StatOK {
		return buf.Bytes()
	}
	_ = gxdr.WriteOpaque(&buf, handle)
	_ = gxdr.WriteUint32(&buf, 2)
	_ = gxdr.WriteInt32(&buf, AuthUnix)
	_ = gxdr.WriteInt32(&buf, AuthNull)
	return buf.Bytes()
}

// Dump implements MOUNTPROC3_DUMP: the in-memory list of active mounts,
// encoded as RFC 1813 Appendix I's mountlist linked list.
func (h *Handler) Dump(ctx *HandlerContext, args []byte) ([]byte, error) {
	entries := h.Registry.List()
	var buf bytes.Buffer
	for _, e := range entries {
		_ = gxdr.WriteBool(&buf, true)
		_ = gxdr.WriteString(&buf, e.ClientAddr)
		_ = gxdr.WriteString(&buf, e.Export)
	}
	_ = gxdr.WriteBool(&buf, false)
	return buf.Bytes(), nil
}

// Umnt implements MOUNTPROC3_UMNT: void reply, always succeeds per RFC
// 1813.
func (h *Handler) Umnt(ctx *HandlerContext, args []byte) ([]byte, error) {
	var req mntRequest
	if _, err := xdr2.Unmarshal(bytes.NewReader(args), &req); err != nil {
		return nil, nil
	}
	h.Registry.Unmount(ctx.ClientAddr, req.DirPath)
	return nil, nil
}

// UmntAll implements MOUNTPROC3_UMNTALL: void reply, clears every mount
// record for the calling client.
func (h *Handler) UmntAll(ctx *HandlerContext, args []byte) ([]byte, error) {
	h.Registry.UnmountAll(ctx.ClientAddr)
	return nil, nil
}

// Export implements MOUNTPROC3_EXPORT: the single configured export,
// with an empty group list (no netgroup restrictions in this server).
func (h *Handler) Export(ctx *HandlerContext, args []byte) ([]byte, error) {
	var buf bytes.Buffer
	_ = gxdr.WriteBool(&buf, true)
	_ = gxdr.WriteString(&buf, h.Registry.ExportName())
	_ = gxdr.WriteBool(&buf, false) // empty groups list
	_ = gxdr.WriteBool(&buf, false) // no further export entries
	return buf.Bytes(), nil
}
