package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"time"

	"github.com/go-nfsd/nfsd3/internal/logger"
	"github.com/go-nfsd/nfsd3/internal/mount"
	"github.com/go-nfsd/nfsd3/internal/nfs3"
	"github.com/go-nfsd/nfsd3/internal/portmap"
	"github.com/go-nfsd/nfsd3/internal/rpc"
)

// connection serves exactly one TCP client. Per spec.md §5, processing
// is sequential and pipelined: the next request is not read until the
// current reply has been fully written, preserving reply order on the
// wire.
type connection struct {
	listener *Listener
	conn     net.Conn
	addr     string
}

func newConnection(l *Listener, c net.Conn) *connection {
	return &connection{listener: l, conn: c, addr: c.RemoteAddr().String()}
}

func (c *connection) serve(ctx context.Context) {
	defer c.handleClose()

	logger.Debug("connection accepted", "address", c.addr)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		record, err := rpc.ReadRecord(c.conn)
		if err != nil {
			if err != io.EOF {
				logger.Debug("connection read error", "address", c.addr, "error", err)
			}
			return
		}

		if err := c.handleRecord(ctx, record); err != nil {
			logger.Debug("connection handle error", "address", c.addr, "error", err)
			return
		}
	}
}

// handleRecord parses one RPC call, routes it by program number, and
// writes the reply before returning: the connection's single-threaded
// pipeline never begins the next read until this completes.
func (c *connection) handleRecord(ctx context.Context, record []byte) error {
	call, err := rpc.ReadCall(record)
	if err != nil {
		var mismatch *rpc.VersionMismatchError
		if errors.As(err, &mismatch) {
			logger.Debug("rpc version mismatch", "address", c.addr, "xid", mismatch.XID)
			return c.writeReply(mismatch.XID, mustReply(rpc.MakeRPCMismatchReply(mismatch.XID, 2, 2)))
		}
		logger.Debug("malformed rpc call, closing connection", "address", c.addr, "error", err)
		return err
	}

	if !supportedAuthFlavor(call.GetAuthFlavor()) {
		logger.Debug("unsupported auth flavor", "address", c.addr, "flavor", call.GetAuthFlavor())
		return c.writeReply(call.XID, mustReply(rpc.MakeAuthErrorReply(call.XID, rpc.AuthRejectedCred)))
	}

	reply, err := c.dispatch(ctx, call)
	if err != nil {
		return c.writeReply(call.XID, mustReply(rpc.MakeSystemErrReply(call.XID)))
	}
	return c.writeReply(call.XID, reply)
}

// supportedAuthFlavor reports whether this server inspects the given
// credential flavor. AUTH_SHORT, AUTH_DES and RPCSEC_GSS are never
// decoded; a call using one of them is rejected before dispatch.
func supportedAuthFlavor(flavor uint32) bool {
	return flavor == rpc.AuthNull || flavor == rpc.AuthUnix
}

// dispatch routes call to the NFS, MOUNT or PORTMAP dispatch table by
// program number, building the fully framed RPC reply.
func (c *connection) dispatch(ctx context.Context, call *rpc.CallMessage) ([]byte, error) {
	switch call.Program {
	case nfs3.Program:
		return c.dispatchNFS(ctx, call)
	case mount.Program:
		return c.dispatchMount(ctx, call)
	case portmap.Program:
		return c.dispatchPortmap(call)
	default:
		logger.Debug("unknown program", "program", call.Program, "address", c.addr)
		return rpc.MakeProgUnavailReply(call.XID)
	}
}

func (c *connection) dispatchNFS(ctx context.Context, call *rpc.CallMessage) ([]byte, error) {
	if call.Version != nfs3.Version {
		return rpc.MakeProgMismatchReply(call.XID, nfs3.Version, nfs3.Version)
	}

	if nfs3.IsMutating(call.Procedure) {
		if cached, ok := c.listener.tracker.Lookup(c.addr, call.XID); ok {
			return cached, nil
		}
	}

	start := time.Now()
	hctx := nfs3.ExtractHandlerContext(ctx, call, c.addr)
	result, ok, err := nfs3.Dispatch(c.listener.nfsHandler, hctx, call.Procedure, call.Args)
	if !ok {
		return rpc.MakeProcUnavailReply(call.XID)
	}
	if err != nil {
		return rpc.MakeSystemErrReply(call.XID)
	}
	elapsed := time.Since(start)

	reply, err := rpc.MakeAcceptedReply(call.XID, result.Data)
	if err != nil {
		return nil, err
	}

	if c.listener.cfg.Collector != nil {
		c.listener.cfg.Collector.RecordRequest(procedureName(call.Procedure), nfs3.StatusName(result.Status), elapsed)
	}
	if nfs3.IsMutating(call.Procedure) {
		c.listener.tracker.Store(c.addr, call.XID, reply)
	}
	return reply, nil
}

func (c *connection) dispatchMount(ctx context.Context, call *rpc.CallMessage) ([]byte, error) {
	if call.Version != mount.Version {
		return rpc.MakeProgMismatchReply(call.XID, mount.Version, mount.Version)
	}

	hctx := &mount.HandlerContext{Context: ctx, ClientAddr: c.addr}
	data, ok, err := mount.Dispatch(c.listener.mountHandler, hctx, call.Procedure, call.Args)
	if !ok {
		return rpc.MakeProcUnavailReply(call.XID)
	}
	if err != nil {
		return rpc.MakeSystemErrReply(call.XID)
	}
	return rpc.MakeAcceptedReply(call.XID, data)
}

func (c *connection) dispatchPortmap(call *rpc.CallMessage) ([]byte, error) {
	if call.Version != portmap.Version {
		return rpc.MakeProgMismatchReply(call.XID, portmap.Version, portmap.Version)
	}

	data, ok, err := portmap.Dispatch(c.listener.portmapHandler, call.Procedure, call.Args)
	if !ok {
		return rpc.MakeProcUnavailReply(call.XID)
	}
	if err != nil {
		return rpc.MakeSystemErrReply(call.XID)
	}
	return rpc.MakeAcceptedReply(call.XID, data)
}

// writeReply copies reply into a pooled buffer before writing it to the
// wire: READ and READDIRPLUS replies are the largest and most frequent
// allocations in the hot path, and the tiered pool in bufpool.go keeps
// those of up to 1 MiB off the garbage collector.
func (c *connection) writeReply(xid uint32, reply []byte) error {
	if reply == nil {
		return nil
	}
	buf := getReplyBuf(len(reply))
	defer putReplyBuf(buf)
	copy(buf, reply)

	if _, err := c.conn.Write(buf); err != nil {
		return fmt.Errorf("server: write reply xid=0x%x: %w", xid, err)
	}
	return nil
}

func (c *connection) handleClose() {
	if r := recover(); r != nil {
		logger.Error("panic in connection handler", "address", c.addr, "error", r, "stack", string(debug.Stack()))
	}
	_ = c.conn.Close()
	logger.Debug("connection closed", "address", c.addr)
}

// mustReply unwraps a reply-builder error. The only failure mode of
// MakeSystemErrReply is an XDR write error on a bytes.Buffer, which
// never happens; panicking here would be worse than a best-effort nil.
func mustReply(reply []byte, err error) []byte {
	if err != nil {
		return nil
	}
	return reply
}

var procedureNames = map[uint32]string{
	nfs3.ProcNull:        "NULL",
	nfs3.ProcGetAttr:     "GETATTR",
	nfs3.ProcSetAttr:     "SETATTR",
	nfs3.ProcLookup:      "LOOKUP",
	nfs3.ProcAccess:      "ACCESS",
	nfs3.ProcReadlink:    "READLINK",
	nfs3.ProcRead:        "READ",
	nfs3.ProcWrite:       "WRITE",
	nfs3.ProcCreate:      "CREATE",
	nfs3.ProcMkdir:       "MKDIR",
	nfs3.ProcSymlink:     "SYMLINK",
	nfs3.ProcMknod:       "MKNOD",
	nfs3.ProcRemove:      "REMOVE",
	nfs3.ProcRmdir:       "RMDIR",
	nfs3.ProcRename:      "RENAME",
	nfs3.ProcLink:        "LINK",
	nfs3.ProcReaddir:     "READDIR",
	nfs3.ProcReaddirplus: "READDIRPLUS",
	nfs3.ProcFsstat:      "FSSTAT",
	nfs3.ProcFsinfo:      "FSINFO",
	nfs3.ProcPathconf:    "PATHCONF",
	nfs3.ProcCommit:      "COMMIT",
}

func procedureName(proc uint32) string {
	if name, ok := procedureNames[proc]; ok {
		return name
	}
	return fmt.Sprintf("PROC_%d", proc)
}
