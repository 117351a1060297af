package server

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-nfsd/nfsd3/internal/mount"
	"github.com/go-nfsd/nfsd3/internal/nfs3"
	"github.com/go-nfsd/nfsd3/internal/portmap"
	"github.com/go-nfsd/nfsd3/internal/rpc"
	"github.com/go-nfsd/nfsd3/internal/vfs/memfs"
	gxdr "github.com/go-nfsd/nfsd3/internal/xdr"
	"github.com/stretchr/testify/require"
)

func newTestListener(t *testing.T) *Listener {
	t.Helper()
	l := NewListener(Config{
		Address:             "127.0.0.1",
		Port:                0,
		FS:                  memfs.New(memfs.DefaultConfig()),
		ExportName:          "/export",
		ExportID:            1,
		Limits:              nfs3.DefaultLimits(),
		TrackerTTL:          time.Minute,
		TrackerMaxClients:   16,
		TrackerMaxPerClient: 16,
	})

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	go func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		l.tcpListener = ln
		close(ready)
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			c := newConnection(l, conn)
			go c.serve(ctx)
		}
	}()
	<-ready
	t.Cleanup(func() {
		cancel()
		l.Stop()
	})
	return l
}

// encodeCall builds a raw, unframed RPC call body with an AUTH_NONE
// credential and verifier, matching the shape every real NFS/MOUNT/
// PORTMAP client sends.
func encodeCall(t *testing.T, xid, program, version, procedure uint32, args []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gxdr.WriteUint32(&buf, xid))
	require.NoError(t, gxdr.WriteUint32(&buf, rpc.Call))
	require.NoError(t, gxdr.WriteUint32(&buf, 2))
	require.NoError(t, gxdr.WriteUint32(&buf, program))
	require.NoError(t, gxdr.WriteUint32(&buf, version))
	require.NoError(t, gxdr.WriteUint32(&buf, procedure))
	require.NoError(t, gxdr.WriteUint32(&buf, 0)) // cred flavor AUTH_NONE
	require.NoError(t, gxdr.WriteUint32(&buf, 0)) // cred len
	require.NoError(t, gxdr.WriteUint32(&buf, 0)) // verf flavor AUTH_NONE
	require.NoError(t, gxdr.WriteUint32(&buf, 0)) // verf len
	buf.Write(args)
	return buf.Bytes()
}

func doCall(t *testing.T, addr string, xid, program, version, procedure uint32, args []byte) []byte {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, rpc.WriteRecord(conn, encodeCall(t, xid, program, version, procedure, args)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	reply, err := rpc.ReadRecord(conn)
	require.NoError(t, err)
	return reply
}

// encodeCallWith builds a raw, unframed RPC call body with an explicit
// rpcvers and credential flavor, for exercising the RPC-layer rejection
// paths that encodeCall's fixed AUTH_NONE/rpcvers=2 shape can't reach.
func encodeCallWith(t *testing.T, xid, rpcvers, credFlavor, program, version, procedure uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gxdr.WriteUint32(&buf, xid))
	require.NoError(t, gxdr.WriteUint32(&buf, rpc.Call))
	require.NoError(t, gxdr.WriteUint32(&buf, rpcvers))
	require.NoError(t, gxdr.WriteUint32(&buf, program))
	require.NoError(t, gxdr.WriteUint32(&buf, version))
	require.NoError(t, gxdr.WriteUint32(&buf, procedure))
	require.NoError(t, gxdr.WriteUint32(&buf, credFlavor))
	require.NoError(t, gxdr.WriteUint32(&buf, 0)) // cred len
	require.NoError(t, gxdr.WriteUint32(&buf, 0)) // verf flavor AUTH_NONE
	require.NoError(t, gxdr.WriteUint32(&buf, 0)) // verf len
	return buf.Bytes()
}

// deniedReply parses the reply_stat=MSG_DENIED shape: reject_stat
// followed by its two uint32 payload words (RPC_MISMATCH's [low, high]
// or AUTH_ERROR's [auth_stat, <unused>]).
func deniedReply(t *testing.T, reply []byte) (rejectStat, a, b uint32) {
	t.Helper()
	r := bytes.NewReader(reply)
	_, err := gxdr.ReadUint32(r, "xid")
	require.NoError(t, err)
	msgType, err := gxdr.ReadUint32(r, "msg_type")
	require.NoError(t, err)
	require.Equal(t, rpc.Reply, msgType)
	replyStat, err := gxdr.ReadUint32(r, "reply_stat")
	require.NoError(t, err)
	require.Equal(t, rpc.MsgDenied, replyStat)
	rejectStat, err = gxdr.ReadUint32(r, "reject_stat")
	require.NoError(t, err)
	a, err = gxdr.ReadUint32(r, "a")
	require.NoError(t, err)
	if rejectStat == rpc.RPCMismatch {
		b, err = gxdr.ReadUint32(r, "b")
		require.NoError(t, err)
	}
	return rejectStat, a, b
}

func acceptedStatus(t *testing.T, reply []byte) uint32 {
	t.Helper()
	r := bytes.NewReader(reply)
	_, err := gxdr.ReadUint32(r, "xid")
	require.NoError(t, err)
	_, err = gxdr.ReadUint32(r, "msg_type")
	require.NoError(t, err)
	_, err = gxdr.ReadUint32(r, "reply_stat")
	require.NoError(t, err)
	_, err = gxdr.ReadUint32(r, "verf_flavor")
	require.NoError(t, err)
	_, err = gxdr.ReadUint32(r, "verf_len")
	require.NoError(t, err)
	stat, err := gxdr.ReadUint32(r, "accept_stat")
	require.NoError(t, err)
	return stat
}

// TestNFSNullOverCombinedPort covers spec.md §6: NFS, MOUNT and
// PORTMAP all answer on the single configured port.
func TestNFSNullOverCombinedPort(t *testing.T) {
	l := newTestListener(t)
	reply := doCall(t, l.tcpListener.Addr().String(), 1, nfs3.Program, nfs3.Version, nfs3.ProcNull, nil)
	require.Equal(t, rpc.Success, acceptedStatus(t, reply))
}

func TestMountNullOverCombinedPort(t *testing.T) {
	l := newTestListener(t)
	reply := doCall(t, l.tcpListener.Addr().String(), 2, mount.Program, mount.Version, 0, nil)
	require.Equal(t, rpc.Success, acceptedStatus(t, reply))
}

func TestPortmapGetportOverCombinedPort(t *testing.T) {
	l := newTestListener(t)
	addr := l.tcpListener.Addr().String()

	var args bytes.Buffer
	require.NoError(t, gxdr.WriteUint32(&args, nfs3.Program))
	require.NoError(t, gxdr.WriteUint32(&args, nfs3.Version))
	require.NoError(t, gxdr.WriteUint32(&args, portmap.IPProtoTCP))
	require.NoError(t, gxdr.WriteUint32(&args, 0))

	reply := doCall(t, addr, 3, portmap.Program, portmap.Version, portmap.ProcGetport, args.Bytes())
	require.Equal(t, rpc.Success, acceptedStatus(t, reply))
}

// TestUnknownProgramReturnsProgUnavail covers the RPC-layer routing
// fallback for a program number none of the three tables register.
func TestUnknownProgramReturnsProgUnavail(t *testing.T) {
	l := newTestListener(t)
	reply := doCall(t, l.tcpListener.Addr().String(), 4, 999999, 1, 0, nil)
	require.Equal(t, rpc.ProgUnavail, acceptedStatus(t, reply))
}

// TestNFSVersionMismatchReturnsProgMismatch covers a client requesting
// an NFS version this server does not speak.
func TestNFSVersionMismatchReturnsProgMismatch(t *testing.T) {
	l := newTestListener(t)
	reply := doCall(t, l.tcpListener.Addr().String(), 5, nfs3.Program, 4, nfs3.ProcNull, nil)
	require.Equal(t, rpc.ProgMismatch, acceptedStatus(t, reply))
}

// TestUnknownNFSProcedureReturnsProcUnavail covers a known program at a
// supported version, but with a procedure number outside the table.
func TestUnknownNFSProcedureReturnsProcUnavail(t *testing.T) {
	l := newTestListener(t)
	reply := doCall(t, l.tcpListener.Addr().String(), 6, nfs3.Program, nfs3.Version, 9999, nil)
	require.Equal(t, rpc.ProcUnavail, acceptedStatus(t, reply))
}

// TestRPCVersionMismatchKeepsConnectionOpen covers a call whose rpcvers
// is not 2: the server must reply MSG_DENIED/RPC_MISMATCH(2,2) and keep
// serving later requests on the same connection rather than closing it.
func TestRPCVersionMismatchKeepsConnectionOpen(t *testing.T) {
	l := newTestListener(t)
	conn, err := net.DialTimeout("tcp", l.tcpListener.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, rpc.WriteRecord(conn, encodeCallWith(t, 20, 1, rpc.AuthNull, nfs3.Program, nfs3.Version, nfs3.ProcNull)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	reply, err := rpc.ReadRecord(conn)
	require.NoError(t, err)
	rejectStat, low, high := deniedReply(t, reply)
	require.Equal(t, rpc.RPCMismatch, rejectStat)
	require.Equal(t, uint32(2), low)
	require.Equal(t, uint32(2), high)

	require.NoError(t, rpc.WriteRecord(conn, encodeCall(t, 21, nfs3.Program, nfs3.Version, nfs3.ProcNull, nil)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	reply, err = rpc.ReadRecord(conn)
	require.NoError(t, err)
	require.Equal(t, rpc.Success, acceptedStatus(t, reply))
}

// TestUnsupportedAuthFlavorReturnsAuthError covers a credential flavor
// this server never decodes (AUTH_DES here): the call must be rejected
// with MSG_DENIED/AUTH_ERROR/AUTH_REJECTEDCRED before reaching any
// handler.
func TestUnsupportedAuthFlavorReturnsAuthError(t *testing.T) {
	l := newTestListener(t)
	conn, err := net.DialTimeout("tcp", l.tcpListener.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, rpc.WriteRecord(conn, encodeCallWith(t, 30, 2, rpc.AuthDES, nfs3.Program, nfs3.Version, nfs3.ProcNull)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	reply, err := rpc.ReadRecord(conn)
	require.NoError(t, err)
	rejectStat, authStat, _ := deniedReply(t, reply)
	require.Equal(t, rpc.AuthErr, rejectStat)
	require.Equal(t, rpc.AuthRejectedCred, authStat)
}

// TestSequentialRequestsOnSameConnection covers spec.md §5's pipelined
// per-connection model: three calls in sequence on one connection all
// get correctly framed, correctly ordered replies.
func TestSequentialRequestsOnSameConnection(t *testing.T) {
	l := newTestListener(t)
	conn, err := net.DialTimeout("tcp", l.tcpListener.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	for i, xid := range []uint32{10, 11, 12} {
		require.NoError(t, rpc.WriteRecord(conn, encodeCall(t, xid, nfs3.Program, nfs3.Version, nfs3.ProcNull, nil)))
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		reply, err := rpc.ReadRecord(conn)
		require.NoError(t, err, "call %d", i)

		r := bytes.NewReader(reply)
		gotXID, err := gxdr.ReadUint32(r, "xid")
		require.NoError(t, err)
		require.Equal(t, xid, gotXID)
	}
}
