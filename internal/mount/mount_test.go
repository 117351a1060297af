package mount

import (
	"bytes"
	"context"
	"testing"

	gxdr "github.com/go-nfsd/nfsd3/internal/xdr"
	xdr2 "github.com/rasky/go-xdr/xdr2"
	"github.com/stretchr/testify/require"
)

func encodeMntArgs(t *testing.T, path string) []byte {
	t.Helper()
	var buf bytes.Buffer
	_, err := xdr2.Marshal(&buf, &mntRequest{DirPath: path})
	require.NoError(t, err)
	return buf.Bytes()
}

func TestMntAcceptsConfiguredExport(t *testing.T) {
	events := make(chan Event, 4)
	reg := NewRegistry("/export", []byte{0x01, 0x02, 0x03}, events)
	h := NewHandler(reg)
	ctx := &HandlerContext{Context: context.Background(), ClientAddr: "10.0.0.5"}

	reply, err := h.Mnt(ctx, encodeMntArgs(t, "/export"))
	require.NoError(t, err)

	r := bytes.NewReader(reply)
	status, err := gxdr.ReadUint32(r, "status")
	require.NoError(t, err)
	require.Equal(t, StatOK, status)

	handle, err := gxdr.ReadOpaque(r, "handle", 64)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, handle)

	count, err := gxdr.ReadUint32(r, "auth_count")
	require.NoError(t, err)
	require.Equal(t, uint32(2), count)

	ev := <-events
	require.True(t, ev.Mounted)
	require.Equal(t, "10.0.0.5", ev.ClientAddr)

	list := reg.List()
	require.Len(t, list, 1)
	require.Equal(t, "/export", list[0].Export)
}

func TestMntRejectsUnknownExport(t *testing.T) {
	reg := NewRegistry("/export", []byte{0xAA}, nil)
	h := NewHandler(reg)
	ctx := &HandlerContext{Context: context.Background(), ClientAddr: "10.0.0.5"}

	reply, err := h.Mnt(ctx, encodeMntArgs(t, "/nope"))
	require.NoError(t, err)

	r := bytes.NewReader(reply)
	status, err := gxdr.ReadUint32(r, "status")
	require.NoError(t, err)
	require.Equal(t, StatErrNoEnt, status)
	require.Empty(t, reg.List())
}

func TestUmntAllClearsClientMounts(t *testing.T) {
	reg := NewRegistry("/export", []byte{0xAA}, nil)
	h := NewHandler(reg)
	ctx := &HandlerContext{Context: context.Background(), ClientAddr: "10.0.0.5"}

	_, err := h.Mnt(ctx, encodeMntArgs(t, "/export"))
	require.NoError(t, err)
	require.Len(t, reg.List(), 1)

	_, err = h.UmntAll(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, reg.List())
}

func TestDumpListsActiveMounts(t *testing.T) {
	reg := NewRegistry("/export", []byte{0xAA}, nil)
	h := NewHandler(reg)
	ctx := &HandlerContext{Context: context.Background(), ClientAddr: "10.0.0.5"}
	_, err := h.Mnt(ctx, encodeMntArgs(t, "/export"))
	require.NoError(t, err)

	reply, err := h.Dump(ctx, nil)
	require.NoError(t, err)
	r := bytes.NewReader(reply)
	hasNext, err := gxdr.ReadBool(r, "value_follows")
	require.NoError(t, err)
	require.True(t, hasNext)
	host, err := gxdr.ReadString(r, "hostname", 256)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.5", host)
}

func TestDispatchReportsUnknownProcedure(t *testing.T) {
	reg := NewRegistry("/export", []byte{0xAA}, nil)
	h := NewHandler(reg)
	ctx := &HandlerContext{Context: context.Background(), ClientAddr: "10.0.0.5"}

	_, ok, err := Dispatch(h, ctx, 99, nil)
	require.NoError(t, err)
	require.False(t, ok)
}
