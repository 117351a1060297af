package portmap

import (
	"bytes"
	"testing"

	gxdr "github.com/go-nfsd/nfsd3/internal/xdr"
	"github.com/stretchr/testify/require"
)

func encodeMapping(t *testing.T, m Mapping) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gxdr.WriteUint32(&buf, m.Prog))
	require.NoError(t, gxdr.WriteUint32(&buf, m.Vers))
	require.NoError(t, gxdr.WriteUint32(&buf, m.Prot))
	require.NoError(t, gxdr.WriteUint32(&buf, m.Port))
	return buf.Bytes()
}

// TestNullReplyIsEmpty covers scenario S1: PORTMAP NULL answers an
// empty reply body.
func TestNullReplyIsEmpty(t *testing.T) {
	h := NewHandler(NewRegistry())
	reply, err := h.Null(nil)
	require.NoError(t, err)
	require.Empty(t, reply)
}

func TestGetportAnswersRegisteredMapping(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Mapping{Prog: 100003, Vers: 3, Prot: IPProtoTCP, Port: 2049})
	h := NewHandler(reg)

	args := encodeMapping(t, Mapping{Prog: 100003, Vers: 3, Prot: IPProtoTCP})
	reply, err := h.Getport(args)
	require.NoError(t, err)

	port, err := gxdr.ReadUint32(bytes.NewReader(reply), "port")
	require.NoError(t, err)
	require.Equal(t, uint32(2049), port)
}

func TestGetportUnknownMappingReturnsZero(t *testing.T) {
	h := NewHandler(NewRegistry())
	args := encodeMapping(t, Mapping{Prog: 999999, Vers: 1, Prot: IPProtoTCP})
	reply, err := h.Getport(args)
	require.NoError(t, err)

	port, err := gxdr.ReadUint32(bytes.NewReader(reply), "port")
	require.NoError(t, err)
	require.Equal(t, uint32(0), port)
}

func TestDumpListsAllRegisteredMappings(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Mapping{Prog: 100003, Vers: 3, Prot: IPProtoTCP, Port: 2049})
	reg.Register(Mapping{Prog: 100005, Vers: 3, Prot: IPProtoTCP, Port: 2049})
	h := NewHandler(reg)

	reply, err := h.Dump(nil)
	require.NoError(t, err)

	r := bytes.NewReader(reply)
	var mappings []Mapping
	for {
		hasNext, err := gxdr.ReadBool(r, "value_follows")
		require.NoError(t, err)
		if !hasNext {
			break
		}
		prog, err := gxdr.ReadUint32(r, "prog")
		require.NoError(t, err)
		vers, err := gxdr.ReadUint32(r, "vers")
		require.NoError(t, err)
		prot, err := gxdr.ReadUint32(r, "prot")
		require.NoError(t, err)
		port, err := gxdr.ReadUint32(r, "port")
		require.NoError(t, err)
		mappings = append(mappings, Mapping{Prog: prog, Vers: vers, Prot: prot, Port: port})
	}
	require.Len(t, mappings, 2)
}

func TestDispatchRejectsSetUnsetCallit(t *testing.T) {
	h := NewHandler(NewRegistry())
	for _, proc := range []uint32{ProcSet, ProcUnset, ProcCallit} {
		_, ok, err := Dispatch(h, proc, nil)
		require.NoError(t, err)
		require.False(t, ok, "procedure %d should not be dispatched", proc)
	}
}

func TestProcessMessageBuildsAcceptedReply(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Mapping{Prog: 100003, Vers: 3, Prot: IPProtoTCP, Port: 2049})
	s := NewServer(ServerConfig{Registry: reg})

	var call bytes.Buffer
	require.NoError(t, gxdr.WriteUint32(&call, 42)) // xid
	require.NoError(t, gxdr.WriteUint32(&call, 0))   // msg_type = CALL
	require.NoError(t, gxdr.WriteUint32(&call, 2))   // rpcvers
	require.NoError(t, gxdr.WriteUint32(&call, Program))
	require.NoError(t, gxdr.WriteUint32(&call, Version))
	require.NoError(t, gxdr.WriteUint32(&call, ProcNull))
	require.NoError(t, gxdr.WriteUint32(&call, 0)) // cred flavor
	require.NoError(t, gxdr.WriteUint32(&call, 0)) // cred len
	require.NoError(t, gxdr.WriteUint32(&call, 0)) // verf flavor
	require.NoError(t, gxdr.WriteUint32(&call, 0)) // verf len

	reply := s.processMessage(call.Bytes(), "127.0.0.1:1")
	require.Len(t, reply, 24)

	r := bytes.NewReader(reply)
	xid, err := gxdr.ReadUint32(r, "xid")
	require.NoError(t, err)
	require.Equal(t, uint32(42), xid)
}
