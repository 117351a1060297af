package rpc

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeAuthUnix(auth *UnixAuth) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.BigEndian, auth.Stamp)

	nameLen := uint32(len(auth.MachineName))
	_ = binary.Write(buf, binary.BigEndian, nameLen)
	buf.WriteString(auth.MachineName)
	for i := uint32(0); i < uint32(padLen(nameLen)); i++ {
		buf.WriteByte(0)
	}

	_ = binary.Write(buf, binary.BigEndian, auth.UID)
	_ = binary.Write(buf, binary.BigEndian, auth.GID)
	_ = binary.Write(buf, binary.BigEndian, uint32(len(auth.GIDs)))
	for _, gid := range auth.GIDs {
		_ = binary.Write(buf, binary.BigEndian, gid)
	}
	return buf.Bytes()
}

func TestParseUnixAuthRoundTrip(t *testing.T) {
	original := &UnixAuth{
		Stamp:       uint32(time.Now().Unix()),
		MachineName: "testhost",
		UID:         1000,
		GID:         1000,
		GIDs:        []uint32{4, 24, 27, 30},
	}
	parsed, err := ParseUnixAuth(encodeAuthUnix(original))
	require.NoError(t, err)
	assert.Equal(t, original.Stamp, parsed.Stamp)
	assert.Equal(t, original.MachineName, parsed.MachineName)
	assert.Equal(t, original.UID, parsed.UID)
	assert.Equal(t, original.GID, parsed.GID)
	assert.Equal(t, original.GIDs, parsed.GIDs)
}

func TestParseUnixAuthRejectsExcessiveGroups(t *testing.T) {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.BigEndian, uint32(12345))
	_ = binary.Write(buf, binary.BigEndian, uint32(8))
	_, _ = buf.WriteString("testhost")
	_ = binary.Write(buf, binary.BigEndian, uint32(1000))
	_ = binary.Write(buf, binary.BigEndian, uint32(1000))
	_ = binary.Write(buf, binary.BigEndian, uint32(17))

	_, err := ParseUnixAuth(buf.Bytes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many gids")
}

func TestParseUnixAuthRejectsLongMachineName(t *testing.T) {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.BigEndian, uint32(12345))
	_ = binary.Write(buf, binary.BigEndian, uint32(256))

	_, err := ParseUnixAuth(buf.Bytes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "machine name too long")
}

func TestParseUnixAuthRejectsEmptyBody(t *testing.T) {
	_, err := ParseUnixAuth([]byte{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestAuthFlavorsAreUnique(t *testing.T) {
	flavors := []uint32{AuthNull, AuthUnix, AuthShort, AuthDES}
	seen := make(map[uint32]bool)
	for _, f := range flavors {
		assert.False(t, seen[f])
		seen[f] = true
	}
}

func TestMakeProgMismatchReply(t *testing.T) {
	xid := uint32(0x12345678)
	reply, err := MakeProgMismatchReply(xid, 3, 3)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(reply), 36)

	fragHeader := binary.BigEndian.Uint32(reply[0:4])
	assert.True(t, fragHeader&0x80000000 != 0)
	assert.Equal(t, uint32(len(reply)-4), fragHeader&0x7FFFFFFF)

	assert.Equal(t, xid, binary.BigEndian.Uint32(reply[4:8]))
	assert.Equal(t, Reply, binary.BigEndian.Uint32(reply[8:12]))
	assert.Equal(t, MsgAccepted, binary.BigEndian.Uint32(reply[12:16]))
	assert.Equal(t, ProgMismatch, binary.BigEndian.Uint32(reply[24:28]))

	n := len(reply)
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(reply[n-8:n-4]))
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(reply[n-4:n]))
}

func TestMakeProgMismatchRejectsInvalidRange(t *testing.T) {
	_, err := MakeProgMismatchReply(0x1234, 5, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "low (5) > high (3)")
}

func TestMakeRPCMismatchReply(t *testing.T) {
	xid := uint32(0xAABBCCDD)
	reply, err := MakeRPCMismatchReply(xid, 2, 2)
	require.NoError(t, err)

	assert.Equal(t, xid, binary.BigEndian.Uint32(reply[4:8]))
	assert.Equal(t, Reply, binary.BigEndian.Uint32(reply[8:12]))
	assert.Equal(t, MsgDenied, binary.BigEndian.Uint32(reply[12:16]))
	assert.Equal(t, RPCMismatch, binary.BigEndian.Uint32(reply[16:20]))
	assert.Equal(t, uint32(2), binary.BigEndian.Uint32(reply[20:24]))
	assert.Equal(t, uint32(2), binary.BigEndian.Uint32(reply[24:28]))
}

func TestMakeAuthErrorReply(t *testing.T) {
	xid := uint32(0x11223344)
	reply, err := MakeAuthErrorReply(xid, AuthRejectedCred)
	require.NoError(t, err)

	assert.Equal(t, xid, binary.BigEndian.Uint32(reply[4:8]))
	assert.Equal(t, Reply, binary.BigEndian.Uint32(reply[8:12]))
	assert.Equal(t, MsgDenied, binary.BigEndian.Uint32(reply[12:16]))
	assert.Equal(t, AuthErr, binary.BigEndian.Uint32(reply[16:20]))
	assert.Equal(t, AuthRejectedCred, binary.BigEndian.Uint32(reply[20:24]))
}

func TestReadCallRejectsVersionMismatch(t *testing.T) {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(77)) // xid
	_ = binary.Write(&buf, binary.BigEndian, Call)
	_ = binary.Write(&buf, binary.BigEndian, uint32(1)) // rpcvers
	_ = binary.Write(&buf, binary.BigEndian, uint32(100003))
	_ = binary.Write(&buf, binary.BigEndian, uint32(3))
	_ = binary.Write(&buf, binary.BigEndian, uint32(0))

	_, err := ReadCall(buf.Bytes())
	require.Error(t, err)
	var mismatch *VersionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, uint32(77), mismatch.XID)
}

func TestReadCallRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(42))        // xid
	_ = binary.Write(&buf, binary.BigEndian, Call)               // msg_type
	_ = binary.Write(&buf, binary.BigEndian, uint32(2))          // rpcvers
	_ = binary.Write(&buf, binary.BigEndian, uint32(100003))     // program
	_ = binary.Write(&buf, binary.BigEndian, uint32(3))          // version
	_ = binary.Write(&buf, binary.BigEndian, uint32(1))          // procedure (GETATTR)
	_ = binary.Write(&buf, binary.BigEndian, AuthNull)           // cred flavor
	_ = binary.Write(&buf, binary.BigEndian, uint32(0))          // cred len
	_ = binary.Write(&buf, binary.BigEndian, AuthNull)           // verf flavor
	_ = binary.Write(&buf, binary.BigEndian, uint32(0))          // verf len
	buf.WriteString("argbytes")

	call, err := ReadCall(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(42), call.XID)
	assert.Equal(t, uint32(100003), call.Program)
	assert.Equal(t, uint32(3), call.Version)
	assert.Equal(t, uint32(1), call.Procedure)
	assert.Equal(t, AuthNull, call.GetAuthFlavor())
	assert.Equal(t, []byte("argbytes"), call.Args)
}

func TestRecordRoundTrip(t *testing.T) {
	payload := []byte("hello fragment")
	var framed bytes.Buffer
	require.NoError(t, WriteRecord(&framed, payload))

	got, err := ReadRecord(&framed)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestTransactionTrackerDedupesAndExpires(t *testing.T) {
	tr := NewTransactionTracker(20*time.Millisecond, 256, 1024)
	tr.Store("10.0.0.1:111", 7, []byte("reply-a"))

	reply, ok := tr.Lookup("10.0.0.1:111", 7)
	require.True(t, ok)
	assert.Equal(t, []byte("reply-a"), reply)

	_, ok = tr.Lookup("10.0.0.1:111", 8)
	assert.False(t, ok)

	time.Sleep(30 * time.Millisecond)
	_, ok = tr.Lookup("10.0.0.1:111", 7)
	assert.False(t, ok, "entry should have expired")
}

func TestTransactionTrackerCapsPerClientEntries(t *testing.T) {
	tr := NewTransactionTracker(time.Minute, 256, 4)
	for i := uint32(0); i < 10; i++ {
		tr.Store("client", i, []byte{byte(i)})
	}
	// Only the most recent 4 xids should still be cached.
	hits := 0
	for i := uint32(0); i < 10; i++ {
		if _, ok := tr.Lookup("client", i); ok {
			hits++
		}
	}
	assert.Equal(t, 4, hits)
}

func TestTransactionTrackerCapsClientCount(t *testing.T) {
	tr := NewTransactionTracker(time.Minute, 2, 1024)
	tr.Store("client-a", 1, []byte("a"))
	tr.Store("client-b", 1, []byte("b"))
	tr.Store("client-c", 1, []byte("c"))

	_, okA := tr.Lookup("client-a", 1)
	_, okB := tr.Lookup("client-b", 1)
	_, okC := tr.Lookup("client-c", 1)
	assert.False(t, okA, "oldest client should be evicted")
	assert.True(t, okB)
	assert.True(t, okC)
}
