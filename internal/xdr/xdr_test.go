package xdr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpaqueRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x01},
		{0x01, 0x02, 0x03},
		{0x01, 0x02, 0x03, 0x04},
		bytes.Repeat([]byte{0xAB}, 257),
	}
	for _, data := range cases {
		var buf bytes.Buffer
		require.NoError(t, WriteOpaque(&buf, data))
		assert.Zero(t, buf.Len()%4, "encoded opaque must be 4-byte aligned")

		got, err := ReadOpaque(&buf, "field", MaxOpaqueLength)
		require.NoError(t, err)
		assert.Equal(t, data, got)
		assert.Zero(t, buf.Len(), "no leftover bytes after decode")
	}
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteString(&buf, "hello world"))
	got, err := ReadString(&buf, "field", MaxOpaqueLength)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestReadOpaqueRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint32(&buf, 1<<20))
	_, err := ReadOpaque(&buf, "field", 1024)
	require.Error(t, err)
	var xerr *Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, KindObjectTooLarge, xerr.Kind)
}

func TestIntegerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint32(&buf, 0xDEADBEEF))
	require.NoError(t, WriteUint64(&buf, 0x0123456789ABCDEF))
	require.NoError(t, WriteInt32(&buf, -1))
	require.NoError(t, WriteBool(&buf, true))

	u32, err := ReadUint32(&buf, "u32")
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), u32)

	u64, err := ReadUint64(&buf, "u64")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0123456789ABCDEF), u64)

	i32, err := ReadInt32(&buf, "i32")
	require.NoError(t, err)
	assert.Equal(t, int32(-1), i32)

	b, err := ReadBool(&buf, "bool")
	require.NoError(t, err)
	assert.True(t, b)
}

func TestReadEnumRejectsOutOfRange(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint32(&buf, 5))
	_, err := ReadEnum(&buf, "ftype", 3)
	require.Error(t, err)
	var xerr *Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, KindInvalidEnumValue, xerr.Kind)
}

func TestReadBoolRejectsValuesOtherThanZeroOrOne(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint32(&buf, 2))
	_, err := ReadBool(&buf, "flag")
	require.Error(t, err)
	var xerr *Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, KindInvalidEnumValue, xerr.Kind)
}

func TestBoundedListRejectsOverflowButKeepsFirst(t *testing.T) {
	l := NewBoundedList[int](10)
	assert.True(t, l.TryPush(1, 8, 0))
	assert.False(t, l.TryPush(2, 8, 0))
	assert.True(t, l.Truncated())
	assert.Equal(t, []int{1}, l.Items())
}

func TestBoundedEntryPlusListTracksTwoBudgets(t *testing.T) {
	l := NewBoundedEntryPlusList[string](20, 8)
	assert.True(t, l.TryPush("a", 5, 5))
	// entrySize fits dircount budget but plusSize would exceed maxcount budget.
	assert.False(t, l.TryPush("b", 5, 5))
	assert.True(t, l.Truncated())
	assert.Equal(t, 1, l.Len())
}
