package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVarint32RoundTrip(t *testing.T) {
	assert := require.New(t)

	values := []uint32{
		0, 1, 100, 127, 128, 5000, 16383, 16384,
		2097151, 2097152, 268435455, 268435456, 4294967295,
	}
	for _, v := range values {
		var buf [5]byte
		n := PutVarint32(buf[:], v)
		assert.Equal(VlenOfUint32(v), n, "encoded length for %d", v)

		got, read := Varint32(buf[:])
		assert.Equal(v, got)
		assert.Equal(n, read)
	}
}

func TestVarint32EncodedLengths(t *testing.T) {
	assert := require.New(t)

	assert.Equal(1, VlenOfUint32(0))
	assert.Equal(1, VlenOfUint32(127))
	assert.Equal(2, VlenOfUint32(128))
	assert.Equal(2, VlenOfUint32(16383))
	assert.Equal(3, VlenOfUint32(16384))
	assert.Equal(3, VlenOfUint32(2097151))
	assert.Equal(4, VlenOfUint32(2097152))
	assert.Equal(4, VlenOfUint32(268435455))
	assert.Equal(5, VlenOfUint32(268435456))
	assert.Equal(5, VlenOfUint32(4294967295))
}

func TestVarint32NoLeadingContinuationByte(t *testing.T) {
	assert := require.New(t)

	for v := uint32(0); v < 2048; v++ {
		var buf [5]byte
		n := PutVarint32(buf[:], v)
		if n == 1 {
			assert.Zero(buf[0] & 0x80)
		} else {
			// The first byte must carry payload bits; an all-zero
			// continuation byte would make the encoding non-minimal.
			assert.NotEqual(byte(0x80), buf[0])
		}
	}
}

func TestVarint16RoundTrip(t *testing.T) {
	assert := require.New(t)

	for _, v := range []uint16{0, 1, 127, 128, 300, 16383, 16384, 65535} {
		var buf [3]byte
		n := PutVarint16(buf[:], v)
		assert.Equal(VlenOfUint16(v), n)

		got, read := Varint16(buf[:])
		assert.Equal(v, got)
		assert.Equal(n, read)
	}
}

func TestVarint32FiveByteBoundary(t *testing.T) {
	assert := require.New(t)

	var buf [5]byte
	n := PutVarint32(buf[:], 4294967295)
	assert.Equal(5, n)
	assert.Equal([]byte{0x8F, 0xFF, 0xFF, 0xFF, 0x7F}, buf[:])
}

func TestVarint32StopsAtFirstClearHighBit(t *testing.T) {
	assert := require.New(t)

	v, n := Varint32([]byte{0x81, 0x00, 0x7F})
	assert.Equal(uint32(128), v)
	assert.Equal(2, n)
}
