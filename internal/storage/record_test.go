package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveColTypeOrLen(t *testing.T) {
	assert := require.New(t)

	assert.Equal(uint32(1), DeriveColTypeOrLen(TypeInt, false, 1))
	assert.Equal(uint32(2), DeriveColTypeOrLen(TypeInt, false, 2))
	assert.Equal(uint32(4), DeriveColTypeOrLen(TypeInt, false, 4))
	assert.Equal(uint32(6), DeriveColTypeOrLen(TypeInt, false, 8))
	assert.Equal(uint32(7), DeriveColTypeOrLen(TypeReal, false, 8))
	assert.Equal(uint32(12), DeriveColTypeOrLen(TypeBlob, false, 0))
	assert.Equal(uint32(22), DeriveColTypeOrLen(TypeBlob, false, 5))
	assert.Equal(uint32(13), DeriveColTypeOrLen(TypeText, false, 0))
	assert.Equal(uint32(23), DeriveColTypeOrLen(TypeText, false, 5))

	// Null wins over every kind.
	assert.Equal(uint32(0), DeriveColTypeOrLen(TypeInt, true, 4))
	assert.Equal(uint32(0), DeriveColTypeOrLen(TypeText, true, 10))
}

func TestDeriveDataLenIsInverse(t *testing.T) {
	assert := require.New(t)

	for _, length := range []int{1, 2, 4, 8} {
		serial := DeriveColTypeOrLen(TypeInt, false, length)
		assert.Equal(uint32(length), DeriveDataLen(serial))
	}
	for _, length := range []int{0, 1, 57, 300} {
		assert.Equal(uint32(length), DeriveDataLen(DeriveColTypeOrLen(TypeBlob, false, length)))
		assert.Equal(uint32(length), DeriveDataLen(DeriveColTypeOrLen(TypeText, false, length)))
	}
	// REAL is always stored as an 8-byte double.
	assert.Equal(uint32(8), DeriveDataLen(DeriveColTypeOrLen(TypeReal, false, 4)))
	assert.Equal(uint32(8), DeriveDataLen(DeriveColTypeOrLen(TypeReal, false, 8)))

	assert.Equal(uint32(0), DeriveDataLen(0))
	assert.Equal(uint32(6), DeriveDataLen(5))
	assert.Equal(uint32(0), DeriveDataLen(8))
	assert.Equal(uint32(0), DeriveDataLen(11))
}

// buildRecord assembles a record the way the streaming writer lays it
// out: 3-byte record length, row id, 2-byte header length, serial
// types, bodies.
func buildRecord(t *testing.T, rowid uint32, serials []uint32, bodies [][]byte) []byte {
	t.Helper()

	hdrLen := LenOfHdrLen
	bodyLen := 0
	for i, s := range serials {
		hdrLen += VlenOfUint32(s)
		bodyLen += len(bodies[i])
	}
	rec := make([]byte, 64+hdrLen+bodyLen)
	pos := PutRecLenRowidHdrLen(rec, uint16(hdrLen+bodyLen), rowid, uint16(hdrLen))
	for _, s := range serials {
		pos += PutVarint32(rec[pos:], s)
	}
	for _, b := range bodies {
		pos += copy(rec[pos:], b)
	}
	return rec[:pos]
}

func TestLocateColumn(t *testing.T) {
	assert := require.New(t)

	rec := buildRecord(t, 7,
		[]uint32{4, 23, 0, 1},
		[][]byte{{0, 0, 0, 42}, []byte("Hello"), {}, {9}})

	hdrPos, dataPos, recLen, hdrLen, err := LocateColumn(rec, 1)
	assert.NoError(err)
	assert.Equal(uint16(6), hdrLen)
	assert.Equal(uint16(6+4+5+1), recLen)

	serial, _ := Varint32(rec[hdrPos:])
	assert.Equal(uint32(23), serial)
	assert.Equal([]byte("Hello"), rec[dataPos:dataPos+5])

	hdrPos, dataPos, _, _, err = LocateColumn(rec, 3)
	assert.NoError(err)
	serial, _ = Varint32(rec[hdrPos:])
	assert.Equal(uint32(1), serial)
	assert.Equal(byte(9), rec[dataPos])
}

func TestLocateColumnOutOfRange(t *testing.T) {
	assert := require.New(t)

	rec := buildRecord(t, 1, []uint32{1}, [][]byte{{5}})

	_, _, _, _, err := LocateColumn(rec, 1)
	assert.ErrorIs(err, ResMalformed)

	_, _, _, _, err = LocateColumn(rec, 100)
	assert.ErrorIs(err, ResMalformed)
}
