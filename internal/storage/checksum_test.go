package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fillLeaf builds a leaf page with a couple of records so the three
// checksum regions are all non-trivial.
func fillLeaf(t *testing.T, pageSize, resv int) []byte {
	t.Helper()

	buf := make([]byte, pageSize)
	InitLeafPage(buf)

	lastPos := pageSize - resv
	for rowid := uint32(1); rowid <= 3; rowid++ {
		body := []byte("payload")
		hdrLen := LenOfHdrLen + 1
		payloadLen := hdrLen + len(body)
		cellLen := LenOfRecLen + VlenOfUint32(rowid) + payloadLen
		lastPos -= cellLen
		pos := lastPos + PutRecLenRowidHdrLen(buf[lastPos:], uint16(payloadLen), rowid, uint16(hdrLen))
		pos += PutVarint32(buf[pos:], DeriveColTypeOrLen(TypeText, false, len(body)))
		copy(buf[pos:], body)

		count := CellCount(buf) + 1
		buf[3] = byte(count >> 8)
		buf[4] = byte(count)
		buf[5] = byte(lastPos >> 8)
		buf[6] = byte(lastPos)
		buf[LeafHeaderLen+(count-1)*2] = byte(lastPos >> 8)
		buf[LeafHeaderLen+(count-1)*2+1] = byte(lastPos)
	}
	return buf
}

func TestLeafChecksumRoundTrip(t *testing.T) {
	assert := require.New(t)

	buf := fillLeaf(t, 512, 3)
	WriteLeafChecksums(buf, 512)
	assert.NoError(VerifyLeafChecksums(buf, 512))
}

func TestLeafChecksumDetectsAnySingleByteFlip(t *testing.T) {
	assert := require.New(t)

	buf := fillLeaf(t, 512, 3)
	WriteLeafChecksums(buf, 512)

	for i := 0; i < 512-ChecksumLen; i++ {
		buf[i] ^= 0x01
		assert.ErrorIs(VerifyLeafChecksums(buf, 512), ResInvChksum, "flip at %d", i)
		buf[i] ^= 0x01
	}
	assert.NoError(VerifyLeafChecksums(buf, 512))
}

func TestLeafChecksumEmptyPage(t *testing.T) {
	assert := require.New(t)

	buf := make([]byte, 512)
	InitLeafPage(buf)
	WriteLeafChecksums(buf, 512)
	assert.NoError(VerifyLeafChecksums(buf, 512))

	buf[200] = 0xFF
	assert.ErrorIs(VerifyLeafChecksums(buf, 512), ResInvChksum)
}

func TestPage1Checksum(t *testing.T) {
	assert := require.New(t)

	buf := make([]byte, 512)
	WriteFileHeader(buf, 9, 3)
	WritePage1Checksum(buf, 512)
	assert.NoError(VerifyPage1Checksum(buf, 512))

	buf[300] ^= 0x40
	assert.ErrorIs(VerifyPage1Checksum(buf, 512), ResInvChksum)
	buf[300] ^= 0x40
	assert.NoError(VerifyPage1Checksum(buf, 512))
}
