package storage

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitLeafPage(t *testing.T) {
	assert := require.New(t)

	buf := make([]byte, 512)
	InitLeafPage(buf)

	assert.Equal(byte(0x0D), buf[0])
	assert.Equal(0, CellCount(buf))
	assert.Equal(uint16(0), CellContentStart(buf))
}

func TestAddInteriorCell(t *testing.T) {
	assert := require.New(t)

	buf := make([]byte, 512)
	InitInteriorPage(buf)
	assert.Equal(byte(0x05), buf[0])

	full := AddInteriorCell(buf, 512, 10, 2, false)
	assert.False(full)
	assert.Equal(1, CellCount(buf))

	cellPos := CellPointer(buf, 0)
	assert.Equal(uint32(2), binary.BigEndian.Uint32(buf[cellPos:]))
	rowid, _ := Varint32(buf[cellPos+4:])
	assert.Equal(uint32(10), rowid)

	full = AddInteriorCell(buf, 512, 20, 3, false)
	assert.False(full)
	assert.Equal(2, CellCount(buf))

	// The terminal child of a level is promoted to the right-child
	// slot with no separator.
	full = AddInteriorCell(buf, 512, 30, 4, true)
	assert.True(full)
	assert.Equal(2, CellCount(buf))
	assert.Equal(uint32(4), binary.BigEndian.Uint32(buf[8:]))
}

func TestAddInteriorCellFillsPage(t *testing.T) {
	assert := require.New(t)

	buf := make([]byte, 512)
	InitInteriorPage(buf)

	child := uint32(2)
	var rowid uint32 = 100
	for {
		if AddInteriorCell(buf, 512, rowid, child, false) {
			break
		}
		child++
		rowid += 50
		assert.Less(int(child), 200, "page never filled")
	}

	// The child that did not fit went to the right-child slot and the
	// cell pointer array still matches the cell count.
	assert.Equal(child, binary.BigEndian.Uint32(buf[8:]))
	count := CellCount(buf)
	assert.Greater(count, 10)
	lowest := int(CellContentStart(buf))
	assert.GreaterOrEqual(lowest, InteriorHeaderLen+count*2)
	for i := 0; i < count; i++ {
		assert.GreaterOrEqual(int(CellPointer(buf, i)), lowest)
	}
}
