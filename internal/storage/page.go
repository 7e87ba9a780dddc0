package storage

import "encoding/binary"

// PageType is the first byte of a b-tree page.
type PageType byte

const (
	// PageTypeInterior is an interior table b-tree page.
	PageTypeInterior PageType = 0x05

	// PageTypeLeaf is a leaf table b-tree page.
	PageTypeLeaf PageType = 0x0D
)

// InteriorHeaderLen is the length of an interior page header.
const InteriorHeaderLen = 12

// LeafHeaderLen is the length of a leaf page header.
const LeafHeaderLen = 8

// ChecksumLen is the number of reserved tail bytes the checksum layer
// consumes on each leaf page.
const ChecksumLen = 3

// Page header layout (relative to the page's b-tree area, which is the
// page start except on page 1 where it begins at byte 100):
//
//	0     type
//	1-2   first freeblock (always 0 here, the log never frees)
//	3-4   cell count
//	5-6   cell content start; 0 means empty, use end of usable area
//	7     fragmented free bytes
//	8-11  right-most child page (interior pages only)
//
// The cell pointer array starts right after the header and grows by
// 2 bytes per cell; cell content grows from the end of the usable area
// downward.

// InitLeafPage initializes buf as an empty table leaf.
func InitLeafPage(buf []byte) {
	buf[0] = byte(PageTypeLeaf)
	binary.BigEndian.PutUint16(buf[1:], 0)
	binary.BigEndian.PutUint16(buf[3:], 0)
	binary.BigEndian.PutUint16(buf[5:], 0)
	buf[7] = 0
}

// InitInteriorPage initializes buf as an empty table interior page.
func InitInteriorPage(buf []byte) {
	buf[0] = byte(PageTypeInterior)
	binary.BigEndian.PutUint16(buf[1:], 0)
	binary.BigEndian.PutUint16(buf[3:], 0)
	binary.BigEndian.PutUint16(buf[5:], 0)
	buf[7] = 0
}

// CellCount returns the cell count of the b-tree area at buf[0].
func CellCount(buf []byte) int {
	return int(binary.BigEndian.Uint16(buf[3:]))
}

// CellContentStart returns the offset of the lowest cell in the b-tree
// area at buf[0], or 0 when the page holds no cells yet.
func CellContentStart(buf []byte) uint16 {
	return binary.BigEndian.Uint16(buf[5:])
}

// CellPointer returns the content offset of cell i.
func CellPointer(buf []byte, i int) uint16 {
	base := LeafHeaderLen
	if PageType(buf[0]) == PageTypeInterior {
		base = InteriorHeaderLen
	}
	return binary.BigEndian.Uint16(buf[base+2*i:])
}

// AddInteriorCell appends the cell (childPage, rowid) to the interior
// page in buf. When the page cannot take another cell, or last is set,
// childPage is promoted to the page's right-child slot instead and
// AddInteriorCell reports true: the caller must emit the page and start
// a fresh one.
func AddInteriorCell(buf []byte, pageSize int, rowid uint32, childPage uint32, last bool) bool {
	lastPos := int(binary.BigEndian.Uint16(buf[5:]))
	recCount := CellCount(buf) + 1
	recLen := 4 + VlenOfUint32(rowid)

	if lastPos == 0 {
		lastPos = pageSize - recLen
	} else if lastPos-recLen < InteriorHeaderLen+recCount*2 {
		lastPos = 0
	} else {
		lastPos -= recLen
	}
	if last {
		lastPos = 0
	}

	if lastPos == 0 {
		binary.BigEndian.PutUint32(buf[8:], childPage)
		return true
	}
	binary.BigEndian.PutUint32(buf[lastPos:], childPage)
	PutVarint32(buf[lastPos+4:], rowid)
	binary.BigEndian.PutUint16(buf[3:], uint16(recCount))
	binary.BigEndian.PutUint16(buf[InteriorHeaderLen+(recCount-1)*2:], uint16(lastPos))
	binary.BigEndian.PutUint16(buf[5:], uint16(lastPos))
	return false
}
