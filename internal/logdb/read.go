package logdb

import (
	"encoding/binary"

	"github.com/joeandaverde/ulogdb/internal/storage"
)

// Reader is the read context: a cursor over a database produced by
// this library, backed by a single page-sized buffer. A Reader must
// not be used from more than one goroutine.
type Reader struct {
	io  ReadIO
	buf []byte

	// VerifyChecksums enables per-page verification on load when the
	// file reserves checksum bytes. Set before Init.
	VerifyChecksums bool

	pageSizeExp  byte
	resvBytes    byte
	lastLeafPage uint32
	rootPage     uint32
	curPage      uint32
	curRecPos    uint16

	scratch []byte // piecewise record reads during binary search
}

// NewReader constructs a read context over the host capability. The
// page buffer is allocated by Init once the page size is known.
func NewReader(r ReadIO) *Reader {
	return &Reader{io: r}
}

func (r *Reader) pageSize() int {
	return storage.PageSize(r.pageSizeExp)
}

// PageSize returns the resolved page size in bytes. Valid after Init.
func (r *Reader) PageSize() int {
	return r.pageSize()
}

// LastLeafPage returns the header's last data-leaf page number, or 0
// when the file was never (partially) finalized.
func (r *Reader) LastLeafPage() uint32 {
	return r.lastLeafPage
}

func (r *Reader) readBytes(p []byte, off int64) error {
	n, err := r.io.ReadAt(p, off)
	if err != nil {
		return err
	}
	if n != len(p) {
		return storage.ResReadErr
	}
	return nil
}

// Init validates the header (either magic plus the 0xA5 app-id byte),
// resolves the page size, and records the last-leaf slot. The cursor
// starts unpositioned; the first read operation implies First.
func (r *Reader) Init() error {
	var hdr [storage.InitHeaderLen]byte
	if err := r.readBytes(hdr[:], 0); err != nil {
		return err
	}
	if err := storage.CheckSignature(hdr[:]); err != nil {
		return err
	}
	exp := storage.PageSizeExp(binary.BigEndian.Uint16(hdr[storage.OffPageSize:]))
	if exp == 0 {
		return storage.ResInvalidSig
	}
	r.pageSizeExp = exp
	if len(r.buf) != storage.PageSize(exp) {
		r.buf = make([]byte, storage.PageSize(exp))
	}
	r.resvBytes = hdr[storage.OffReservedBytes]
	r.lastLeafPage = binary.BigEndian.Uint32(hdr[storage.OffLastLeafPage:])
	r.rootPage = 0
	r.curPage = 0
	r.curRecPos = 0
	return nil
}

// readCurPage loads the page at the cursor and requires it to be a
// table leaf.
func (r *Reader) readCurPage() error {
	if err := r.readBytes(r.buf, int64(r.curPage-1)*int64(r.pageSize())); err != nil {
		return err
	}
	if r.buf[0] != byte(storage.PageTypeLeaf) {
		return storage.ResNotFound
	}
	if r.VerifyChecksums && r.resvBytes >= storage.ChecksumLen {
		if err := storage.VerifyLeafChecksums(r.buf, r.pageSize()); err != nil {
			return err
		}
	}
	return nil
}

// First positions the cursor at the first record.
func (r *Reader) First() error {
	r.curPage = 2
	if err := r.readCurPage(); err != nil {
		return err
	}
	if storage.CellCount(r.buf) == 0 {
		return storage.ResNotFound
	}
	r.curRecPos = 0
	return nil
}

// Next advances the cursor, crossing to the next leaf at a page
// boundary. Past the last record it returns ResNotFound and leaves the
// cursor on the last record.
func (r *Reader) Next() error {
	if r.curPage == 0 {
		return r.First()
	}
	recCount := storage.CellCount(r.buf)
	if int(r.curRecPos)+1 < recCount {
		r.curRecPos++
		return nil
	}
	if r.lastLeafPage != 0 && r.curPage >= r.lastLeafPage {
		return storage.ResNotFound
	}
	prev := r.curPage
	r.curPage++
	if err := r.readCurPage(); err != nil {
		r.curPage = prev
		if err2 := r.readCurPage(); err2 != nil {
			return err2
		}
		return storage.ResNotFound
	}
	if storage.CellCount(r.buf) == 0 {
		r.curPage = prev
		if err := r.readCurPage(); err != nil {
			return err
		}
		return storage.ResNotFound
	}
	r.curRecPos = 0
	return nil
}

// Prev moves the cursor back, crossing to the previous leaf at a page
// boundary. Before the first record it returns ResNotFound.
func (r *Reader) Prev() error {
	if r.curPage == 0 {
		return r.First()
	}
	if r.curRecPos > 0 {
		r.curRecPos--
		return nil
	}
	if r.curPage <= 2 {
		return storage.ResNotFound
	}
	prev := r.curPage
	r.curPage--
	if err := r.readCurPage(); err != nil {
		r.curPage = prev
		if err2 := r.readCurPage(); err2 != nil {
			return err2
		}
		return storage.ResNotFound
	}
	r.curRecPos = uint16(storage.CellCount(r.buf)) - 1
	return nil
}

// Last positions the cursor at the last record. The file must have
// been at least partially finalized so the last leaf is known.
func (r *Reader) Last() error {
	if r.lastLeafPage == 0 {
		return storage.ResNotFinalized
	}
	r.curPage = r.lastLeafPage
	if err := r.readCurPage(); err != nil {
		return err
	}
	recCount := storage.CellCount(r.buf)
	if recCount == 0 {
		return storage.ResNotFound
	}
	r.curRecPos = uint16(recCount) - 1
	return nil
}

// ReadColVal returns the serial type and body bytes of a column of the
// current record. The slice aliases the read buffer and is only valid
// until the next operation on the Reader.
func (r *Reader) ReadColVal(colIdx int) (uint32, []byte, error) {
	if r.curPage == 0 {
		if err := r.First(); err != nil {
			return 0, nil, err
		}
	}
	recPos := int(storage.CellPointer(r.buf, int(r.curRecPos)))
	hdrPos, dataPos, _, _, err := storage.LocateColumn(r.buf[recPos:], colIdx)
	if err != nil {
		return 0, nil, err
	}
	serial, _ := storage.Varint32(r.buf[recPos+hdrPos:])
	bodyLen := int(storage.DeriveDataLen(serial))
	start := recPos + dataPos
	return serial, r.buf[start : start+bodyLen], nil
}

// ColCount returns the number of columns in the current record.
func (r *Reader) ColCount() (int, error) {
	if r.curPage == 0 {
		if err := r.First(); err != nil {
			return 0, err
		}
	}
	recPos := int(storage.CellPointer(r.buf, int(r.curRecPos)))
	pos := recPos + storage.LenOfRecLen
	_, n := storage.Varint32(r.buf[pos:]) // row id
	pos += n
	hdrLen, n := storage.Varint16(r.buf[pos:])
	pos += n
	remaining := int(hdrLen) - n
	count := 0
	for remaining > 0 {
		_, n := storage.Varint32(r.buf[pos:])
		pos += n
		remaining -= n
		count++
	}
	return count, nil
}

// RowID returns the row id of the current record.
func (r *Reader) RowID() (uint32, error) {
	if r.curPage == 0 {
		if err := r.First(); err != nil {
			return 0, err
		}
	}
	return r.rowidAt(int(r.curRecPos)), nil
}

// rowidAt reads the row id of the record at the given cell index of
// the page in the buffer, leaf or interior.
func (r *Reader) rowidAt(pos int) uint32 {
	cellPos := int(storage.CellPointer(r.buf, pos))
	skip := 4
	if r.buf[0] == byte(storage.PageTypeLeaf) {
		skip = storage.LenOfRecLen
	}
	rowid, _ := storage.Varint32(r.buf[cellPos+skip:])
	return rowid
}
