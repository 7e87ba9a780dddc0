package logdb

import (
	"encoding/binary"

	"github.com/joeandaverde/ulogdb/internal/storage"
)

// lastRowIDOnPage reads the row id of the last record on a page using
// two 12-byte reads: one from the page head for the last-cell offset,
// one from the cell for the row-id varint. The page itself is never
// pulled into memory.
func (w *Writer) lastRowIDOnPage(page uint32) (uint32, error) {
	var head [12]byte
	pageStart := int64(page-1) * int64(w.pageSize())
	if err := w.readBytes(head[:], pageStart); err != nil {
		return 0, err
	}
	pageType := head[0]
	lastPos := binary.BigEndian.Uint16(head[5:7])
	if err := w.readBytes(head[:], pageStart+int64(lastPos)); err != nil {
		return 0, err
	}
	skip := 4 // interior cell: rowid follows the 4-byte child page
	if pageType == byte(storage.PageTypeLeaf) {
		skip = storage.LenOfRecLen
	}
	rowid, _ := storage.Varint32(head[skip:])
	return rowid, nil
}

// PartialFinalize flushes the open page and records the last data-leaf
// page number in the header, leaving the unfinalized magic in place.
// The resulting file survives a crash and can be resumed with
// InitForAppend or completed with Finalize.
func (w *Writer) PartialFinalize() error {
	flushed := w.flushNeeded
	if flushed {
		if err := w.Flush(); err != nil {
			return err
		}
	}
	if err := w.readBytes(w.buf, 0); err != nil {
		return err
	}
	if storage.Finalized(w.buf) {
		return nil
	}
	binary.BigEndian.PutUint32(w.buf[storage.OffLastLeafPage:], w.curPage)
	return w.writePage(1)
}

// Finalize builds the interior b-tree bottom-up over the leaf chain,
// patches the master record's rootpage and the header's page count,
// and flips the magic to the canonical SQLite signature. It performs
// O(N) host calls and no allocation: every interior page is assembled
// in the writer's single buffer.
func (w *Writer) Finalize() error {
	if err := w.PartialFinalize(); err != nil {
		return err
	}
	if storage.Finalized(w.buf) {
		return nil
	}
	pageSize := w.pageSize()

	cur := uint32(2)
	nextBegin := w.curPage + 1
	nextCur := nextBegin
	if w.curPage != 2 {
		for {
			storage.InitInteriorPage(w.buf)
			for cur < nextBegin {
				rowid, err := w.lastRowIDOnPage(cur)
				if err != nil {
					return err
				}
				isLast := cur+1 == nextBegin
				if storage.AddInteriorCell(w.buf, pageSize, rowid, cur, isLast) {
					if err := w.writePage(nextCur); err != nil {
						return err
					}
					nextCur++
					storage.InitInteriorPage(w.buf)
				}
				cur++
			}
			if nextBegin == nextCur-1 {
				// The level collapsed to a single page: the root.
				break
			}
			cur = nextBegin
			nextBegin = nextCur
		}
	}
	root := nextCur - 1

	if err := w.readBytes(w.buf, 0); err != nil {
		return err
	}
	recPos := int(binary.BigEndian.Uint16(w.buf[storage.FileHeaderLen+5:]))
	_, dataPos, _, _, err := storage.LocateColumn(w.buf[recPos:], 3)
	if err != nil {
		return storage.ResMalformed
	}
	binary.BigEndian.PutUint32(w.buf[recPos+dataPos:], root)
	binary.BigEndian.PutUint32(w.buf[storage.OffPageCount:], root)
	copy(w.buf, storage.SQLiteSignature)
	return w.writePage(1)
}

// NotFinalized reports whether the database still needs Finalize.
func (w *Writer) NotFinalized() (bool, error) {
	if err := w.readBytes(w.buf[:storage.InitHeaderLen], 0); err != nil {
		return false, err
	}
	return !storage.Finalized(w.buf), nil
}
