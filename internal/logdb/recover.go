package logdb

import (
	"encoding/binary"

	"github.com/joeandaverde/ulogdb/internal/storage"
)

// Recover repairs a database that crashed before PartialFinalize could
// record the last leaf: it scans pages from the end of the file toward
// page 2 for the last page that looks like an intact leaf, reinstates
// it as the write position, and finalizes. fileSize is the current
// length of the underlying file in bytes; only whole pages are
// considered, so a torn trailing page is skipped naturally.
func (w *Writer) Recover(fileSize int64) error {
	var hdr [storage.InitHeaderLen]byte
	if err := w.readBytes(hdr[:], 0); err != nil {
		return err
	}
	if err := storage.CheckSignature(hdr[:]); err != nil {
		return err
	}
	exp := storage.PageSizeExp(binary.BigEndian.Uint16(hdr[storage.OffPageSize:]))
	if exp == 0 {
		return storage.ResMalformed
	}
	if exp != w.pageSizeExp {
		w.pageSizeExp = exp
		w.buf = make([]byte, storage.PageSize(exp))
	}
	pageSize := w.pageSize()
	w.resvBytes = hdr[storage.OffReservedBytes]

	for page := uint32(fileSize / int64(pageSize)); page >= 2; page-- {
		if err := w.readBytes(w.buf, int64(page-1)*int64(pageSize)); err != nil {
			return err
		}
		rowid, ok := w.inspectLeaf()
		if !ok {
			continue
		}
		w.curPage = page
		w.curRowID = rowid
		// Reinstate the header slot, then build the tree.
		if err := w.readBytes(w.buf, 0); err != nil {
			return err
		}
		copy(w.buf, storage.ULoggerSignature)
		binary.BigEndian.PutUint32(w.buf[storage.OffLastLeafPage:], page)
		if err := w.writePage(1); err != nil {
			return err
		}
		w.flushNeeded = false
		return w.Finalize()
	}
	return storage.ResNotFound
}

// inspectLeaf decides whether the buffer holds an intact leaf page,
// returning its last row id. With checksums enabled the stored sums
// must verify; otherwise structural sanity has to do.
func (w *Writer) inspectLeaf() (uint32, bool) {
	pageSize := w.pageSize()
	if w.buf[0] != byte(storage.PageTypeLeaf) {
		return 0, false
	}
	recCount := storage.CellCount(w.buf)
	lastPos := int(storage.CellContentStart(w.buf))
	if recCount == 0 || lastPos == 0 || lastPos >= pageSize-int(w.resvBytes) {
		return 0, false
	}
	if lastPos < storage.LeafHeaderLen+recCount*2 {
		return 0, false
	}
	if w.resvBytes >= storage.ChecksumLen {
		if err := storage.VerifyLeafChecksums(w.buf, pageSize); err != nil {
			return 0, false
		}
	}
	rowid, _ := storage.Varint32(w.buf[lastPos+storage.LenOfRecLen:])
	return rowid, true
}
