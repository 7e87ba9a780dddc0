package logdb

import (
	"encoding/binary"

	"github.com/joeandaverde/ulogdb/internal/storage"
)

// InitForAppend resumes logging on an existing database. The header's
// last-leaf slot locates the write position; the slot is then cleared
// and the unfinalized magic restored, so a crash mid-append leaves the
// file in the needs-recovery state rather than looking complete. The
// running row id is recovered from the last cell of the last leaf and
// a fresh empty record is opened.
//
// Returns ResNotFinalized when the last-leaf slot is zero: the caller
// must Finalize (or Recover) first.
func (w *Writer) InitForAppend() error {
	if err := w.readBytes(w.buf[:storage.InitHeaderLen], 0); err != nil {
		return err
	}
	if err := storage.CheckSignature(w.buf); err != nil {
		return err
	}
	exp := storage.PageSizeExp(binary.BigEndian.Uint16(w.buf[storage.OffPageSize:]))
	if exp == 0 {
		return storage.ResMalformed
	}
	if exp != w.pageSizeExp {
		w.pageSizeExp = exp
		w.buf = make([]byte, storage.PageSize(exp))
	}
	if err := w.readBytes(w.buf, 0); err != nil {
		return err
	}
	w.resvBytes = w.buf[storage.OffReservedBytes]
	w.flushNeeded = false
	w.curPage = binary.BigEndian.Uint32(w.buf[storage.OffLastLeafPage:])
	if w.curPage == 0 {
		return storage.ResNotFinalized
	}

	copy(w.buf, storage.ULoggerSignature)
	binary.BigEndian.PutUint32(w.buf[storage.OffLastLeafPage:], 0)
	if err := w.writePage(1); err != nil {
		return err
	}

	rowid, err := w.lastRowIDOnPage(w.curPage)
	if err != nil {
		return err
	}
	w.curRowID = rowid
	if err := w.readBytes(w.buf, int64(w.curPage-1)*int64(w.pageSize())); err != nil {
		return err
	}
	return w.AppendRow()
}
