package logdb

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/joeandaverde/ulogdb/internal/storage"
)

// rootPageNo resolves the root page of the table b-tree, reading it
// from the master record's rootpage cell on first use.
func (r *Reader) rootPageNo() (uint32, error) {
	if r.rootPage != 0 {
		return r.rootPage, nil
	}
	if err := r.readBytes(r.buf, 0); err != nil {
		return 0, err
	}
	recPos := int(binary.BigEndian.Uint16(r.buf[storage.FileHeaderLen+5:]))
	_, dataPos, _, _, err := storage.LocateColumn(r.buf[recPos:], 3)
	if err != nil {
		return 0, err
	}
	r.rootPage = binary.BigEndian.Uint32(r.buf[recPos+dataPos:])
	return r.rootPage, nil
}

// SrchRowByID descends the interior tree to the record with the given
// row id. The cursor is positioned at the match; ResNotFound leaves it
// untouched. Row-id comparisons are unsigned.
func (r *Reader) SrchRowByID(rowid uint32) error {
	if r.lastLeafPage == 0 {
		return storage.ResNotFinalized
	}
	srchPage, err := r.rootPageNo()
	if err != nil {
		return err
	}
	if srchPage == 0 {
		return storage.ResNotFinalized
	}
	for {
		if err := r.readBytes(r.buf, int64(srchPage-1)*int64(r.pageSize())); err != nil {
			return err
		}
		interior := r.buf[0] == byte(storage.PageTypeInterior)
		recCount := storage.CellCount(r.buf)
		first, size := 0, recCount
		exact := false
		for first < size {
			middle := (first + size) >> 1
			rowidAt := r.rowidAt(middle)
			if rowidAt < rowid {
				first = middle + 1
			} else if rowidAt > rowid {
				size = middle
			} else if interior {
				size = middle
				exact = true
				break
			} else {
				r.curPage = srchPage
				r.curRecPos = uint16(middle)
				return nil
			}
		}
		if !interior {
			// Restore the page the cursor was on before the descent.
			if r.curPage != 0 {
				if err := r.readCurPage(); err != nil {
					return err
				}
			}
			return storage.ResNotFound
		}
		if !exact && first == recCount {
			// Every separator is smaller: descend the right child.
			srchPage = binary.BigEndian.Uint32(r.buf[8:])
		} else {
			cellPos := storage.CellPointer(r.buf, size)
			srchPage = binary.BigEndian.Uint32(r.buf[cellPos:])
		}
	}
}

// compareStored compares a stored (serial type, body) against a host
// value of the given kind. Returns >0 when the stored value is
// greater. A stored serial type incompatible with the kind reports
// ResTypeMismatch.
func compareStored(serial uint32, body []byte, typ storage.ColType, val interface{}) (int, error) {
	switch typ {
	case storage.TypeInt:
		if serial < 1 || serial > 6 {
			return 0, storage.ResTypeMismatch
		}
		storedInt := signedIntAt(body)
		var want int64
		switch v := val.(type) {
		case int8:
			want = int64(v)
		case int16:
			want = int64(v)
		case int32:
			want = int64(v)
		case int64:
			want = v
		default:
			return 0, storage.ResTypeMismatch
		}
		return compareI64(storedInt, want), nil
	case storage.TypeReal:
		if serial != 7 {
			return 0, storage.ResTypeMismatch
		}
		storedBits := int64(binary.BigEndian.Uint64(body))
		var wantBits int64
		switch v := val.(type) {
		case float32:
			wantBits = int64(floatToDoubleBits(math.Float32bits(v)))
		case float64:
			wantBits = int64(math.Float64bits(v))
		default:
			return 0, storage.ResTypeMismatch
		}
		return compareI64(storedBits, wantBits), nil
	case storage.TypeText:
		if serial < 13 || serial%2 == 0 {
			return 0, storage.ResTypeMismatch
		}
		s, ok := val.(string)
		if !ok {
			return 0, storage.ResTypeMismatch
		}
		return bytes.Compare(body, []byte(s)), nil
	case storage.TypeBlob:
		if serial < 12 || serial%2 == 1 {
			return 0, storage.ResTypeMismatch
		}
		b, ok := val.([]byte)
		if !ok {
			return 0, storage.ResTypeMismatch
		}
		return bytes.Compare(body, b), nil
	}
	return 0, storage.ResTypeMismatch
}

func compareI64(a, b int64) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}

func compareU32(a, b uint32) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	}
	return 0
}

// compareLastOnPage compares the last record of a leaf against the
// target, reading the page piecewise (12-byte head, 12-byte cell
// prefix, and only for value searches the record itself) so the
// buffer's current contents survive.
func (r *Reader) compareLastOnPage(page uint32, colIdx int, typ storage.ColType,
	val interface{}, isRowid bool) (cmp int, recPos uint16, err error) {

	var head [12]byte
	pageStart := int64(page-1) * int64(r.pageSize())
	if err := r.readBytes(head[:], pageStart); err != nil {
		return 0, 0, err
	}
	if head[0] != byte(storage.PageTypeLeaf) {
		return 0, 0, storage.ResMalformed
	}
	recCount := binary.BigEndian.Uint16(head[3:])
	if recCount == 0 {
		return 0, 0, storage.ResNotFound
	}
	recPos = recCount - 1
	lastPos := binary.BigEndian.Uint16(head[5:])
	if err := r.readBytes(head[:], pageStart+int64(lastPos)); err != nil {
		return 0, 0, err
	}
	payloadLen, _ := storage.Varint16(head[:])
	rowid, n2 := storage.Varint32(head[storage.LenOfRecLen:])

	if isRowid {
		want, ok := val.(uint32)
		if !ok {
			return 0, 0, storage.ResTypeMismatch
		}
		return compareU32(rowid, want), recPos, nil
	}

	recLen := storage.LenOfRecLen + n2 + int(payloadLen)
	if cap(r.scratch) < recLen {
		r.scratch = make([]byte, recLen)
	}
	rec := r.scratch[:recLen]
	if err := r.readBytes(rec, pageStart+int64(lastPos)); err != nil {
		return 0, 0, err
	}
	hdrPos, dataPos, _, _, err := storage.LocateColumn(rec, colIdx)
	if err != nil {
		return 0, 0, err
	}
	serial, _ := storage.Varint32(rec[hdrPos:])
	bodyLen := int(storage.DeriveDataLen(serial))
	cmp, err = compareStored(serial, rec[dataPos:dataPos+bodyLen], typ, val)
	return cmp, recPos, err
}

// compareInPage compares the record at the given cell index of the
// page in the buffer against the target.
func (r *Reader) compareInPage(pos int, colIdx int, typ storage.ColType,
	val interface{}, isRowid bool) (int, error) {

	if isRowid {
		want, ok := val.(uint32)
		if !ok {
			return 0, storage.ResTypeMismatch
		}
		return compareU32(r.rowidAt(pos), want), nil
	}
	recPos := int(storage.CellPointer(r.buf, pos))
	hdrPos, dataPos, _, _, err := storage.LocateColumn(r.buf[recPos:], colIdx)
	if err != nil {
		return 0, err
	}
	serial, _ := storage.Varint32(r.buf[recPos+hdrPos:])
	bodyLen := int(storage.DeriveDataLen(serial))
	return compareStored(serial, r.buf[recPos+dataPos:recPos+dataPos+bodyLen], typ, val)
}

// BinSrchRowByVal binary-searches by the value of column colIdx (or by
// row id when isRowid is set, with val a uint32). Phase one narrows to
// a leaf by comparing each candidate leaf's last record without
// loading whole pages; phase two searches within the leaf. On an exact
// match the cursor lands on it; otherwise the cursor lands on the
// closest record with a greater value and the call still succeeds.
// When every stored value is smaller than the target, the cursor lands
// on the last record and the call also succeeds. The column must hold
// non-decreasing values for the result to be meaningful.
func (r *Reader) BinSrchRowByVal(colIdx int, typ storage.ColType, val interface{}, isRowid bool) error {
	if r.lastLeafPage == 0 {
		return storage.ResNotFinalized
	}
	first, size := uint32(2), r.lastLeafPage+1
	for first < size {
		middle := (first + size) >> 1
		cmp, recPos, err := r.compareLastOnPage(middle, colIdx, typ, val, isRowid)
		if err != nil {
			return err
		}
		switch {
		case cmp < 0:
			first = middle + 1
		case cmp > 0:
			size = middle
		default:
			r.curPage = middle
			r.curRecPos = recPos
			return r.readCurPage()
		}
	}
	if size == r.lastLeafPage+1 {
		size--
	}
	foundPage := size

	r.curPage = foundPage
	if err := r.readCurPage(); err != nil {
		return err
	}
	recCount := storage.CellCount(r.buf)
	if recCount == 0 {
		return storage.ResNotFound
	}
	lo, hi := 0, recCount-1
	for lo < hi {
		middle := (lo + hi) >> 1
		cmp, err := r.compareInPage(middle, colIdx, typ, val, isRowid)
		if err != nil {
			return err
		}
		switch {
		case cmp < 0:
			lo = middle + 1
		case cmp > 0:
			hi = middle
		default:
			r.curRecPos = uint16(middle)
			return nil
		}
	}
	r.curRecPos = uint16(hi)
	return nil
}
