package logdb

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/joeandaverde/ulogdb/internal/storage"
)

// Writer is the write context: one page-sized buffer holding the leaf
// page currently being filled, the running row id, and the host I/O
// capability. A Writer must not be used from more than one goroutine.
type Writer struct {
	io  WriteIO
	buf []byte

	colCount    int
	pageSizeExp byte
	resvBytes   byte
	maxPagesExp byte
	tableName   string
	script      string

	curPage     uint32 // page currently in buf, 1-based
	curRowID    uint32
	flushNeeded bool
}

// NewWriter constructs a write context over the host capability. The
// page buffer is allocated here, once; no other allocation happens on
// the write path.
func NewWriter(w WriteIO, cfg Config) (*Writer, error) {
	if !storage.ValidPageSizeExp(cfg.PageSizeExp) {
		return nil, storage.ResInvPageSz
	}
	if cfg.Columns < 1 || cfg.Columns > 255 {
		return nil, storage.ResErr
	}
	return &Writer{
		io:          w,
		buf:         make([]byte, storage.PageSize(cfg.PageSizeExp)),
		colCount:    cfg.Columns,
		pageSizeExp: cfg.PageSizeExp,
		resvBytes:   cfg.ReservedBytes,
		maxPagesExp: cfg.MaxPagesExp,
		tableName:   cfg.TableName,
		script:      cfg.Script,
	}, nil
}

func (w *Writer) pageSize() int {
	return storage.PageSize(w.pageSizeExp)
}

// btreeBase is the offset of the b-tree area in the current buffer:
// 100 while the buffer holds page 1, 0 on every data page.
func (w *Writer) btreeBase() int {
	if w.buf[0] == byte(storage.PageTypeLeaf) {
		return 0
	}
	return storage.FileHeaderLen
}

// CurRowID returns the row id of the record currently being built.
func (w *Writer) CurRowID() uint32 {
	return w.curRowID
}

// PageSize returns the page size in bytes.
func (w *Writer) PageSize() int {
	return w.pageSize()
}

func (w *Writer) readBytes(p []byte, off int64) error {
	n, err := w.io.ReadAt(p, off)
	if err != nil {
		return err
	}
	if n != len(p) {
		return storage.ResReadErr
	}
	return nil
}

// writePage persists the buffer as the given page, stamping checksums
// when they are enabled.
func (w *Writer) writePage(page uint32) error {
	if w.resvBytes >= storage.ChecksumLen {
		if page == 1 {
			storage.WritePage1Checksum(w.buf, w.pageSize())
		} else if w.buf[0] == byte(storage.PageTypeLeaf) {
			storage.WriteLeafChecksums(w.buf, w.pageSize())
		}
	}
	off := int64(page-1) * int64(w.pageSize())
	n, err := w.io.WriteAt(w.buf, off)
	if err != nil {
		return err
	}
	if n != w.pageSize() {
		return storage.ResWriteErr
	}
	return nil
}

// Init formats page 1 (file header plus the master-table leaf holding
// a single record with a placeholder rootpage of 2) and readies the
// buffer as the first data leaf.
func (w *Writer) Init() error {
	if !storage.ValidPageSizeExp(w.pageSizeExp) {
		return storage.ResInvPageSz
	}
	if w.maxPagesExp != 0 {
		// Roll-over was never implemented; refuse rather than ignore.
		return storage.ResErr
	}
	pageSize := w.pageSize()
	name := w.tableName
	if name == "" {
		name = DefaultTableName
	}
	script := w.script
	if script == "" {
		script = createTableScript(name, w.colCount)
	}
	if len(script) > pageSize-storage.FileHeaderLen-int(w.resvBytes)-8-10 {
		return storage.ResTooLong
	}

	for i := range w.buf {
		w.buf[i] = 0
	}
	storage.WriteFileHeader(w.buf, w.pageSizeExp, w.resvBytes)
	storage.InitLeafPage(w.buf[storage.FileHeaderLen:])

	// The master record is built with the writer's own append/set
	// machinery, temporarily treating page 1 as the open leaf.
	origCols := w.colCount
	w.colCount = 5
	w.curPage = 1
	w.curRowID = 0
	if err := w.AppendRow(); err != nil {
		return err
	}
	if err := w.SetColVal(0, storage.TypeText, "table"); err != nil {
		return err
	}
	if err := w.SetColVal(1, storage.TypeText, name); err != nil {
		return err
	}
	if err := w.SetColVal(2, storage.TypeText, name); err != nil {
		return err
	}
	if err := w.SetColVal(3, storage.TypeInt, int32(2)); err != nil {
		return err
	}
	if err := w.SetColVal(4, storage.TypeText, script); err != nil {
		return err
	}
	if err := w.writePage(1); err != nil {
		return err
	}

	w.colCount = origCols
	w.curPage = 2
	w.curRowID = 0
	storage.InitLeafPage(w.buf)
	return nil
}

// InitWithScript formats page 1 using the given table name and DDL
// script. The table name should match the one in the script.
func (w *Writer) InitWithScript(tableName, script string) error {
	w.tableName = tableName
	w.script = script
	return w.Init()
}

// createTableScript builds the default DDL with columns c001..cNNN.
func createTableScript(name string, cols int) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(name)
	b.WriteString(" (")
	for i := 1; i <= cols; i++ {
		n := strconv.Itoa(i)
		b.WriteByte('c')
		for pad := 3 - len(n); pad > 0; pad-- {
			b.WriteByte('0')
		}
		b.WriteString(n)
		if i == cols {
			b.WriteByte(')')
		} else {
			b.WriteByte(',')
		}
	}
	return b.String()
}

// ensureSpace computes the content offset for a new cell of the given
// size, spilling the current page to the host and starting a fresh
// leaf when the cell does not fit. Returns the cell offset and the
// (possibly reset) cell count including the new cell.
func (w *Writer) ensureSpace(recCount, lenRecLenRowid, newRecLen int) (int, int, error) {
	base := w.btreeBase()
	pageSize := w.pageSize()
	lastPos := int(storage.CellContentStart(w.buf[base:]))
	if lastPos == 0 {
		lastPos = pageSize - int(w.resvBytes) - newRecLen - lenRecLenRowid
		if lastPos < base+9+storage.ChecksumLen+recCount*2 {
			return 0, 0, storage.ResTooLong
		}
		return lastPos, recCount, nil
	}
	lastPos -= newRecLen + lenRecLenRowid
	if lastPos < base+9+storage.ChecksumLen+recCount*2 {
		if err := w.writePage(w.curPage); err != nil {
			return 0, 0, err
		}
		w.curPage++
		storage.InitLeafPage(w.buf)
		lastPos = pageSize - int(w.resvBytes) - newRecLen - lenRecLenRowid
		recCount = 1
		if lastPos < 9+storage.ChecksumLen+recCount*2 {
			return 0, 0, storage.ResTooLong
		}
	}
	return lastPos, recCount, nil
}

// AppendRow opens a fresh record with every column null, incrementing
// the row id. The record reserves one header byte per column so later
// SetColVal calls can grow it in place.
func (w *Writer) AppendRow() error {
	w.curRowID++
	base := w.btreeBase()
	recCount := storage.CellCount(w.buf[base:]) + 1
	lenRecLenRowid := storage.LenOfRecLen + storage.VlenOfUint32(w.curRowID)
	newRecLen := w.colCount + storage.LenOfHdrLen

	lastPos, recCount, err := w.ensureSpace(recCount, lenRecLenRowid, newRecLen)
	if err != nil {
		return err
	}
	base = w.btreeBase()
	hdr := w.buf[base:]

	for i := lastPos; i < lastPos+newRecLen+lenRecLenRowid; i++ {
		w.buf[i] = 0
	}
	storage.PutRecLenRowidHdrLen(w.buf[lastPos:], uint16(newRecLen), w.curRowID,
		uint16(w.colCount+storage.LenOfHdrLen))
	binary.BigEndian.PutUint16(hdr[3:], uint16(recCount))
	binary.BigEndian.PutUint16(hdr[5:], uint16(lastPos))
	binary.BigEndian.PutUint16(hdr[storage.LeafHeaderLen+(recCount-1)*2:], uint16(lastPos))
	w.flushNeeded = true
	return nil
}

// AppendRowWithValues appends a complete row in one call. Each value's
// kind and width follow the rules in value.go.
func (w *Writer) AppendRowWithValues(types []storage.ColType, values []interface{}) error {
	if len(types) != w.colCount || len(values) != w.colCount {
		return storage.ResErr
	}
	w.curRowID++
	base := w.btreeBase()
	recCount := storage.CellCount(w.buf[base:]) + 1
	lenRecLenRowid := storage.LenOfRecLen + storage.VlenOfUint32(w.curRowID)

	hdrLen := storage.LenOfHdrLen
	bodyLen := 0
	for i := 0; i < w.colCount; i++ {
		n, err := valueBodyLen(types[i], values[i])
		if err != nil {
			return err
		}
		if types[i] == storage.TypeReal && values[i] != nil {
			n = 8
		}
		bodyLen += n
		hdrLen += storage.VlenOfUint32(storage.DeriveColTypeOrLen(types[i], values[i] == nil, n))
	}
	newRecLen := hdrLen + bodyLen

	lastPos, recCount, err := w.ensureSpace(recCount, lenRecLenRowid, newRecLen)
	if err != nil {
		return err
	}
	base = w.btreeBase()
	hdr := w.buf[base:]

	pos := lastPos + storage.PutRecLenRowidHdrLen(w.buf[lastPos:], uint16(newRecLen),
		w.curRowID, uint16(hdrLen))
	for i := 0; i < w.colCount; i++ {
		n, _ := valueBodyLen(types[i], values[i])
		if types[i] == storage.TypeReal && values[i] != nil {
			n = 8
		}
		pos += storage.PutVarint32(w.buf[pos:],
			storage.DeriveColTypeOrLen(types[i], values[i] == nil, n))
	}
	for i := 0; i < w.colCount; i++ {
		pos += putValue(w.buf[pos:], types[i], values[i])
	}
	binary.BigEndian.PutUint16(hdr[3:], uint16(recCount))
	binary.BigEndian.PutUint16(hdr[5:], uint16(lastPos))
	binary.BigEndian.PutUint16(hdr[storage.LeafHeaderLen+(recCount-1)*2:], uint16(lastPos))
	w.flushNeeded = true
	return nil
}

// SetColVal writes the value of one column of the current record,
// growing or shrinking the record in place. When the grown record no
// longer fits the open page, the finished records are spilled and the
// in-progress record migrates to the top of a fresh leaf.
func (w *Writer) SetColVal(colIdx int, typ storage.ColType, val interface{}) error {
	base := w.btreeBase()
	pageSize := w.pageSize()
	hdr := w.buf[base:]
	lastPos := int(storage.CellContentStart(hdr))
	if lastPos == 0 {
		if err := w.AppendRow(); err != nil {
			return err
		}
		base = w.btreeBase()
		hdr = w.buf[base:]
		lastPos = int(storage.CellContentStart(hdr))
	}
	recCount := storage.CellCount(hdr)

	hdrPos, dataPos, recLen, hdrLen, err := storage.LocateColumn(w.buf[lastPos:], colIdx)
	if err != nil {
		return err
	}
	hdrPos += lastPos
	dataPos += lastPos

	curSerial, curSerialLen := storage.Varint32(w.buf[hdrPos:])
	curLen := int(storage.DeriveDataLen(curSerial))

	valLen, err := valueBodyLen(typ, val)
	if err != nil {
		return err
	}
	newLen := valLen
	if typ == storage.TypeReal && val != nil {
		newLen = 8
	}
	diff := newLen - curLen

	if int(recLen)+diff+2 > pageSize-int(w.resvBytes) {
		return storage.ResTooLong
	}

	// Conservative probe: would the grown record collide with the cell
	// pointer array?
	if lastPos+curLen-newLen-storage.LenOfHdrLen < base+9+storage.ChecksumLen+recCount*2 {
		if recCount < 2 {
			// A lone record gains nothing from a fresh page.
			return storage.ResTooLong
		}
		prevLastPos := int(binary.BigEndian.Uint16(hdr[storage.LeafHeaderLen+(recCount-2)*2:]))
		binary.BigEndian.PutUint16(hdr[3:], uint16(recCount-1))
		binary.BigEndian.PutUint16(hdr[5:], uint16(prevLastPos))
		if err := w.writePage(w.curPage); err != nil {
			return err
		}
		w.curPage++
		storage.InitLeafPage(w.buf)
		base = 0
		hdr = w.buf

		// Relocate the in-progress record to the top of the fresh page.
		_, rowidLen := storage.Varint32(w.buf[lastPos+storage.LenOfRecLen:])
		cellLen := storage.LenOfRecLen + rowidLen + int(recLen)
		newPos := pageSize - int(w.resvBytes) - cellLen
		copy(w.buf[newPos:newPos+cellLen], w.buf[lastPos:lastPos+cellLen])
		hdrPos += newPos - lastPos
		dataPos += newPos - lastPos
		lastPos = newPos
		recCount = 1
		binary.BigEndian.PutUint16(hdr[3:], uint16(recCount))
		binary.BigEndian.PutUint16(hdr[5:], uint16(lastPos))
	}

	// Shift everything ahead of the column body to open (or close) the
	// gap, then drop the value in.
	newLastPos := lastPos - diff
	copy(w.buf[newLastPos:newLastPos+(dataPos-lastPos)], w.buf[lastPos:dataPos])
	putValue(w.buf[dataPos-diff:], typ, val)

	// The serial-type varint may have changed width; shift the record
	// prefix and header once more if so.
	newSerial := storage.DeriveColTypeOrLen(typ, val == nil, newLen)
	newSerialLen := storage.VlenOfUint32(newSerial)
	hdrDiff := newSerialLen - curSerialLen
	diff += hdrDiff
	if hdrDiff != 0 {
		copy(w.buf[newLastPos-hdrDiff:newLastPos-hdrDiff+(hdrPos-lastPos)],
			w.buf[newLastPos:newLastPos+(hdrPos-lastPos)])
	}
	storage.PutVarint32(w.buf[hdrPos-diff:], newSerial)

	newLastPos -= hdrDiff
	storage.PutRecLenRowidHdrLen(w.buf[newLastPos:], uint16(int(recLen)+diff),
		w.curRowID, uint16(int(hdrLen)+hdrDiff))
	binary.BigEndian.PutUint16(hdr[5:], uint16(newLastPos))
	binary.BigEndian.PutUint16(hdr[storage.LeafHeaderLen+(recCount-1)*2:], uint16(newLastPos))
	w.flushNeeded = true
	return nil
}

// GetColVal returns the serial type and body bytes of a column of the
// record currently being built. The slice aliases the write buffer and
// is only valid until the next operation on the Writer.
func (w *Writer) GetColVal(colIdx int) (uint32, []byte, error) {
	lastPos := int(storage.CellContentStart(w.buf[w.btreeBase():]))
	if lastPos == 0 {
		return 0, nil, storage.ResNotFound
	}
	hdrPos, dataPos, _, _, err := storage.LocateColumn(w.buf[lastPos:], colIdx)
	if err != nil {
		return 0, nil, err
	}
	serial, _ := storage.Varint32(w.buf[lastPos+hdrPos:])
	bodyLen := int(storage.DeriveDataLen(serial))
	start := lastPos + dataPos
	return serial, w.buf[start : start+bodyLen], nil
}

// Flush writes the open page and asks the host for a durable flush.
// Pages are normally written only when full; hosts that need
// record-level durability call this after each row.
func (w *Writer) Flush() error {
	if err := w.writePage(w.curPage); err != nil {
		return err
	}
	if err := w.io.Sync(); err != nil {
		return err
	}
	w.flushNeeded = false
	return nil
}
