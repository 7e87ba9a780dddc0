package storage

// ColType identifies the kind of a column value supplied by the host.
// The on-disk representation is the serial type derived from the kind
// and the value length.
type ColType int

const (
	TypeInt ColType = iota + 1
	TypeReal
	TypeBlob
	TypeText
)

// Record cell layout on a table leaf:
//
//	vint(payload_len) . vint(row_id) . payload
//	payload = vint(hdr_len) . serial_types... . bodies...
//
// The writer always encodes payload_len as 3 bytes and hdr_len as
// 2 bytes so both can be rewritten in place as the record grows.
const (
	LenOfRecLen = 3
	LenOfHdrLen = 2
)

// DeriveColTypeOrLen returns the serial type for a value of the given
// kind and length. A null value is serial type 0 regardless of kind.
// See https://www.sqlite.org/fileformat.html#record_format
func DeriveColTypeOrLen(typ ColType, null bool, length int) uint32 {
	if null {
		return 0
	}
	switch typ {
	case TypeInt:
		switch length {
		case 1:
			return 1
		case 2:
			return 2
		case 4:
			return 4
		default:
			return 6
		}
	case TypeReal:
		return 7
	case TypeBlob:
		return uint32(length)*2 + 12
	case TypeText:
		return uint32(length)*2 + 13
	}
	return 0
}

var colDataLens = [8]uint32{0, 1, 2, 3, 4, 6, 8, 8}

// DeriveDataLen returns the body length in bytes for a serial type.
func DeriveDataLen(colTypeOrLen uint32) uint32 {
	if colTypeOrLen >= 12 {
		if colTypeOrLen%2 == 1 {
			return (colTypeOrLen - 13) / 2
		}
		return (colTypeOrLen - 12) / 2
	}
	if colTypeOrLen < 8 {
		return colDataLens[colTypeOrLen]
	}
	return 0
}

// LocateColumn walks the record starting at rec[0] to the column at
// colIdx. It returns the offset of the column's serial type within the
// header, the offset of the column's body, and the record's payload and
// header lengths. ResMalformed is returned when the walk crosses the
// header boundary, which is also how an out-of-range column index
// reports.
func LocateColumn(rec []byte, colIdx int) (hdrPos, dataPos int, recLen, hdrLen uint16, err error) {
	pos := 0
	recLen, n := Varint16(rec[pos:])
	pos += n
	_, n = Varint32(rec[pos:]) // row id
	pos += n
	hdrEnd := pos // hdr_len counts itself
	hdrLen, n = Varint16(rec[pos:])
	hdrEnd += int(hdrLen)
	dataPos = hdrEnd
	pos += n
	for i := 0; i < colIdx; i++ {
		if pos >= hdrEnd {
			return 0, 0, 0, 0, ResMalformed
		}
		colTypeOrLen, n := Varint32(rec[pos:])
		pos += n
		dataPos += int(DeriveDataLen(colTypeOrLen))
	}
	if pos >= hdrEnd {
		return 0, 0, 0, 0, ResMalformed
	}
	return pos, dataPos, recLen, hdrLen, nil
}

// PutRecLenRowidHdrLen writes the record length, row id and header
// length prefix at buf[0:]. Record and header lengths use fixed-width
// varints so later in-place growth never shifts the prefix.
func PutRecLenRowidHdrLen(buf []byte, recLen uint16, rowid uint32, hdrLen uint16) int {
	buf[0] = 0x80 | byte(recLen>>14)
	buf[1] = 0x80 | byte(recLen>>7)&0x7F
	buf[2] = byte(recLen) & 0x7F
	n := LenOfRecLen
	n += PutVarint32(buf[n:], rowid)
	buf[n] = 0x80 | byte(hdrLen>>7)
	buf[n+1] = byte(hdrLen) & 0x7F
	return n + LenOfHdrLen
}
