package storage

import (
	"bytes"
	"encoding/binary"
)

// The first 100 bytes of page 1 are the database file header. Offsets
// follow https://www.sqlite.org/fileformat.html with three
// customizations for the logger:
//
//   - the magic reads "SQLite3 uLogger\0" while the file is being
//     written and flips to the canonical signature on finalize;
//   - bytes 60-63 (the user version) hold the last data-leaf page
//     number once known, enabling binary search and append;
//   - bytes 68-71 (the application id) start with the sentinel 0xA5.
const (
	SQLiteSignature  = "SQLite format 3\x00"
	ULoggerSignature = "SQLite3 uLogger\x00"

	SignatureLen = 16

	// FileHeaderLen is the length of the page-1 file header.
	FileHeaderLen = 100

	// InitHeaderLen is how much of the header init and append read to
	// validate a file: through the application id at 68-71.
	InitHeaderLen = 72

	OffPageSize      = 16
	OffReservedBytes = 20
	OffPageCount     = 28
	OffLastLeafPage  = 60
	OffAppID         = 68

	// OffPage1Checksum is the slot of the whole-page checksum on
	// page 1 when checksums are enabled.
	OffPage1Checksum = 69

	// AppIDSentinel is the first application-id byte.
	AppIDSentinel = 0xA5
)

// WriteFileHeader fills buf[0:100] with the header of a fresh,
// unfinalized database. The caller zeroes the rest of the page.
func WriteFileHeader(buf []byte, pageSizeExp byte, reservedBytes byte) {
	copy(buf, ULoggerSignature)
	binary.BigEndian.PutUint16(buf[OffPageSize:], StoredPageSize(pageSizeExp))
	buf[18] = 1 // file format write version
	buf[19] = 1 // file format read version
	buf[OffReservedBytes] = reservedBytes
	buf[21] = 64 // max embedded payload fraction
	buf[22] = 32 // min embedded payload fraction
	buf[23] = 32 // leaf payload fraction
	for i := 24; i < 44; i++ {
		buf[i] = 0
	}
	binary.BigEndian.PutUint32(buf[OffPageCount:], 2) // patched on finalize
	binary.BigEndian.PutUint32(buf[44:], 4)           // schema format
	for i := 48; i < 56; i++ {
		buf[i] = 0
	}
	binary.BigEndian.PutUint32(buf[56:], 1) // text encoding: UTF-8
	binary.BigEndian.PutUint32(buf[OffLastLeafPage:], 0)
	binary.BigEndian.PutUint32(buf[64:], 0)
	binary.BigEndian.PutUint32(buf[OffAppID:], uint32(AppIDSentinel)<<24)
	for i := 72; i < 92; i++ {
		buf[i] = 0
	}
	binary.BigEndian.PutUint32(buf[92:], 105)     // version-valid-for
	binary.BigEndian.PutUint32(buf[96:], 3016000) // sqlite version number
}

// CheckSignature validates the magic (finalized or unfinalized) and the
// application-id sentinel of a header.
func CheckSignature(buf []byte) error {
	sig := buf[:SignatureLen]
	if !bytes.Equal(sig, []byte(SQLiteSignature)) && !bytes.Equal(sig, []byte(ULoggerSignature)) {
		return ResInvalidSig
	}
	if buf[OffAppID] != AppIDSentinel {
		return ResInvalidSig
	}
	return nil
}

// Finalized reports whether the header carries the canonical SQLite
// signature.
func Finalized(buf []byte) bool {
	return bytes.Equal(buf[:SignatureLen], []byte(SQLiteSignature))
}
