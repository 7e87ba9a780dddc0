// Package logdb implements an append-only logger whose output is a
// valid SQLite 3 database file. A Writer streams records one column
// value at a time into a single page-sized buffer, spilling full leaf
// pages to the host; Finalize builds the interior b-tree pages
// bottom-up and patches the file header so stock SQLite tooling can
// query the result. A Reader iterates and binary-searches a finalized
// file out of the same fixed memory footprint.
//
// Each context works out of one page-sized buffer. A Writer allocates
// it at construction and again only when InitForAppend or Recover finds
// a different page size in the file; a Reader allocates it in Init.
// Value searches on a Reader also keep a scratch buffer, sized to the
// longest record compared so far, so the page buffer is not disturbed.
package logdb

import "github.com/joeandaverde/ulogdb/internal/storage"

// WriteIO is the host capability the write context consumes: bulk read
// at offset, bulk write at offset, durable flush. *os.File satisfies
// it.
type WriteIO interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Sync() error
}

// ReadIO is the host capability the read context consumes. The read
// side deliberately carries no write-only methods.
type ReadIO interface {
	ReadAt(p []byte, off int64) (int, error)
}

// Config carries the fixed parameters of a write context.
type Config struct {
	// Columns is the number of columns per record (1..255).
	Columns int `yaml:"columns"`

	// PageSizeExp is the page size as a power of two, 9..16.
	PageSizeExp byte `yaml:"page_size_exp"`

	// ReservedBytes reserves space at the tail of every page. A value
	// of 3 or more enables the per-leaf checksums.
	ReservedBytes byte `yaml:"reserved_bytes"`

	// MaxPagesExp is a roll-over limit on data pages. Roll-over is not
	// supported; any non-zero value is rejected by Init.
	MaxPagesExp byte `yaml:"max_pages_exp"`

	// TableName defaults to "t1".
	TableName string `yaml:"table"`

	// Script is an optional CREATE TABLE statement recorded in the
	// master table. When empty one is generated with columns named
	// c001..cNNN.
	Script string `yaml:"script"`
}

// DefaultTableName is used when Config.TableName is empty.
const DefaultTableName = "t1"

// Column kinds accepted by SetColVal and the search operations,
// re-exported so hosts only import one package.
const (
	TypeInt  = storage.TypeInt
	TypeReal = storage.TypeReal
	TypeBlob = storage.TypeBlob
	TypeText = storage.TypeText
)
