// Package host provides the I/O capabilities the logger contexts
// consume: a file-backed store for real databases and an in-memory
// store for tests.
package host

import "os"

// File is an os.File-backed store satisfying both the write-side and
// read-side capabilities.
type File struct {
	f *os.File
}

// Open opens (creating if necessary) a database file for logging.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

// OpenReadOnly opens an existing database file for reading.
func OpenReadOnly(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

func (s *File) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

func (s *File) WriteAt(p []byte, off int64) (int, error) {
	return s.f.WriteAt(p, off)
}

func (s *File) Sync() error {
	return s.f.Sync()
}

// Size returns the current file length, as needed by recovery.
func (s *File) Size() (int64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *File) Close() error {
	return s.f.Close()
}
