package logdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/joeandaverde/ulogdb/internal/host"
	"github.com/joeandaverde/ulogdb/internal/storage"
)

// These tests hand the finalized output to a stock SQLite
// implementation: the file has to be readable without knowing anything
// about how it was produced.

func openStock(t *testing.T, path string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newFileWriter(t *testing.T, cfg Config) (*Writer, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "log.db")
	file, err := host.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = file.Close() })

	w, err := NewWriter(file, cfg)
	require.NoError(t, err)
	require.NoError(t, w.Init())
	return w, path
}

func TestStockSQLiteReadsHelloWorld(t *testing.T) {
	assert := require.New(t)

	w, path := newFileWriter(t, Config{Columns: 5, PageSizeExp: 9})
	assert.NoError(w.AppendRow())
	for i, v := range []string{"Hello", "World", "How", "Are", "You"} {
		assert.NoError(w.SetColVal(i, storage.TypeText, v))
	}
	assert.NoError(w.Finalize())

	db := openStock(t, path)
	row := db.QueryRow("SELECT c001, c002, c003, c004, c005 FROM t1")
	var c1, c2, c3, c4, c5 string
	assert.NoError(row.Scan(&c1, &c2, &c3, &c4, &c5))
	assert.Equal([]string{"Hello", "World", "How", "Are", "You"}, []string{c1, c2, c3, c4, c5})
}

func TestStockSQLiteCountsMultiPageChain(t *testing.T) {
	assert := require.New(t)

	const rows = 2000
	w, path := newFileWriter(t, Config{Columns: 3, PageSizeExp: 9})
	for i := 1; i <= rows; i++ {
		assert.NoError(w.AppendRow())
		assert.NoError(w.SetColVal(0, storage.TypeInt, int64(i)))
		if i%5 != 0 {
			assert.NoError(w.SetColVal(1, storage.TypeReal, float64(i)/4))
		}
		assert.NoError(w.SetColVal(2, storage.TypeText, "row payload"))
	}
	assert.NoError(w.Finalize())

	db := openStock(t, path)

	var count int
	assert.NoError(db.QueryRow("SELECT count(*) FROM t1").Scan(&count))
	assert.Equal(rows, count)

	var c1 int64
	var c3 string
	assert.NoError(db.QueryRow("SELECT c001, c003 FROM t1 WHERE rowid = 1999").Scan(&c1, &c3))
	assert.Equal(int64(1999), c1)
	assert.Equal("row payload", c3)

	var nulls int
	assert.NoError(db.QueryRow("SELECT count(*) FROM t1 WHERE c002 IS NULL").Scan(&nulls))
	assert.Equal(rows/5, nulls)

	var real float64
	assert.NoError(db.QueryRow("SELECT c002 FROM t1 WHERE rowid = 2").Scan(&real))
	assert.Equal(0.5, real)
}

func TestStockSQLiteReadsEmptyTable(t *testing.T) {
	assert := require.New(t)

	w, path := newFileWriter(t, Config{Columns: 2, PageSizeExp: 9})
	assert.NoError(w.Finalize())

	db := openStock(t, path)
	var count int
	assert.NoError(db.QueryRow("SELECT count(*) FROM t1").Scan(&count))
	assert.Zero(count)
}

func TestStockSQLiteReadsCustomTableName(t *testing.T) {
	assert := require.New(t)

	w, path := newFileWriter(t, Config{Columns: 1, PageSizeExp: 10, TableName: "sensor_log"})
	assert.NoError(w.AppendRow())
	assert.NoError(w.SetColVal(0, storage.TypeBlob, []byte{1, 2, 3}))
	assert.NoError(w.Finalize())

	db := openStock(t, path)
	var blob []byte
	assert.NoError(db.QueryRow("SELECT c001 FROM sensor_log").Scan(&blob))
	assert.Equal([]byte{1, 2, 3}, blob)
}

func TestStockSQLiteReadsAppendedChain(t *testing.T) {
	assert := require.New(t)

	w, path := newFileWriter(t, Config{Columns: 1, PageSizeExp: 9})
	for i := 1; i <= 800; i++ {
		assert.NoError(w.AppendRow())
		assert.NoError(w.SetColVal(0, storage.TypeInt, int64(i)))
	}
	assert.NoError(w.PartialFinalize())

	file, err := host.Open(path)
	assert.NoError(err)
	defer file.Close()
	w2, err := NewWriter(file, Config{Columns: 1, PageSizeExp: 9})
	assert.NoError(err)
	assert.NoError(w2.InitForAppend())
	assert.NoError(w2.SetColVal(0, storage.TypeInt, int64(801)))
	for i := 802; i <= 1000; i++ {
		assert.NoError(w2.AppendRow())
		assert.NoError(w2.SetColVal(0, storage.TypeInt, int64(i)))
	}
	assert.NoError(w2.Finalize())

	db := openStock(t, path)
	var count, sum int64
	assert.NoError(db.QueryRow("SELECT count(*), sum(c001) FROM t1").Scan(&count, &sum))
	assert.Equal(int64(1000), count)
	assert.Equal(int64(1000*1001/2), sum)
}
