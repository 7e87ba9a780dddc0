package command

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/joeandaverde/ulogdb/internal/host"
	"github.com/joeandaverde/ulogdb/internal/logdb"
	"github.com/joeandaverde/ulogdb/internal/storage"
)

type DumpCommand struct {
	Log *logrus.Logger
}

func (c *DumpCommand) Help() string {
	helpText := `
Usage: ulogdb dump [options]

  Prints every row as CSV on stdout.

Options:

	-db=""      Database file to read
	-verify     Verify page checksums while reading
`

	return strings.TrimSpace(helpText)
}

func (c *DumpCommand) Synopsis() string {
	return "Dumps all rows as CSV"
}

func (c *DumpCommand) Run(args []string) int {
	var dbPath string
	var verify bool

	cmdFlags := flag.NewFlagSet("dump", flag.ExitOnError)
	cmdFlags.StringVar(&dbPath, "db", "", "database file")
	cmdFlags.BoolVar(&verify, "verify", false, "verify checksums")
	if err := cmdFlags.Parse(args); err != nil {
		return 1
	}
	if dbPath == "" {
		c.Log.Error("dump: -db is required")
		return 1
	}

	file, err := host.OpenReadOnly(dbPath)
	if err != nil {
		c.Log.WithError(err).Error("dump: opening database file")
		return 1
	}
	defer file.Close()

	reader := logdb.NewReader(file)
	reader.VerifyChecksums = verify
	if err := reader.Init(); err != nil {
		c.Log.WithError(err).Error("dump: reading header")
		return 1
	}

	out := csv.NewWriter(os.Stdout)
	defer out.Flush()

	err = reader.First()
	for err == nil {
		cols, cerr := reader.ColCount()
		if cerr != nil {
			c.Log.WithError(cerr).Error("dump: reading record")
			return 1
		}
		fields := make([]string, cols)
		for i := 0; i < cols; i++ {
			colType, body, verr := reader.ReadColVal(i)
			if verr != nil {
				c.Log.WithError(verr).Error("dump: reading column")
				return 1
			}
			fields[i] = formatValue(colType, body)
		}
		if werr := out.Write(fields); werr != nil {
			c.Log.WithError(werr).Error("dump: writing output")
			return 1
		}
		err = reader.Next()
	}
	if !errors.Is(err, storage.ResNotFound) {
		c.Log.WithError(err).Error("dump: iterating rows")
		return 1
	}
	return 0
}

func formatValue(colType uint32, body []byte) string {
	switch v := logdb.DecodeValue(colType, body).(type) {
	case nil:
		return ""
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	case []byte:
		return fmt.Sprintf("%x", v)
	}
	return ""
}
