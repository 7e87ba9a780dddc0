package command

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/joeandaverde/ulogdb/internal/host"
	"github.com/joeandaverde/ulogdb/internal/logdb"
	"github.com/joeandaverde/ulogdb/internal/storage"
)

type InfoCommand struct {
	Log *logrus.Logger
}

func (c *InfoCommand) Help() string {
	helpText := `
Usage: ulogdb info -db=<file>

  Prints header information about a database.
`

	return strings.TrimSpace(helpText)
}

func (c *InfoCommand) Synopsis() string {
	return "Prints database header information"
}

func (c *InfoCommand) Run(args []string) int {
	var dbPath string

	cmdFlags := flag.NewFlagSet("info", flag.ExitOnError)
	cmdFlags.StringVar(&dbPath, "db", "", "database file")
	if err := cmdFlags.Parse(args); err != nil {
		return 1
	}
	if dbPath == "" {
		c.Log.Error("info: -db is required")
		return 1
	}

	file, err := host.OpenReadOnly(dbPath)
	if err != nil {
		c.Log.WithError(err).Error("info: opening database file")
		return 1
	}
	defer file.Close()

	reader := logdb.NewReader(file)
	if err := reader.Init(); err != nil {
		c.Log.WithError(err).Error("info: reading header")
		return 1
	}

	fmt.Printf("page size:      %d\n", reader.PageSize())
	fmt.Printf("last leaf page: %d\n", reader.LastLeafPage())

	switch err := reader.Last(); {
	case err == nil:
		rowid, _ := reader.RowID()
		fmt.Printf("last row id:    %d\n", rowid)
	case errors.Is(err, storage.ResNotFinalized):
		fmt.Println("state:          needs recovery")
	case errors.Is(err, storage.ResNotFound):
		fmt.Println("rows:           none")
	default:
		c.Log.WithError(err).Error("info: locating last row")
		return 1
	}
	return 0
}
