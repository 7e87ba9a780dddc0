package command

import (
	"flag"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/joeandaverde/ulogdb/internal/host"
	"github.com/joeandaverde/ulogdb/internal/logdb"
)

type FinalizeCommand struct {
	Log *logrus.Logger
}

func (c *FinalizeCommand) Help() string {
	helpText := `
Usage: ulogdb finalize -db=<file>

  Builds the interior b-tree over an unfinalized database and writes
  the canonical SQLite signature, making the file queryable by stock
  tooling.
`

	return strings.TrimSpace(helpText)
}

func (c *FinalizeCommand) Synopsis() string {
	return "Finalizes an unfinalized database"
}

func (c *FinalizeCommand) Run(args []string) int {
	return runRecover(c.Log, "finalize", args)
}

type RecoverCommand struct {
	Log *logrus.Logger
}

func (c *RecoverCommand) Help() string {
	helpText := `
Usage: ulogdb recover -db=<file>

  Scans a crashed database from the end of the file for the last
  intact leaf page, reinstates it, and finalizes. With checksums
  enabled, torn pages are detected and skipped.
`

	return strings.TrimSpace(helpText)
}

func (c *RecoverCommand) Synopsis() string {
	return "Recovers and finalizes a crashed database"
}

func (c *RecoverCommand) Run(args []string) int {
	return runRecover(c.Log, "recover", args)
}

// runRecover drives Writer.Recover, which handles crashed and merely
// unfinalized files alike: both reduce to locating the last leaf and
// rebuilding the interior tree.
func runRecover(log *logrus.Logger, name string, args []string) int {
	var dbPath string

	cmdFlags := flag.NewFlagSet(name, flag.ExitOnError)
	cmdFlags.StringVar(&dbPath, "db", "", "database file")
	if err := cmdFlags.Parse(args); err != nil {
		return 1
	}
	if dbPath == "" {
		log.Errorf("%s: -db is required", name)
		return 1
	}

	file, err := host.Open(dbPath)
	if err != nil {
		log.WithError(err).Errorf("%s: opening database file", name)
		return 1
	}
	defer file.Close()

	size, err := file.Size()
	if err != nil {
		log.WithError(err).Errorf("%s: sizing database file", name)
		return 1
	}

	writer, err := logdb.NewWriter(file, logdb.Config{Columns: 1, PageSizeExp: 12})
	if err != nil {
		log.WithError(err).Errorf("%s: configuring writer", name)
		return 1
	}
	if err := writer.Recover(size); err != nil {
		log.WithError(err).Errorf("%s: recovering", name)
		return 1
	}
	log.Infof("%s: %s is now finalized", name, dbPath)
	return 0
}
