package command

import (
	"encoding/csv"
	"flag"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/joeandaverde/ulogdb/internal/host"
	"github.com/joeandaverde/ulogdb/internal/logdb"
	"github.com/joeandaverde/ulogdb/internal/storage"
)

// CreateConfig is the yaml configuration for create/append runs.
type CreateConfig struct {
	PageSize      int    `yaml:"page_size"`
	Columns       int    `yaml:"columns"`
	Table         string `yaml:"table"`
	ReservedBytes int    `yaml:"reserved_bytes"`
	LogLevel      string `yaml:"log_level"`
}

type CreateCommand struct {
	Log *logrus.Logger
}

func (c *CreateCommand) Help() string {
	helpText := `
Usage: ulogdb create [options] < rows.csv

  Streams CSV rows from stdin into a new database. Integer-looking
  fields are stored as 8-byte integers, decimal-looking fields as
  8-byte reals, everything else as text.

Options:

	-db=""          Database file to create
	-config=""      Optional yaml configuration file
	-page-size=512  Page size in bytes (power of two, 512..65536)
	-columns=0      Column count (defaults to the first row's width)
	-table="t1"     Table name
	-append         Resume an existing database instead of creating
	-no-finalize    Leave the database unfinalized (resumable)
`

	return strings.TrimSpace(helpText)
}

func (c *CreateCommand) Synopsis() string {
	return "Creates a database from CSV rows on stdin"
}

func (c *CreateCommand) Run(args []string) int {
	var dbPath, configPath, table string
	var pageSize, columns int
	var appendMode, noFinalize bool

	cmdFlags := flag.NewFlagSet("create", flag.ExitOnError)
	cmdFlags.StringVar(&dbPath, "db", "", "database file")
	cmdFlags.StringVar(&configPath, "config", "", "config file")
	cmdFlags.IntVar(&pageSize, "page-size", 512, "page size")
	cmdFlags.IntVar(&columns, "columns", 0, "column count")
	cmdFlags.StringVar(&table, "table", "", "table name")
	cmdFlags.BoolVar(&appendMode, "append", false, "resume an existing database")
	cmdFlags.BoolVar(&noFinalize, "no-finalize", false, "skip finalize")
	if err := cmdFlags.Parse(args); err != nil {
		return 1
	}
	if dbPath == "" {
		c.Log.Error("create: -db is required")
		return 1
	}

	cfg := CreateConfig{PageSize: pageSize, Columns: columns, Table: table}
	if configPath != "" {
		if err := loadConfig(configPath, &cfg); err != nil {
			c.Log.WithError(err).Error("create: reading config")
			return 1
		}
	}
	if cfg.LogLevel != "" {
		if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			c.Log.SetLevel(level)
		}
	}

	reader := csv.NewReader(os.Stdin)
	reader.FieldsPerRecord = -1

	first, err := reader.Read()
	if err == io.EOF {
		c.Log.Warn("create: no input rows")
	} else if err != nil {
		c.Log.WithError(err).Error("create: reading input")
		return 1
	}
	if cfg.Columns == 0 {
		cfg.Columns = len(first)
	}
	if cfg.Columns == 0 {
		cfg.Columns = 1
	}

	exp := storage.PageSizeExp(uint16(cfg.PageSize))
	if cfg.PageSize == 65536 {
		exp = 16
	}
	if exp == 0 {
		c.Log.Errorf("create: unsupported page size %d", cfg.PageSize)
		return 1
	}

	file, err := host.Open(dbPath)
	if err != nil {
		c.Log.WithError(err).Error("create: opening database file")
		return 1
	}
	defer file.Close()

	writer, err := logdb.NewWriter(file, logdb.Config{
		Columns:       cfg.Columns,
		PageSizeExp:   exp,
		ReservedBytes: byte(cfg.ReservedBytes),
		TableName:     cfg.Table,
	})
	if err != nil {
		c.Log.WithError(err).Error("create: configuring writer")
		return 1
	}

	if appendMode {
		err = writer.InitForAppend()
	} else {
		err = writer.Init()
	}
	if err != nil {
		c.Log.WithError(err).Error("create: initializing database")
		return 1
	}

	types := make([]storage.ColType, cfg.Columns)
	values := make([]interface{}, cfg.Columns)
	rows := 0
	row := first
	for row != nil {
		for i := 0; i < cfg.Columns; i++ {
			if i < len(row) {
				types[i], values[i] = inferValue(row[i])
			} else {
				types[i], values[i] = storage.TypeText, nil
			}
		}
		// Append mode already opened an empty row; fill it in place.
		if appendMode && rows == 0 {
			for i := 0; i < cfg.Columns; i++ {
				if err := writer.SetColVal(i, types[i], values[i]); err != nil {
					c.Log.WithError(err).Error("create: setting column")
					return 1
				}
			}
		} else if err := writer.AppendRowWithValues(types, values); err != nil {
			c.Log.WithError(err).Error("create: appending row")
			return 1
		}
		rows++
		if rows%100000 == 0 {
			c.Log.Infof("create: %d rows", rows)
		}

		row, err = reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			c.Log.WithError(err).Error("create: reading input")
			return 1
		}
	}

	if noFinalize {
		if err := writer.PartialFinalize(); err != nil {
			c.Log.WithError(err).Error("create: partial finalize")
			return 1
		}
	} else if err := writer.Finalize(); err != nil {
		c.Log.WithError(err).Error("create: finalize")
		return 1
	}
	c.Log.Infof("create: wrote %d rows to %s", rows, dbPath)
	return 0
}

func loadConfig(path string, cfg *CreateConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return yaml.NewDecoder(f).Decode(cfg)
}

// inferValue picks a column kind for a CSV field: integers and reals
// stay numeric at 8-byte width, everything else is text.
func inferValue(field string) (storage.ColType, interface{}) {
	if field == "" {
		return storage.TypeText, nil
	}
	if i, err := strconv.ParseInt(field, 10, 64); err == nil {
		return storage.TypeInt, i
	}
	if f, err := strconv.ParseFloat(field, 64); err == nil {
		return storage.TypeReal, f
	}
	return storage.TypeText, field
}
