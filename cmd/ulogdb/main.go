package main

import (
	"fmt"
	"os"

	"github.com/joeandaverde/ulogdb/cmd/ulogdb/command"
	"github.com/mitchellh/cli"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	commands := map[string]cli.CommandFactory{
		"create": func() (cli.Command, error) {
			return &command.CreateCommand{Log: logger}, nil
		},
		"dump": func() (cli.Command, error) {
			return &command.DumpCommand{Log: logger}, nil
		},
		"finalize": func() (cli.Command, error) {
			return &command.FinalizeCommand{Log: logger}, nil
		},
		"recover": func() (cli.Command, error) {
			return &command.RecoverCommand{Log: logger}, nil
		},
		"info": func() (cli.Command, error) {
			return &command.InfoCommand{Log: logger}, nil
		},
	}

	ulogCLI := &cli.CLI{
		Args:     os.Args[1:],
		Commands: commands,
		HelpFunc: cli.BasicHelpFunc("ulogdb"),
	}

	exitCode, err := ulogCLI.Run()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		os.Exit(1)
	}

	os.Exit(exitCode)
}
