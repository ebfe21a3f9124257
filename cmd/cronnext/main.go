// cronnext computes the next fire times of standard five-field cron
// expressions and runs registered schedules against a SQLite store.
//
//	cronnext next <expr> [--after TIME] [--count N]
//	cronnext describe <expr>
//	cronnext add --name NAME --expr EXPR [--handler NAME]
//	cronnext list [--output table|yaml]
//	cronnext remove <id|name>
//	cronnext serve
//
// Every subcommand accepts --config pointing at a TOML file.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

type command struct {
	name    string
	summary string
	run     func(args []string, stdout io.Writer) error
}

func commands() []command {
	return []command{
		{"next", "print the next fire times of an expression", runNext},
		{"describe", "print the parsed form of an expression as YAML", runDescribe},
		{"add", "register a schedule in the store", runAdd},
		{"list", "list registered schedules", runList},
		{"remove", "delete a registered schedule", runRemove},
		{"serve", "fire registered schedules until interrupted", runServe},
	}
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stdout)
		return nil
	}

	for _, cmd := range commands() {
		if cmd.name == args[0] {
			err := cmd.run(args[1:], stdout)
			if errors.Is(err, pflag.ErrHelp) {
				return nil
			}
			return err
		}
	}

	printUsage(stdout)
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: cronnext <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, cmd := range commands() {
		fmt.Fprintf(w, "  %-9s %s\n", cmd.name, cmd.summary)
	}
}

// newFlagSet returns a flag set carrying the shared --config flag
func newFlagSet(name string, stdout io.Writer, configPath *string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetOutput(stdout)
	flags.StringVarP(configPath, "config", "c", "", "path to configuration file (TOML)")
	return flags
}
