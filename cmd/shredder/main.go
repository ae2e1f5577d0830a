package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

const appName = "shredder"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// Exit codes
const (
	exitSuccess = 0
	exitError   = 1
	exitWarning = 2
)

// exitCodeError carries a non-zero exit status out of a command.
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string { return e.msg }

func withExitCode(code int, msg string) error {
	return &exitCodeError{code: code, msg: msg}
}

type globalFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           appName,
		Short:         "Securely erase files and folders",
		Long:          "Overwrites files with random data over several passes, re-encrypts them with a discarded key and removes them.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", defaultConfigPath(), "path to the configuration file")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newShredCmd(g), newConfigCmd(g), &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version)
		},
	})
	return root
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appName, "config.yaml")
	}
	return "shredder.yaml"
}

// exitCode maps a command error onto a process status.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	return exitError
}

func main() {
	err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute()
	if err != nil {
		var ec *exitCodeError
		if !errors.As(err, &ec) || ec.code == exitError {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			for _, hint := range errors.GetAllHints(err) {
				fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
			}
		}
	}
	os.Exit(exitCode(err))
}
