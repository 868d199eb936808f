// maspsx rewrites the assembly GCC emits for the PlayStation so that GNU as
// produces the same object code as Sony's ASPSX.
//
// Usage:
//
//	mips-gcc -S -o - file.c | maspsx [options] [as options]
//	maspsx [options] [as options] file.s
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/psx-tools/maspsx/aspsx"
	"github.com/psx-tools/maspsx/processor"
)

const macroInclude = `.include "macro.inc"`

var (
	rootCmd = &cobra.Command{
		Use:   "maspsx [options] [as options] [input.s]",
		Short: "Make GNU as assemble like ASPSX",
		Long: `maspsx reads compiler output from stdin (or the file named by the last
argument), reproduces the instruction ordering and hazard nops of the selected
ASPSX version and writes the result to stdout or pipes it into GNU as.

Options not listed below are passed through to the assembler.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableFlagParsing: true,
		PersistentPreRunE:  persistentPreRunE,
		RunE:               run,
	}

	cli    cliOptions
	asArgs []string
	done   bool
)

func init() {
	addFlags(rootCmd.Flags(), &cli)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "MASPSX: %v\n", err)
		os.Exit(1)
	}
}

// persistentPreRunE parses maspsx's own options out of the raw arguments
// and sets up logging.
func persistentPreRunE(cmd *cobra.Command, args []string) error {
	fs := cmd.Flags()
	own, forward := splitArgs(fs, args)
	if err := fs.Parse(own); err != nil {
		return err
	}
	asArgs = forward

	if help, _ := fs.GetBool("help"); help {
		done = true
		return cmd.Help()
	}

	level, err := logrus.ParseLevel(cli.logLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	logrus.Debugf("maspsx %s", strings.Join(args, " "))

	if cli.noMacroInc {
		logrus.Warn("--no-macro-inc is no longer required and will be removed in a future update")
	}
	if cli.expandLi {
		logrus.Warn("--expand-li is enabled automatically if --aspsx-version is below 2.56")
	}
	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	if done {
		return nil
	}
	if cli.listVersions {
		return listVersions(cmd.OutOrStdout())
	}

	text, rest, err := readSource(os.Stdin, term.IsTerminal(int(os.Stdin.Fd())), cli.forceStdin, asArgs)
	if err != nil {
		return err
	}
	opts, err := buildOptions(&cli, cmd.Flags(), rest)
	if err != nil {
		return err
	}

	out, err := processor.Process(splitLines(text), opts)
	if err != nil {
		return errors.Wrap(err, "An exception occurred")
	}
	output := processor.Render(append([]string{preamble(cli.macroInc)}, out...))

	if !cli.runAssembler {
		_, err := io.WriteString(cmd.OutOrStdout(), output)
		return err
	}
	argv, err := assemblerCommand(cli.gnuAsPath, assemblerArgs(rest), !cli.dontForceG0)
	if err != nil {
		return err
	}
	return runAssembler(cmd.Context(), argv, output, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func preamble(macroInc bool) string {
	if macroInc {
		return macroInclude
	}
	return ""
}

func listVersions(w io.Writer) error {
	for _, v := range aspsx.Versions() {
		sdk, _ := aspsx.SDK(v)
		if _, err := fmt.Fprintf(w, "%s\t%s\n", v, sdk); err != nil {
			return err
		}
	}
	return nil
}
