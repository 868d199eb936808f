package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/pflag"
)

// cliOptions holds maspsx's own command line options. Anything else on the
// command line belongs to the assembler.
type cliOptions struct {
	aspsxVersion    string
	runAssembler    bool
	gnuAsPath       string
	dontForceG0     bool
	expandDiv       bool
	dontExpandLi    bool
	macroInc        bool
	forceStdin      bool
	useCommSection  bool
	useCommForLcomm bool
	config          string
	logLevel        string
	verbose         bool
	listVersions    bool

	// deprecated
	expandLi   bool
	noMacroInc bool
}

func addFlags(fs *pflag.FlagSet, o *cliOptions) {
	fs.StringVar(&o.aspsxVersion, "aspsx-version", "", "ASPSX version to emulate (e.g. 2.21)")
	fs.BoolVar(&o.runAssembler, "run-assembler", false, "Pipe the output into GNU as")
	fs.StringVar(&o.gnuAsPath, "gnu-as-path", "mips-linux-gnu-as", "GNU as command, may include arguments")
	fs.BoolVar(&o.dontForceG0, "dont-force-G0", false, "Do not pass -G0 to GNU as")
	fs.BoolVar(&o.expandDiv, "expand-div", false, "Expand div/rem with divide by zero and overflow checks")
	fs.BoolVar(&o.dontExpandLi, "dont-expand-li", false, "Never expand li into lui/ori")
	fs.BoolVar(&o.macroInc, "macro-inc", false, "Prepend .include \"macro.inc\"")
	fs.BoolVar(&o.forceStdin, "force-stdin", false, "Fail instead of reading a file when stdin is empty")
	fs.BoolVar(&o.useCommSection, "use-comm-section", false, "Emit .comm for common symbols")
	fs.BoolVar(&o.useCommForLcomm, "use-comm-for-lcomm", false, "Emit .comm for local common symbols too")
	fs.StringVar(&o.config, "config", "", "TOML file with processor options")
	fs.StringVar(&o.logLevel, "log-level", "warn", "Log messages above specified level (debug, info, warn, error)")
	fs.BoolVar(&o.verbose, "verbose", false, "Annotate the output with debug comments")
	fs.BoolVar(&o.listVersions, "list-versions", false, "List known ASPSX versions and exit")

	fs.BoolVar(&o.expandLi, "expand-li", false, "")
	fs.BoolVar(&o.noMacroInc, "no-macro-inc", false, "")
	_ = fs.MarkHidden("expand-li")
	_ = fs.MarkHidden("no-macro-inc")
}

// splitArgs separates the long options registered in fs from the arguments
// forwarded to the assembler.
func splitArgs(fs *pflag.FlagSet, args []string) (own, forward []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") || arg == "--" {
			forward = append(forward, arg)
			continue
		}
		name, _, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		f := fs.Lookup(name)
		if f == nil {
			forward = append(forward, arg)
			continue
		}
		own = append(own, arg)
		if !hasValue && f.Value.Type() != "bool" && i+1 < len(args) {
			i++
			own = append(own, args[i])
		}
	}
	return own, forward
}

// sdataLimit finds the -G threshold among the assembler arguments. The last
// occurrence wins.
func sdataLimit(args []string) (limit int, found bool, err error) {
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-G") {
			continue
		}
		value := arg[2:]
		if value == "" {
			if i+1 >= len(args) {
				return 0, false, errors.New("-G requires a value")
			}
			value = args[i+1]
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, false, errors.Wrapf(err, "invalid -G value %q", value)
		}
		limit, found = n, true
	}
	return limit, found, nil
}

// assemblerArgs drops the arguments GNU as must not see.
func assemblerArgs(args []string) []string {
	return lo.Without(args, "-KPIC")
}
