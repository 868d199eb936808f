// Package processor rewrites GCC output for the PlayStation so that GNU as
// assembles it to the same machine code as the original ASPSX assembler.
//
// A Processor makes one pass over the input with bounded lookahead. Rules
// that consume following lines set a skip counter which the main loop
// honours for the next instruction lines.
package processor

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/psx-tools/maspsx/asm"
)

var (
	// ErrParse is returned for operands a rule cannot make sense of.
	ErrParse = errors.New("unable to parse")
	// ErrUnsupportedDirective is returned for data directives in a small-data
	// region whose size cannot be determined.
	ErrUnsupportedDirective = errors.New("unsupported directive")
)

const includeAsmHack = "__maspsx_include_asm_hack"

// Processor holds the state of a single run. It must not be reused.
type Processor struct {
	opts    Options
	lines   []asm.Line
	symbols *symbolTable
	log     *logrus.Entry

	index    int
	skip     int
	reorder  bool
	fileNum  int
	hack     string // include-asm hack function being dropped
	hiloLoad int    // index of a load that must separate mflo/mfhi from mult/div
	done     bool
}

// New parses source and validates opts.
func New(source []string, opts Options) (*Processor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	lines := make([]asm.Line, len(source))
	for i, s := range source {
		lines[i] = asm.Parse(s)
	}
	return &Processor{
		opts:     opts,
		lines:    lines,
		log:      logrus.WithField("component", "maspsx"),
		reorder:  true,
		fileNum:  1,
		hiloLoad: -1,
	}, nil
}

// Process runs the pre-scan, the rewrite pass and section emission.
func (p *Processor) Process() ([]string, error) {
	if p.done {
		return nil, errors.New("processor already used")
	}
	p.done = true

	symbols, err := scanSymbols(p.lines, p.opts.SdataLimit)
	if err != nil {
		return nil, err
	}
	p.symbols = symbols

	var out []string
	for i, l := range p.lines {
		p.index = i
		if p.hack != "" {
			out = append(out, p.dropHack(l)...)
			continue
		}
		if p.skip > 0 && isInstruction(l, ignoreNone) {
			p.skip--
			out = append(out, p.debug("skipped %s", l.Text)...)
			continue
		}
		res, err := p.processLine(l)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d %q", i+1, l.Text)
		}
		out = append(out, res...)
	}
	return append(out, p.sections()...), nil
}

// Process rewrites source with a fresh Processor.
func Process(source []string, opts Options) ([]string, error) {
	p, err := New(source, opts)
	if err != nil {
		return nil, err
	}
	return p.Process()
}

// Render joins output lines and terminates the text with a newline.
func Render(lines []string) string {
	return strings.Join(lines, "\n") + "\n"
}

func (p *Processor) debug(format string, args ...interface{}) []string {
	msg := fmt.Sprintf(format, args...)
	p.log.WithField("line", p.index+1).Debug(msg)
	if !p.opts.Verbose {
		return nil
	}
	return []string{"# DEBUG: " + msg}
}

// nop returns a hazard nop, annotated in verbose mode.
func (p *Processor) nop(reason string) []string {
	return append(p.debug("nop: %s", reason), "nop")
}

func (p *Processor) processLine(l asm.Line) ([]string, error) {
	switch l.Kind {
	case asm.KindBlank, asm.KindLabel:
		return []string{l.Text}, nil
	case asm.KindComment:
		if isNopPlaceholder(l) {
			return nil, nil
		}
		return []string{l.Text}, nil
	case asm.KindDirective:
		return p.directive(l), nil
	}
	return p.instruction(l)
}

func (p *Processor) directive(l asm.Line) []string {
	switch l.Mnemonic {
	case ".set":
		switch firstField(l.Args) {
		case "reorder":
			p.reorder = true
			return nil
		case "noreorder":
			p.reorder = false
			return nil
		case "macro", "nomacro":
			return nil
		}
	case ".def", ".begin", ".bend":
		return nil
	case ".comm", ".lcomm":
		return nil
	case ".rdata":
		return []string{".section .rodata"}
	case ".file":
		return p.renumberFile(l)
	case ".ent":
		if name := firstField(l.Args); strings.HasPrefix(name, includeAsmHack) {
			p.hack = name
			return p.debug("dropping %s", name)
		}
		return []string{l.Text, ".set\tnoreorder"}
	}
	return []string{l.Text}
}

// renumberFile rewrites ".file N name" so file numbers are unique.
func (p *Processor) renumberFile(l asm.Line) []string {
	num, rest := l.Args, ""
	if i := strings.IndexAny(l.Args, " \t"); i >= 0 {
		num, rest = l.Args[:i], strings.TrimSpace(l.Args[i+1:])
	}
	if _, err := asm.ParseInt(num); err != nil || rest == "" {
		return []string{l.Text}
	}
	out := fmt.Sprintf(".file\t%d %s", p.fileNum, rest)
	p.fileNum++
	return []string{out}
}

// dropHack swallows the body of an include-asm hack function, keeping only
// lines marked "# maspsx-keep".
func (p *Processor) dropHack(l asm.Line) []string {
	if l.IsDirective(".end") && firstField(l.Args) == p.hack {
		p.hack = ""
		return nil
	}
	if strings.Contains(l.Comment, "maspsx-keep") {
		return []string{l.Code}
	}
	return nil
}

func (p *Processor) instruction(l asm.Line) ([]string, error) {
	cat := l.Category()
	if cat.HasDelaySlot() {
		return p.branch(l), nil
	}
	switch cat {
	case asm.CategoryLoad, asm.CategoryStore, asm.CategoryLoadAddress:
		return p.loadStore(l)
	case asm.CategoryMultDiv:
		return p.division(l)
	case asm.CategoryHiLoRead:
		guard, _, err := p.guardHiLo()
		if err != nil {
			return nil, err
		}
		return append([]string{l.Text}, guard...), nil
	case asm.CategoryMove:
		return p.move(l), nil
	case asm.CategoryLoadImmediate:
		return p.loadImmediate(l), nil
	case asm.CategoryLoadImmediateFloat:
		return p.loadFloat(l)
	case asm.CategoryLoadImmediateDouble:
		return p.loadDouble(l)
	case asm.CategoryBreak:
		return p.breakCode(l), nil
	case asm.CategoryALU:
		if l.Mnemonic == "sltu" {
			return p.sltu(l), nil
		}
	}
	return []string{l.Text}, nil
}
