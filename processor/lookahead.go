package processor

import (
	"strings"

	"github.com/psx-tools/maspsx/asm"
)

// ignore selects lines that lookahead treats as transparent in addition to
// blank lines, comments and debug directives.
type ignore uint8

const (
	ignoreNop   ignore = 1 << iota // "#nop" placeholders
	ignoreSet                      // .set reorder / .set noreorder
	ignoreLabel                    // $L local labels

	ignoreNone ignore = 0
	ignoreAll         = ignoreNop | ignoreSet | ignoreLabel
)

func isNopPlaceholder(l asm.Line) bool {
	return l.Kind == asm.KindComment && l.Text == "#nop"
}

func isLocalLabel(l asm.Line) bool {
	return l.Kind == asm.KindLabel && strings.HasPrefix(l.Label, "$L")
}

func isReorderDirective(l asm.Line) bool {
	return l.IsDirective(".set", "reorder") || l.IsDirective(".set", "noreorder")
}

// isInstruction decides whether a line counts as a real instruction when
// looking ahead. Everything that is not clearly transparent counts, so
// directives such as .end act as a barrier.
func isInstruction(l asm.Line, ig ignore) bool {
	switch l.Kind {
	case asm.KindBlank:
		return false
	case asm.KindComment:
		return isNopPlaceholder(l) && ig&ignoreNop == 0
	case asm.KindLabel:
		if isLocalLabel(l) {
			return ig&ignoreLabel == 0
		}
		// LM123: line-number markers
		if len(l.Label) > 1 && l.Label[0] == 'L' && (l.Label[1] < '0' || l.Label[1] > '9') {
			return false
		}
		return true
	case asm.KindDirective:
		switch {
		case strings.HasPrefix(l.Mnemonic, ".stab"),
			l.Mnemonic == ".def", l.Mnemonic == ".bend", l.Mnemonic == ".begin", l.Mnemonic == ".loc":
			return false
		case l.IsDirective(".set", "macro"), l.IsDirective(".set", "nomacro"):
			return false
		case isReorderDirective(l):
			return ig&ignoreSet == 0
		}
		return true
	}
	return true
}

// lookahead returns the n-th (0 based) line after the cursor that counts as
// an instruction under ig, and its index. ok is false when the input ends
// first, which callers treat as "nothing follows".
func (p *Processor) lookahead(n int, ig ignore) (l asm.Line, index int, ok bool) {
	for i := p.index + 1; i < len(p.lines); i++ {
		if !isInstruction(p.lines[i], ig) {
			continue
		}
		if n == 0 {
			return p.lines[i], i, true
		}
		n--
	}
	return asm.Line{}, -1, false
}

// next is lookahead(0, ig) without the index.
func (p *Processor) next(ig ignore) (asm.Line, bool) {
	l, _, ok := p.lookahead(0, ig)
	return l, ok
}
