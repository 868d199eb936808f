package processor

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/psx-tools/maspsx/asm"
)

// sizeMap is a symbol -> byte size mapping that remembers first-seen order.
type sizeMap struct {
	order []string
	sizes map[string]int
}

func newSizeMap() *sizeMap {
	return &sizeMap{sizes: make(map[string]int)}
}

func (m *sizeMap) has(sym string) bool {
	_, ok := m.sizes[sym]
	return ok
}

func (m *sizeMap) set(sym string, size int) {
	if !m.has(sym) {
		m.order = append(m.order, sym)
	}
	m.sizes[sym] = size
}

func (m *sizeMap) add(sym string, n int) {
	m.set(sym, m.sizes[sym]+n)
}

func (m *sizeMap) len() int {
	return len(m.order)
}

// symbolTable holds what the pre-scan learns about data symbols.
type symbolTable struct {
	sdata  *sizeMap
	sbss   *sizeMap
	bss    *sizeMap
	common map[string]bool // declared with .comm rather than .lcomm
}

// directives that may appear in a small-data region without contributing bytes
var sizeNeutral = map[string]bool{
	".align": true, ".p2align": true, ".balign": true,
	".globl": true, ".global": true, ".local": true, ".weak": true,
	".type": true, ".ent": true, ".end": true, ".loc": true,
	".stabs": true, ".stabn": true, ".stabd": true, ".ident": true,
	".set": true, ".def": true, ".begin": true, ".bend": true,
}

// elementSizes is the byte size of each element of a data directive.
var elementSizes = map[string]int{
	".byte": 1,
	".half": 2, ".short": 2, ".hword": 2,
	".word": 4, ".int": 4, ".long": 4, ".float": 4,
	".dword": 8, ".double": 8, ".quad": 8,
}

func isSmallDataSection(l asm.Line) bool {
	switch {
	case l.Mnemonic == ".sdata", l.Mnemonic == ".sbss":
		return true
	case l.Mnemonic == ".section":
		name := firstField(l.Args)
		return name == ".sdata" || name == ".sbss" || strings.HasPrefix(name, ".sdata.") || strings.HasPrefix(name, ".sbss.")
	}
	return false
}

func leavesSmallData(l asm.Line) bool {
	switch l.Mnemonic {
	case ".text", ".data", ".rdata", ".rodata", ".bss", ".section", ".file", ".extern":
		return true
	}
	return false
}

// firstField returns the first whitespace or comma separated field of s.
func firstField(s string) string {
	f := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

// parseSymbolSize parses "sym,16" or "sym,16,4" as used by .comm, .lcomm and .size.
func parseSymbolSize(args string) (string, int, error) {
	parts := strings.Split(args, ",")
	if len(parts) < 2 {
		return "", 0, errors.Wrapf(ErrParse, "expected symbol and size in %q", args)
	}
	size, err := asm.ParseInt(parts[1])
	if err != nil {
		return "", 0, errors.Wrapf(ErrParse, "size in %q", args)
	}
	return strings.TrimSpace(parts[0]), int(size), nil
}

// asciiLen counts the bytes a quoted .ascii string assembles to.
func asciiLen(quoted string) (int, error) {
	s := strings.TrimSpace(quoted)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return 0, errors.Wrapf(ErrParse, "string literal %s", quoted)
	}
	s = s[1 : len(s)-1]
	n := 0
	for i := 0; i < len(s); i++ {
		n++
		if s[i] != '\\' || i+1 >= len(s) {
			continue
		}
		i++
		switch c := s[i]; {
		case c >= '0' && c <= '7':
			for j := 0; j < 2 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; j++ {
				i++
			}
		case c == 'x':
			for i+1 < len(s) && strings.IndexByte("0123456789abcdefABCDEF", s[i+1]) >= 0 {
				i++
			}
		}
	}
	return n, nil
}

// dataSize returns the number of bytes a data directive emits. known is
// false for directives that do not emit data.
func dataSize(l asm.Line) (size int, known bool, err error) {
	if n, ok := elementSizes[l.Mnemonic]; ok {
		return n * len(splitArgs(l.Args)), true, nil
	}
	switch l.Mnemonic {
	case ".ascii", ".asciiz", ".asciz", ".string":
		terminator := 1
		if l.Mnemonic == ".ascii" {
			terminator = 0
		}
		for _, s := range splitArgs(l.Args) {
			n, err := asciiLen(s)
			if err != nil {
				return 0, false, err
			}
			size += n + terminator
		}
		return size, true, nil
	case ".space", ".skip", ".zero":
		n, err := asm.ParseInt(firstField(l.Args))
		if err != nil {
			return 0, false, errors.Wrapf(ErrParse, "%s %s", l.Mnemonic, l.Args)
		}
		return int(n), true, nil
	}
	return 0, false, nil
}

// splitArgs splits directive arguments on commas outside string literals.
func splitArgs(s string) []string {
	var out []string
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch {
		case inQuote && s[i] == '\\':
			i++
		case s[i] == '"':
			inQuote = !inQuote
		case s[i] == ',' && !inQuote:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// scanSymbols builds the symbol table from the whole input before any line
// is rewritten.
func scanSymbols(lines []asm.Line, sdataLimit int) (*symbolTable, error) {
	st := &symbolTable{
		sdata:  newSizeMap(),
		sbss:   newSizeMap(),
		bss:    newSizeMap(),
		common: make(map[string]bool),
	}
	inSdata := false
	current := ""
	explicit := make(map[string]bool)

	for i, l := range lines {
		if l.Kind == asm.KindLabel {
			if inSdata {
				current = l.Label
				if !st.sdata.has(current) {
					st.sdata.set(current, 0)
				}
			}
			continue
		}
		if l.Kind != asm.KindDirective {
			continue
		}

		switch {
		case l.Mnemonic == ".comm" || l.Mnemonic == ".lcomm":
			sym, size, err := parseSymbolSize(l.Args)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", i+1)
			}
			if sdataLimit > 0 && size <= sdataLimit {
				if !st.sbss.has(sym) {
					st.sbss.set(sym, size)
				}
			} else if !st.bss.has(sym) {
				st.bss.set(sym, size)
			}
			if l.Mnemonic == ".comm" {
				st.common[sym] = true
			}
			continue
		case isSmallDataSection(l):
			inSdata, current = true, ""
			continue
		case leavesSmallData(l):
			inSdata, current = false, ""
			continue
		case !inSdata:
			continue
		case l.Mnemonic == ".size":
			sym, size, err := parseSymbolSize(l.Args)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", i+1)
			}
			st.sdata.set(sym, size)
			explicit[sym] = true
			continue
		}

		size, known, err := dataSize(l)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", i+1)
		}
		switch {
		case current == "" || explicit[current] || sizeNeutral[l.Mnemonic]:
		case known:
			st.sdata.add(current, size)
		default:
			return nil, errors.Wrapf(ErrUnsupportedDirective, "line %d: %s in .sdata for %s", i+1, l.Mnemonic, current)
		}
	}
	return st, nil
}
