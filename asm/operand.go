package asm

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrBadOperand is returned for operand text that does not match any
// recognised operand shape.
var ErrBadOperand = errors.New("malformed operand")

// OperandKind classifies a MIPS operand.
type OperandKind int

const (
	OperandOther      OperandKind = iota
	OperandRegister               // $2, $v0, $f12
	OperandImmediate              // 42, -0x10
	OperandSymbol                 // sym, sym+4, sym-1
	OperandRelocation             // %hi(sym), %lo(sym), %gp_rel(sym)
	OperandFloat                  // 1.5e+00
	OperandMemory                 // disp($base)
)

var operandKindNames = map[OperandKind]string{
	OperandOther:      "other",
	OperandRegister:   "register",
	OperandImmediate:  "immediate",
	OperandSymbol:     "symbol",
	OperandRelocation: "relocation",
	OperandFloat:      "float",
	OperandMemory:     "memory",
}

func (k OperandKind) String() string {
	return operandKindNames[k]
}

// Operand is one parsed, comma separated operand.
//
// For memory references Disp describes the displacement in front of the
// parenthesised base register and Imm/Sym/Name/HasOffset describe its value.
type Operand struct {
	Kind      OperandKind
	Text      string
	Reg       string      // register, or base register of a memory reference
	Disp      OperandKind // displacement kind of a memory reference
	Imm       int64
	Sym       string // symbol expression including any offset suffix
	Name      string // symbol name without the offset suffix
	HasOffset bool
	Float     float64
}

// IsRegister reports whether the operand is the register reg.
func (o Operand) IsRegister(reg string) bool {
	return o.Kind == OperandRegister && SameRegister(o.Reg, reg)
}

// Symbolic reports whether the operand (or a memory displacement) names a symbol.
func (o Operand) Symbolic() bool {
	if o.Kind == OperandMemory {
		return o.Disp == OperandSymbol
	}
	return o.Kind == OperandSymbol
}

// Numeric reports whether the operand (or a memory displacement) is a plain number.
func (o Operand) Numeric() bool {
	if o.Kind == OperandMemory {
		return o.Disp == OperandImmediate
	}
	return o.Kind == OperandImmediate
}

// Base returns the base register of a memory reference, or "".
func (o Operand) Base() string {
	if o.Kind == OperandMemory {
		return o.Reg
	}
	return ""
}

// DispText returns the displacement text of a memory reference, or the
// whole operand text for other kinds.
func (o Operand) DispText() string {
	if o.Kind != OperandMemory {
		return o.Text
	}
	i := strings.LastIndexByte(o.Text, '(')
	return strings.TrimSpace(o.Text[:i])
}

// ParseInt parses a decimal or 0x-prefixed hexadecimal integer with an
// optional sign. Leading zeros do not select octal.
func ParseInt(s string) (int64, error) {
	t := strings.TrimSpace(s)
	neg := false
	if t != "" && (t[0] == '-' || t[0] == '+') {
		neg = t[0] == '-'
		t = t[1:]
	}
	if t == "" {
		return 0, errors.Wrapf(ErrBadOperand, "empty integer %q", s)
	}
	var (
		v   uint64
		err error
	)
	if strings.HasPrefix(t, "0x") || strings.HasPrefix(t, "0X") {
		v, err = strconv.ParseUint(t[2:], 16, 64)
	} else {
		v, err = strconv.ParseUint(t, 10, 64)
	}
	if err != nil {
		return 0, errors.Wrapf(ErrBadOperand, "integer %q", s)
	}
	if neg {
		return -int64(v), nil
	}
	return int64(v), nil
}

func isSymbolStart(c byte) bool {
	return c == '_' || c == '.' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isSymbolChar(c byte) bool {
	return isSymbolStart(c) || (c >= '0' && c <= '9')
}

// splitSymbol splits "sym+4" into ("sym", "+4"). ok is false when s is not
// a symbol optionally followed by a numeric offset.
func splitSymbol(s string) (name, offset string, ok bool) {
	if s == "" || !isSymbolStart(s[0]) {
		return "", "", false
	}
	i := 1
	for i < len(s) && isSymbolChar(s[i]) {
		i++
	}
	name, offset = s[:i], strings.TrimSpace(s[i:])
	if offset == "" {
		return name, "", true
	}
	if offset[0] != '+' && offset[0] != '-' {
		return "", "", false
	}
	if _, err := ParseInt(offset); err != nil {
		return "", "", false
	}
	return name, offset, true
}

func looksNumeric(s string) bool {
	t := strings.TrimLeft(s, "+-")
	return t != "" && t[0] >= '0' && t[0] <= '9'
}

// parseValue classifies a non-memory operand.
func parseValue(s string) Operand {
	o := Operand{Text: s}
	switch {
	case s == "":
		o.Kind = OperandImmediate
	case IsRegister(s):
		o.Kind, o.Reg = OperandRegister, s
	case strings.HasPrefix(s, "%"):
		o.Kind, o.Sym = OperandRelocation, s
	case looksNumeric(s):
		if v, err := ParseInt(s); err == nil {
			o.Kind, o.Imm = OperandImmediate, v
		} else if f, err := strconv.ParseFloat(s, 64); err == nil {
			o.Kind, o.Float = OperandFloat, f
		}
	default:
		if name, off, ok := splitSymbol(s); ok {
			o.Kind, o.Sym, o.Name, o.HasOffset = OperandSymbol, s, name, off != ""
		}
	}
	return o
}

// ParseOperand parses a single operand.
func ParseOperand(text string) Operand {
	s := strings.TrimSpace(text)
	if strings.HasSuffix(s, ")") {
		if i := strings.LastIndexByte(s, '('); i >= 0 {
			base := strings.TrimSpace(s[i+1 : len(s)-1])
			if IsRegister(base) {
				disp := parseValue(strings.TrimSpace(s[:i]))
				disp.Kind, disp.Disp = OperandMemory, disp.Kind
				disp.Text, disp.Reg = s, base
				return disp
			}
		}
	}
	return parseValue(s)
}

// splitOperands splits "$2,%lo(sym)($3)" into its operands, ignoring commas
// nested in parentheses or quotes.
func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var out []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; {
		case inQuote:
			if ch == '"' {
				inQuote = false
			}
		case ch == '"':
			inQuote = true
		case ch == '(':
			depth++
		case ch == ')':
			depth--
		case ch == ',' && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}
