// Package asm parses lines of GNU-style MIPS assembly as emitted by the
// PlayStation GCC toolchains into typed records.
package asm

import (
	"strings"
)

// Kind classifies a line of MIPS assembly.
type Kind int

const (
	KindBlank       Kind = iota
	KindComment          // "# ..." with no code
	KindLabel            // "name:"
	KindDirective        // ".word 1"
	KindInstruction      // "lw $2,0($4)"
)

// Line is one trimmed source line.
type Line struct {
	Text     string // trimmed source text, comment included
	Code     string // Text without the comment
	Comment  string
	Kind     Kind
	Label    string // label name without the colon
	Mnemonic string // lower-case mnemonic or directive name
	Args     string // raw operand text
	Operands []Operand
	Parts    []Line // sub-statements of a ";" separated macro line
}

// SplitComment splits a line into code and comment parts.
// The comment does NOT include the leading "#".
func SplitComment(line string) (code, comment string) {
	inQuote := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if inQuote {
			if ch == '\\' {
				i++
			} else if ch == '"' {
				inQuote = false
			}
			continue
		}
		if ch == '"' {
			inQuote = true
			continue
		}
		if ch == '#' {
			return strings.TrimRight(line[:i], " \t"), strings.TrimSpace(line[i+1:])
		}
	}
	return line, ""
}

// splitStatements splits a line on ";" outside of quotes.
func splitStatements(code string) []string {
	var out []string
	inQuote := false
	start := 0
	for i := 0; i < len(code); i++ {
		switch ch := code[i]; {
		case inQuote && ch == '\\':
			i++
		case ch == '"':
			inQuote = !inQuote
		case ch == ';' && !inQuote:
			out = append(out, strings.TrimSpace(code[start:i]))
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(code[start:]); rest != "" || len(out) == 0 {
		out = append(out, rest)
	}
	return out
}

// Parse trims and classifies one line of source.
func Parse(text string) Line {
	l := Line{Text: strings.TrimSpace(text)}
	code, comment := SplitComment(l.Text)
	l.Code, l.Comment = strings.TrimSpace(code), comment

	switch {
	case l.Text == "":
		l.Kind = KindBlank
		return l
	case l.Code == "":
		l.Kind = KindComment
		return l
	case strings.HasSuffix(l.Code, ":") && !strings.ContainsAny(l.Code, " \t"):
		l.Kind = KindLabel
		l.Label = strings.TrimSuffix(l.Code, ":")
		return l
	}

	if stmts := splitStatements(l.Code); len(stmts) > 1 {
		l.Kind = KindInstruction
		for _, s := range stmts {
			l.Parts = append(l.Parts, Parse(s))
		}
		return l
	}

	mnemonic, args := l.Code, ""
	if i := strings.IndexAny(l.Code, " \t"); i >= 0 {
		mnemonic, args = l.Code[:i], strings.TrimSpace(l.Code[i+1:])
	}
	l.Mnemonic = strings.ToLower(mnemonic)
	l.Args = args
	if strings.HasPrefix(mnemonic, ".") {
		l.Kind = KindDirective
		return l
	}
	l.Kind = KindInstruction
	for _, op := range splitOperands(args) {
		l.Operands = append(l.Operands, ParseOperand(op))
	}
	return l
}

// Category returns the mnemonic category, CategoryOther for macro lines
// and non-instructions.
func (l Line) Category() Category {
	if l.Kind != KindInstruction || len(l.Parts) > 0 {
		return CategoryOther
	}
	return CategoryOf(l.Mnemonic)
}

// Last returns the final sub-statement of a macro line, or l itself.
func (l Line) Last() Line {
	if len(l.Parts) > 0 {
		return l.Parts[len(l.Parts)-1]
	}
	return l
}

// Operand returns operand i, or a zero Operand when out of range.
func (l Line) Operand(i int) Operand {
	if i < 0 || i >= len(l.Operands) {
		return Operand{}
	}
	return l.Operands[i]
}

// IsDirective reports whether the line is the directive name with the given
// arguments, comparing arguments field by field (".set\tnoreorder").
func (l Line) IsDirective(name string, args ...string) bool {
	if l.Kind != KindDirective || l.Mnemonic != name {
		return false
	}
	if len(args) == 0 {
		return true
	}
	fields := strings.FieldsFunc(l.Args, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(fields) != len(args) {
		return false
	}
	for i := range args {
		if fields[i] != args[i] {
			return false
		}
	}
	return true
}

func operandReads(o Operand, reg string) bool {
	switch o.Kind {
	case OperandRegister:
		return SameRegister(o.Reg, reg)
	case OperandMemory:
		return SameRegister(o.Reg, reg)
	}
	return false
}

func anyReads(ops []Operand, reg string) bool {
	for _, o := range ops {
		if operandReads(o, reg) {
			return true
		}
	}
	return false
}

// Reads reports whether the instruction reads register reg. Macro lines are
// judged by their last sub-statement.
func (l Line) Reads(reg string) bool {
	if len(l.Parts) > 0 {
		return l.Last().Reads(reg)
	}
	if l.Kind != KindInstruction || len(l.Operands) == 0 {
		return false
	}
	ops := l.Operands
	last := ops[len(ops)-1]

	switch CategoryOf(l.Mnemonic) {
	case CategoryBranch:
		return anyReads(ops[:len(ops)-1], reg)
	case CategoryJump:
		return operandReads(last, reg)
	case CategoryLoad, CategoryLoadAddress:
		return last.Kind == OperandMemory && SameRegister(last.Reg, reg)
	case CategoryStore:
		return anyReads(ops, reg)
	case CategoryMultDiv:
		if len(ops) == 3 {
			return anyReads(ops[1:], reg)
		}
		return anyReads(ops, reg)
	case CategoryMove, CategoryUnary:
		return operandReads(last, reg)
	case CategoryALU:
		if l.Mnemonic == "lui" {
			return false
		}
		if len(ops) == 2 {
			return anyReads(ops, reg)
		}
		return anyReads(ops[1:], reg)
	case CategoryCopMove:
		return operandReads(ops[0], reg)
	}
	return false
}

// Dest returns the first operand's register, which every load, ALU op and
// immediate load writes.
func (l Line) Dest() string {
	if o := l.Operand(0); o.Kind == OperandRegister {
		return o.Reg
	}
	return ""
}

// Format renders an instruction the way the rewriter emits it: the mnemonic,
// a tab and comma separated operands.
func Format(mnemonic string, operands ...string) string {
	if len(operands) == 0 {
		return mnemonic
	}
	return mnemonic + "\t" + strings.Join(operands, ",")
}
