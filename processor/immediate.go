package processor

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/psx-tools/maspsx/asm"
)

// expandLi decomposes "li $r,N" into lui/ori/addiu. Operands that are not
// a register and a plain integer are returned unchanged. count is the
// number of machine instructions either form assembles to.
func (p *Processor) expandLi(l asm.Line) (out []string, count int) {
	dest, val := l.Operand(0), l.Operand(1)
	if len(l.Operands) != 2 || dest.Kind != asm.OperandRegister || val.Kind != asm.OperandImmediate {
		return []string{l.Text}, 1
	}
	r, v := dest.Reg, val.Imm

	switch {
	case v >= 0 && v < 0x10000:
		out = []string{asm.Format("ori", r, "$zero", fmt.Sprint(v))}
	case v >= 0x10000:
		hi := fmt.Sprintf("%%hi(%d)", v)
		if v&0x8000 != 0 {
			// %hi rounds up when bit 15 is set, which ori does not undo
			hi = fmt.Sprintf("(%d >> 16) & 0xFFFF", v)
		}
		out = []string{asm.Format("lui", r, hi)}
		if v&0xFFFF != 0 {
			out = append(out, asm.Format("ori", r, r, fmt.Sprintf("%d & 0xFFFF", v)))
		}
	case v > -0x8000:
		out = []string{asm.Format("addiu", r, "$zero", fmt.Sprint(v))}
	case v == -0x8000:
		out = []string{asm.Format("addiu", r, "$zero", fmt.Sprintf("%d & 0xFFFF", v))}
	default:
		out = []string{asm.Format("lui", r, fmt.Sprintf("(%d >> 16) & 0xFFFF", v))}
		if v&0xFFFF != 0 {
			out = append(out, asm.Format("ori", r, r, fmt.Sprintf("%d & 0xFFFF", v)))
		}
	}
	return out, len(out)
}

func (p *Processor) loadImmediate(l asm.Line) []string {
	if p.opts.ExpandLi {
		out, _ := p.expandLi(l)
		return out
	}
	out := []string{l.Text}
	// ASPSX separated an li from a division by the loaded register
	if next, ok := p.next(ignoreNone); ok && (next.Mnemonic == "div" || next.Mnemonic == "divu") {
		if n := len(next.Operands); n > 0 && next.Operands[n-1].IsRegister(l.Dest()) {
			out = append(out, p.nop("li before div")...)
		}
	}
	return out
}

func floatOperand(l asm.Line) (string, float64, error) {
	dest, val := l.Operand(0), l.Operand(1)
	if len(l.Operands) != 2 || dest.Kind != asm.OperandRegister {
		return "", 0, errors.Wrapf(ErrParse, "%s instruction", l.Mnemonic)
	}
	switch val.Kind {
	case asm.OperandFloat:
		return dest.Reg, val.Float, nil
	case asm.OperandImmediate:
		return dest.Reg, float64(val.Imm), nil
	}
	return "", 0, errors.Wrapf(ErrParse, "%s value %q", l.Mnemonic, val.Text)
}

// loadWord loads a 32-bit pattern into r with lui and an optional ori.
func loadWord(r string, bits uint32) []string {
	out := []string{fmt.Sprintf("lui\t%s,0x%X", r, bits>>16)}
	if lo := bits & 0xFFFF; lo != 0 {
		out = append(out, fmt.Sprintf("ori\t%s,0x%X", r, lo))
	}
	return out
}

// loadFloat expands "li.s $r,F" into the IEEE-754 single bit pattern.
func (p *Processor) loadFloat(l asm.Line) ([]string, error) {
	r, f, err := floatOperand(l)
	if err != nil {
		return nil, err
	}
	return loadWord(r, math.Float32bits(float32(f))), nil
}

// loadDouble expands "li.d $r,F": the low word goes to r, the high word to
// its pair register.
func (p *Processor) loadDouble(l asm.Line) ([]string, error) {
	r, f, err := floatOperand(l)
	if err != nil {
		return nil, err
	}
	pair, err := asm.NextRegister(r)
	if err != nil {
		return nil, err
	}
	bits := math.Float64bits(f)
	low, high := uint32(bits), uint32(bits>>32)

	var out []string
	if low == 0 {
		out = append(out, fmt.Sprintf("li\t%s,0x0", r))
	} else {
		out = append(out, loadWord(r, low)...)
	}
	return append(out, loadWord(pair, high)...), nil
}

// breakCode repacks "break N" as "break high,low" split at bit 10.
func (p *Processor) breakCode(l asm.Line) []string {
	if len(l.Operands) != 1 || l.Operands[0].Kind != asm.OperandImmediate {
		return []string{l.Text}
	}
	n := l.Operands[0].Imm
	return []string{fmt.Sprintf("break\t0x%X,0x%X", n>>10, n&0x3FF)}
}

// sltu moves a negative immediate into $at, as ASPSX before 2.67 did.
func (p *Processor) sltu(l asm.Line) []string {
	if !p.opts.SltuAt || len(l.Operands) != 3 {
		return []string{l.Text}
	}
	imm := l.Operands[2]
	if imm.Kind != asm.OperandImmediate || imm.Imm >= 0 {
		return []string{l.Text}
	}
	return []string{
		asm.Format("li", "$at", imm.Text),
		asm.Format("sltu", l.Operands[0].Text, l.Operands[1].Text, "$at"),
	}
}

func (p *Processor) move(l asm.Line) []string {
	dest, src := l.Operand(0), l.Operand(1)
	if len(l.Operands) != 2 || dest.Kind != asm.OperandRegister || src.Kind != asm.OperandRegister {
		return []string{l.Text}
	}
	return []string{asm.Format("addu", dest.Reg, src.Reg, "$zero")}
}

// branch fills the delay slot with a nop in reorder mode; in noreorder
// mode the nop goes in front of the branch.
func (p *Processor) branch(l asm.Line) []string {
	if p.reorder {
		return append([]string{l.Text}, p.nop("delay slot")...)
	}
	return append(p.nop("noreorder branch"), l.Text)
}
