package processor

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/psx-tools/maspsx/asm"
)

func outOfRange(v int64) bool {
	return v < -32768 || v > 32767
}

// gpEligible reports whether a symbolic operand without a base register may
// be addressed relative to $gp.
func (p *Processor) gpEligible(o asm.Operand) bool {
	if p.opts.SdataLimit <= 0 || o.Kind != asm.OperandSymbol {
		return false
	}
	if !p.symbols.sdata.has(o.Name) && !p.symbols.sbss.has(o.Name) {
		return false
	}
	if o.HasOffset && !p.opts.GpAllowOffset && p.symbols.common[o.Name] {
		return false
	}
	return true
}

// usesAt reports whether the instruction will be assembled through $at.
func (p *Processor) usesAt(l asm.Line) bool {
	l = l.Last()
	cat := asm.CategoryOf(l.Mnemonic)
	if l.Kind != asm.KindInstruction || !cat.IsMemory() || len(l.Operands) != 2 {
		return false
	}
	mem := l.Operands[1]
	switch {
	case mem.Kind == asm.OperandMemory && mem.Symbolic():
		return true
	case mem.Kind == asm.OperandMemory && mem.Numeric():
		return outOfRange(mem.Imm)
	case mem.Symbolic():
		// loads without a base use the destination as scratch
		return cat == asm.CategoryStore
	case mem.Numeric():
		return cat == asm.CategoryStore && outOfRange(mem.Imm)
	}
	return false
}

// usesGP reports whether the instruction will be rewritten to %gp_rel.
func (p *Processor) usesGP(l asm.Line) bool {
	l = l.Last()
	if l.Kind != asm.KindInstruction || !asm.CategoryOf(l.Mnemonic).IsMemory() || len(l.Operands) != 2 {
		return false
	}
	return p.gpEligible(l.Operands[1])
}

// needsLoadDelay decides whether next must be kept out of the load delay
// slot of an instruction writing dest.
func (p *Processor) needsLoadDelay(next asm.Line, dest string) bool {
	return next.Reads(dest) && (!p.usesAt(next) || p.usesGP(next) || p.opts.NopAtExpansion)
}

func (p *Processor) loadStore(l asm.Line) ([]string, error) {
	out, single, err := p.rewriteMemory(l)
	if err != nil {
		return nil, err
	}
	if l.Category() == asm.CategoryLoad {
		out = append(out, p.loadDelay(l.Dest(), single)...)
	}
	return out, nil
}

// rewriteMemory rewrites a load, store or la. single reports whether the
// result assembles to exactly one machine instruction.
func (p *Processor) rewriteMemory(l asm.Line) (out []string, single bool, err error) {
	cat := l.Category()
	if len(l.Operands) != 2 || l.Operands[0].Kind != asm.OperandRegister {
		if cat == asm.CategoryLoadAddress {
			return []string{l.Text}, false, nil
		}
		return nil, false, errors.Wrapf(ErrParse, "%s instruction", l.Mnemonic)
	}
	rt, mem := l.Operands[0].Reg, l.Operands[1]

	switch {
	case mem.Kind == asm.OperandMemory && mem.Disp == asm.OperandRelocation:
		return []string{l.Text}, true, nil

	case mem.Kind == asm.OperandMemory && mem.Disp == asm.OperandSymbol:
		if cat == asm.CategoryLoad || (cat == asm.CategoryStore && p.opts.AddiuAt) {
			return p.expandAt(l.Mnemonic, rt, mem), false, nil
		}
		return []string{l.Text}, false, nil

	case mem.Kind == asm.OperandMemory && mem.Disp == asm.OperandImmediate:
		if outOfRange(mem.Imm) && cat != asm.CategoryLoadAddress {
			return p.expandAt(l.Mnemonic, rt, mem), false, nil
		}
		return []string{l.Text}, !outOfRange(mem.Imm), nil

	case mem.Kind == asm.OperandSymbol:
		if p.gpEligible(mem) && (cat != asm.CategoryLoadAddress || p.opts.GpAllowLa) {
			gp := asm.Format(l.Mnemonic, rt, fmt.Sprintf("%%gp_rel(%s)($gp)", mem.Sym))
			return append(p.debug("gp_rel %s", mem.Name), gp), true, nil
		}
		return []string{l.Text}, false, nil

	case mem.Kind == asm.OperandImmediate:
		return []string{l.Text}, !outOfRange(mem.Imm), nil

	case cat == asm.CategoryLoadAddress:
		return []string{l.Text}, false, nil
	}
	return nil, false, errors.Wrapf(ErrParse, "%s operand %q", l.Mnemonic, mem.Text)
}

// expandAt synthesises the address of a symbolic or out-of-range memory
// operand in $at.
func (p *Processor) expandAt(op, rt string, mem asm.Operand) []string {
	disp, base := mem.DispText(), mem.Base()
	out := append(p.debug("expand %s through $at", mem.Text), ".set\tnoat")
	switch {
	case mem.Numeric():
		out = append(out,
			asm.Format("lui", "$at", "%hi("+disp+")"),
			asm.Format("addu", "$at", base, "$at"),
			asm.Format(op, rt, "%lo("+disp+")($at)"),
		)
	case p.opts.AddiuAt:
		out = append(out,
			asm.Format("lui", "$at", "%hi("+disp+")"),
			asm.Format("addiu", "$at", "$at", "%lo("+disp+")"),
			asm.Format("addu", "$at", "$at", base),
			asm.Format(op, rt, "0x0($at)"),
		)
	default:
		out = append(out,
			asm.Format("lui", "$at", "%hi("+disp+")"),
			asm.Format("addu", "$at", "$at", base),
			asm.Format(op, rt, "%lo("+disp+")($at)"),
		)
	}
	return append(out, ".set\tat")
}

// loadDelay returns the nop needed after a load into dest, if any. A local
// label directly after the load is emitted first so the nop follows it.
func (p *Processor) loadDelay(dest string, single bool) []string {
	deferred := p.hiloLoad == p.index
	p.hiloLoad = -1

	next, idx, ok := p.lookahead(0, ignoreNop|ignoreSet)
	if !ok {
		return nil
	}
	var label *asm.Line
	if isLocalLabel(next) {
		if _, rawIdx, _ := p.lookahead(0, ignoreNone); rawIdx == idx {
			label = &p.lines[idx]
		}
		if next, _, ok = p.lookahead(1, ignoreNop|ignoreSet); !ok {
			return nil
		}
	}

	var reason string
	switch {
	case p.needsLoadDelay(next, dest):
		reason = "load delay " + dest
	case deferred && single && next.Category() == asm.CategoryMultDiv:
		reason = "mflo/mfhi to mult/div"
	default:
		return nil
	}
	if label != nil {
		p.skip = 1
		return append([]string{label.Text}, p.nop(reason)...)
	}
	return p.nop(reason)
}
