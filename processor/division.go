package processor

import (
	"fmt"

	"github.com/psx-tools/maspsx/asm"
)

// divParts returns the operands of a three-register div/divu/rem/remu
// whose destination is not $zero.
func divParts(l asm.Line) (dest, src, divisor string, ok bool) {
	switch l.Mnemonic {
	case "div", "divu", "rem", "remu":
	default:
		return "", "", "", false
	}
	if l.Category() != asm.CategoryMultDiv || len(l.Operands) != 3 {
		return "", "", "", false
	}
	for _, o := range l.Operands {
		if o.Kind != asm.OperandRegister {
			return "", "", "", false
		}
	}
	dest = l.Operands[0].Reg
	if asm.IsZeroRegister(dest) {
		return "", "", "", false
	}
	return dest, l.Operands[1].Reg, l.Operands[2].Reg, true
}

func needsDivExpansion(l asm.Line) bool {
	_, _, _, ok := divParts(l)
	return ok
}

func (p *Processor) division(l asm.Line) ([]string, error) {
	dest, src, divisor, ok := divParts(l)
	if !ok {
		return []string{l.Text}, nil
	}
	unsigned := l.Mnemonic == "divu" || l.Mnemonic == "remu"
	hw, read := "div", "mflo"
	if unsigned {
		hw = "divu"
	}
	if l.Mnemonic == "rem" || l.Mnemonic == "remu" {
		read = "mfhi"
	}

	var out []string
	if p.opts.ExpandDiv {
		out = p.divTrap(hw, read, dest, src, divisor, unsigned)
	} else {
		out = []string{asm.Format(hw, "$zero", src, divisor), asm.Format(read, dest)}
	}

	// the nop also counts towards the mflo/mfhi to mult/div distance
	if next, ok := p.next(ignoreNop | ignoreSet); ok && next.Category() != asm.CategoryMultDiv && p.needsLoadDelay(next, dest) {
		p.hiloLoad = -1
		return append(out, p.nop("result "+dest+" read by next instruction")...), nil
	}
	guard, _, err := p.guardHiLo()
	if err != nil {
		return nil, err
	}
	return append(out, guard...), nil
}

// divTrap emits the division with the runtime checks ASPSX generated:
// break 7 on division by zero and, for signed division, break 6 (or tge)
// when dividing INT_MIN by -1.
func (p *Processor) divTrap(hw, read, dest, src, divisor string, unsigned bool) []string {
	notZero := fmt.Sprintf(".L_NOT_DIV_BY_ZERO_%d", p.index)
	positive := fmt.Sprintf(".L_DIV_BY_POSITIVE_SIGN_%d", p.index)

	out := []string{
		".set\tnoat",
		asm.Format(hw, "$zero", src, divisor),
		asm.Format("bnez", divisor, notZero),
		"nop",
		"break\t0x7",
		notZero + ":",
	}
	if !unsigned {
		trap := "break\t0x6"
		if p.opts.DivUsesTge {
			trap = "tge\t$zero,$zero,93"
		}
		out = append(out,
			"addiu\t$at,$zero,-1",
			asm.Format("bne", divisor, "$at", positive),
			"lui\t$at,0x8000",
			asm.Format("bne", src, "$at", positive),
			"nop",
			trap,
			positive+":",
		)
	}
	return append(out, asm.Format(read, dest), ".set\tat")
}

// carry re-emits a line that a lookahead rule consumes on behalf of the main
// loop, tracking reorder directives as the main loop would.
func (p *Processor) carry(l asm.Line) []string {
	switch {
	case isNopPlaceholder(l):
		return nil
	case l.IsDirective(".set", "noreorder"):
		p.reorder = false
	case l.IsDirective(".set", "reorder"):
		p.reorder = true
	}
	return []string{l.Text}
}

// guardHiLo keeps two instructions between the mflo/mfhi just emitted and
// the next mult or div. handled reports that following lines were consumed.
func (p *Processor) guardHiLo() (out []string, handled bool, err error) {
	if !p.opts.NopMfloMfhi {
		return nil, false, nil
	}
	next, nextIdx, ok := p.lookahead(0, ignoreAll)
	if !ok {
		return nil, false, nil
	}
	if next.Category() == asm.CategoryMultDiv {
		return p.guardAdjacent(nextIdx), true, nil
	}
	after, afterIdx, ok := p.lookahead(1, ignoreAll)
	if !ok || after.Category() != asm.CategoryMultDiv {
		return nil, false, nil
	}
	switch next.Category() {
	case asm.CategoryLoad:
		p.hiloLoad = nextIdx
		return nil, false, nil
	case asm.CategoryHiLoRead:
		return nil, false, nil
	}
	return p.guardFiller(next, nextIdx, after, afterIdx)
}

// guardAdjacent handles mult/div as the very next instruction.
func (p *Processor) guardAdjacent(target int) []string {
	var out []string
	skip := 0
	for i := p.index + 1; i < len(p.lines); i++ {
		l := p.lines[i]
		if !isInstruction(l, ignoreNone) {
			continue
		}
		skip++
		if i < target {
			out = append(out, p.carry(l)...)
			continue
		}
		out = append(out, p.nop("mult/div after mflo/mfhi")...)
		out = append(out, "nop")
		if needsDivExpansion(l) {
			// the main loop expands it
			skip--
		} else {
			out = append(out, l.Text)
		}
		break
	}
	p.skip = skip
	return out
}

// guardFiller handles a single instruction between mflo/mfhi and mult/div.
func (p *Processor) guardFiller(filler asm.Line, fillerIdx int, target asm.Line, targetIdx int) ([]string, bool, error) {
	var pre, out []string
	nopBefore := !p.reorder
	skip := 0
	for i := p.index + 1; i <= targetIdx; i++ {
		l := p.lines[i]
		if !isInstruction(l, ignoreNone) {
			continue
		}
		skip++
		switch {
		case i < fillerIdx:
			pre = append(pre, p.carry(l)...)
			if !p.reorder {
				nopBefore = true
			}
		case i == fillerIdx:
			body, count, err := p.standalone(filler)
			if err != nil {
				return nil, false, err
			}
			switch {
			case count >= 2:
				out = append(pre, body...)
			case nopBefore || (filler.Category() == asm.CategoryMove && target.Reads(filler.Dest())):
				out = append(p.nop("mult/div two after mflo/mfhi"), pre...)
				out = append(out, body...)
			default:
				out = append(append(pre, body...), p.nop("mult/div two after mflo/mfhi")...)
			}
		case i < targetIdx:
			out = append(out, p.carry(l)...)
		default:
			if needsDivExpansion(l) {
				skip--
			} else {
				out = append(out, l.Text)
			}
		}
	}
	p.skip = skip
	return out, true, nil
}

// standalone rewrites an instruction whose rule needs no lookahead of its
// own and counts the machine instructions it assembles to.
func (p *Processor) standalone(l asm.Line) ([]string, int, error) {
	if len(l.Parts) > 0 {
		return []string{l.Text}, len(l.Parts), nil
	}
	switch l.Category() {
	case asm.CategoryLoadImmediate:
		out, count := p.expandLi(l)
		if !p.opts.ExpandLi {
			out = []string{l.Text}
		}
		return out, count, nil
	case asm.CategoryLoadImmediateFloat:
		out, err := p.loadFloat(l)
		return out, len(out), err
	case asm.CategoryLoadImmediateDouble:
		out, err := p.loadDouble(l)
		return out, len(out), err
	case asm.CategoryMove:
		return p.move(l), 1, nil
	case asm.CategoryBreak:
		return p.breakCode(l), 1, nil
	case asm.CategoryALU:
		if l.Mnemonic == "sltu" {
			out := p.sltu(l)
			return out, len(out), nil
		}
	case asm.CategoryStore, asm.CategoryLoadAddress:
		out, single, err := p.rewriteMemory(l)
		if err != nil {
			return nil, 0, err
		}
		if single {
			return out, 1, nil
		}
		return out, 2, nil
	}
	return []string{l.Text}, 1, nil
}
