package processor

import (
	"fmt"
)

// sections allocates the .comm/.lcomm symbols removed from the input,
// small ones in .sbss so %gp_rel references resolve.
func (p *Processor) sections() []string {
	return append(p.section(".sbss", p.symbols.sbss), p.section(".bss", p.symbols.bss)...)
}

func (p *Processor) section(name string, m *sizeMap) []string {
	if m.len() == 0 {
		return nil
	}
	out := []string{".section " + name}
	for _, sym := range m.order {
		size := m.sizes[sym]
		common := p.symbols.common[sym]
		if p.opts.UseCommSection && (common || p.opts.UseCommForLcomm) {
			out = append(out, fmt.Sprintf("\t.comm\t%s,%d", sym, size))
			continue
		}
		if common {
			out = append(out, "\t.globl\t"+sym)
		}
		out = append(out, sym+":", fmt.Sprintf("\t.space\t%d", size))
	}
	return out
}
