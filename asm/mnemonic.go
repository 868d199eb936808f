package asm

// Category groups mnemonics that are rewritten or analysed the same way.
type Category int

const (
	CategoryOther Category = iota
	CategoryBranch
	CategoryJump
	CategoryLoad
	CategoryStore
	CategoryLoadAddress
	CategoryMultDiv             // writes hi/lo
	CategoryHiLoRead            // mflo, mfhi
	CategoryMove                // move
	CategoryLoadImmediate       // li
	CategoryLoadImmediateFloat  // li.s
	CategoryLoadImmediateDouble // li.d
	CategoryBreak
	CategoryALU     // rd, rs, rt/imm
	CategoryUnary   // rd, rs
	CategoryCopMove // mtc0/mtc2/ctc2/mthi/mtlo: reads the first operand
)

var categories = map[string]Category{
	"b": CategoryBranch, "bal": CategoryBranch,
	"beq": CategoryBranch, "bne": CategoryBranch,
	"beqz": CategoryBranch, "bnez": CategoryBranch,
	"bgez": CategoryBranch, "bgtz": CategoryBranch,
	"blez": CategoryBranch, "bltz": CategoryBranch,
	"bgezal": CategoryBranch, "bltzal": CategoryBranch,

	"j": CategoryJump, "jal": CategoryJump, "jr": CategoryJump, "jalr": CategoryJump,

	"lb": CategoryLoad, "lbu": CategoryLoad, "lh": CategoryLoad, "lhu": CategoryLoad,
	"lw": CategoryLoad, "lwl": CategoryLoad, "lwr": CategoryLoad,

	"sb": CategoryStore, "sh": CategoryStore, "sw": CategoryStore,
	"swl": CategoryStore, "swr": CategoryStore,

	"la": CategoryLoadAddress,

	"mult": CategoryMultDiv, "multu": CategoryMultDiv,
	"div": CategoryMultDiv, "divu": CategoryMultDiv,
	"rem": CategoryMultDiv, "remu": CategoryMultDiv,

	"mflo": CategoryHiLoRead, "mfhi": CategoryHiLoRead,

	"move": CategoryMove,

	"li":   CategoryLoadImmediate,
	"li.s": CategoryLoadImmediateFloat,
	"li.d": CategoryLoadImmediateDouble,

	"break": CategoryBreak,

	"add": CategoryALU, "addu": CategoryALU, "addi": CategoryALU, "addiu": CategoryALU,
	"sub": CategoryALU, "subu": CategoryALU,
	"and": CategoryALU, "andi": CategoryALU, "or": CategoryALU, "ori": CategoryALU,
	"xor": CategoryALU, "xori": CategoryALU, "nor": CategoryALU,
	"sll": CategoryALU, "srl": CategoryALU, "sra": CategoryALU,
	"sllv": CategoryALU, "srlv": CategoryALU, "srav": CategoryALU,
	"slt": CategoryALU, "slti": CategoryALU, "sltu": CategoryALU, "sltiu": CategoryALU,
	"lui": CategoryALU,

	"neg": CategoryUnary, "negu": CategoryUnary, "not": CategoryUnary, "abs": CategoryUnary,

	"mtc0": CategoryCopMove, "mtc1": CategoryCopMove, "mtc2": CategoryCopMove,
	"ctc1": CategoryCopMove, "ctc2": CategoryCopMove,
	"mthi": CategoryCopMove, "mtlo": CategoryCopMove,
}

// CategoryOf returns the category of a lower-case mnemonic.
func CategoryOf(mnemonic string) Category {
	return categories[mnemonic]
}

// HasDelaySlot reports whether c is a branch or jump.
func (c Category) HasDelaySlot() bool {
	return c == CategoryBranch || c == CategoryJump
}

// IsMemory reports whether c is a load or a store.
func (c Category) IsMemory() bool {
	return c == CategoryLoad || c == CategoryStore
}
