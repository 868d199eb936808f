package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/psx-tools/maspsx/asm"
)

// ============================================================================
// Division Expansion Tests
// ============================================================================

func signedTrap(read, trap string) []string {
	return []string{
		".set\tnoat",
		"div\t$zero,$16,$2",
		"bnez\t$2,.L_NOT_DIV_BY_ZERO_0",
		"nop",
		"break\t0x7",
		".L_NOT_DIV_BY_ZERO_0:",
		"addiu\t$at,$zero,-1",
		"bne\t$2,$at,.L_DIV_BY_POSITIVE_SIGN_0",
		"lui\t$at,0x8000",
		"bne\t$16,$at,.L_DIV_BY_POSITIVE_SIGN_0",
		"nop",
		trap,
		".L_DIV_BY_POSITIVE_SIGN_0:",
		read + "\t$16",
		".set\tat",
	}
}

func TestDivision_Expand(t *testing.T) {
	expandDiv := opts(func(o *Options) { o.ExpandDiv = true })
	assert.Equal(t, signedTrap("mflo", "break\t0x6"), run(t, []string{"\tdiv\t$16,$16,$2"}, expandDiv))
	assert.Equal(t, signedTrap("mfhi", "break\t0x6"), run(t, []string{"\trem\t$16,$16,$2"}, expandDiv))
}

func TestDivision_ExpandTge(t *testing.T) {
	tge := opts(func(o *Options) { o.ExpandDiv = true; o.DivUsesTge = true })
	assert.Equal(t, signedTrap("mflo", "tge\t$zero,$zero,93"), run(t, []string{"\tdiv\t$16,$16,$2"}, tge))
	assert.Equal(t, signedTrap("mfhi", "tge\t$zero,$zero,93"), run(t, []string{"\trem\t$16,$16,$2"}, tge))
}

func TestDivision_ExpandUnsigned(t *testing.T) {
	expandDiv := opts(func(o *Options) { o.ExpandDiv = true })
	for mnemonic, read := range map[string]string{"divu": "mflo", "remu": "mfhi"} {
		got := run(t, []string{"\t" + mnemonic + "\t$2,$2,$3"}, expandDiv)
		assert.Equal(t, []string{
			".set\tnoat",
			"divu\t$zero,$2,$3",
			"bnez\t$3,.L_NOT_DIV_BY_ZERO_0",
			"nop",
			"break\t0x7",
			".L_NOT_DIV_BY_ZERO_0:",
			read + "\t$2",
			".set\tat",
		}, got, mnemonic)
	}
}

func TestDivision_LabelsUseLineIndex(t *testing.T) {
	got := run(t, []string{"nop", "nop", "divu\t$2,$2,$3"}, opts(func(o *Options) { o.ExpandDiv = true }))
	assert.Contains(t, got, "bnez\t$3,.L_NOT_DIV_BY_ZERO_2")
}

func TestDivision_Short(t *testing.T) {
	got := run(t, []string{"div\t$2,$4,$5", "rem\t$3,$4,$5"}, DefaultOptions())
	assert.Equal(t, []string{
		"div\t$zero,$4,$5",
		"mflo\t$2",
		"nop",
		"nop",
		"div\t$zero,$4,$5",
		"mfhi\t$3",
	}, got)
}

func TestDivision_PassThrough(t *testing.T) {
	lines := []string{"div\t$zero,$2,$3", "divu\t$2,$3", "div\t$2,$3,4", "mult\t$2,$3"}
	assert.Equal(t, lines, run(t, lines, opts(func(o *Options) { o.ExpandDiv = true })))
}

func TestDivision_ResultReadNop(t *testing.T) {
	lines := []string{"div\t$2,$2,$3", "sw\t$2,112($18)"}
	got := run(t, lines, opts(func(o *Options) { o.ExpandDiv = true }))
	assert.Equal(t, []string{"mflo\t$2", ".set\tat", "nop", "sw\t$2,112($18)"}, got[len(got)-4:])
}

func TestDivision_ResultReadThroughAt(t *testing.T) {
	lines := []string{"divu\t$2,$2,$3", "sh\t$2,gUpdateRate"}

	got := run(t, lines, opts(func(o *Options) { o.ExpandDiv = true }))
	assert.Equal(t, []string{"mflo\t$2", ".set\tat", "sh\t$2,gUpdateRate"}, got[len(got)-3:])

	got = run(t, lines, opts(func(o *Options) { o.ExpandDiv = true; o.NopAtExpansion = true }))
	assert.Equal(t, []string{"mflo\t$2", ".set\tat", "nop", "sh\t$2,gUpdateRate"}, got[len(got)-4:])
}

func TestDivision_MultAfterDiv(t *testing.T) {
	lines := []string{
		"\tdiv\t$3,$3,$6",
		"",
		"\t.loc\t2 67",
		"\tmult\t$3,$5",
	}
	assert.Equal(t, []string{
		"div\t$zero,$3,$6",
		"mflo\t$3",
		"nop",
		"nop",
		"mult\t$3,$5",
		"",
		".loc\t2 67",
	}, run(t, lines, DefaultOptions()))
}

func TestDivision_LiBetweenDivisions(t *testing.T) {
	lines := []string{
		"\tdiv\t$16,$16,$2",
		"",
		"\t.loc\t2 173",
		"LM163:",
		"\tli\t$4,0x00001000\t\t# 4096",
		"\tdiv\t$4,$4,$2",
	}
	assert.Equal(t, []string{
		"div\t$zero,$16,$2",
		"mflo\t$16",
		"li\t$4,0x00001000",
		"nop",
		"",
		".loc\t2 173",
		"LM163:",
		"div\t$zero,$4,$2",
		"mflo\t$4",
	}, run(t, lines, DefaultOptions()))
}

func TestDivision_ExpandedLiNeedsNoNop(t *testing.T) {
	lines := []string{
		"\tdiv\t$16,$16,$2",
		"\tli\t$4,0x0010001",
		"\tdiv\t$4,$4,$2",
	}
	assert.Equal(t, []string{
		"div\t$zero,$16,$2",
		"mflo\t$16",
		"lui\t$4,%hi(65537)",
		"ori\t$4,$4,65537 & 0xFFFF",
		"div\t$zero,$4,$2",
		"mflo\t$4",
	}, run(t, lines, opts(func(o *Options) { o.ExpandLi = true })))
}

func TestDivision_ResultReaderBeforeMult(t *testing.T) {
	lines := []string{"div\t$2,$2,$3", "sw\t$2,112($18)", "mult\t$4,$5"}
	assert.Equal(t, []string{
		"div\t$zero,$2,$3",
		"mflo\t$2",
		"nop",
		"sw\t$2,112($18)",
		"mult\t$4,$5",
	}, run(t, lines, DefaultOptions()))

	lines = []string{"div\t$2,$2,$3", "addu\t$4,$2,$6", "mult\t$4,$5"}
	assert.Equal(t, []string{
		"div\t$zero,$2,$3",
		"mflo\t$2",
		"nop",
		"addu\t$4,$2,$6",
		"mult\t$4,$5",
	}, run(t, lines, DefaultOptions()))
}

// ============================================================================
// mflo/mfhi Hazard Tests
// ============================================================================

func TestHiLo_MultAdjacent(t *testing.T) {
	lines := []string{"mflo\t$2", "#nop", "mult\t$2,$3"}
	assert.Equal(t, []string{"mflo\t$2", "nop", "nop", "mult\t$2,$3"}, run(t, lines, DefaultOptions()))
}

func TestHiLo_Disabled(t *testing.T) {
	lines := []string{"mult\t$2,$3", "mflo\t$2", "#nop", "#nop", "mult\t$2,$3"}
	got := run(t, lines, opts(func(o *Options) { o.NopMfloMfhi = false }))
	assert.Equal(t, []string{"mult\t$2,$3", "mflo\t$2", "mult\t$2,$3"}, got)
}

func TestHiLo_Move(t *testing.T) {
	lines := []string{"mflo\t$3", "move\t$2,$6", "mult\t$3,$5"}
	assert.Equal(t, []string{"mflo\t$3", "addu\t$2,$6,$zero", "nop", "mult\t$3,$5"}, run(t, lines, DefaultOptions()))
}

func TestHiLo_MoveFeedsMult(t *testing.T) {
	lines := []string{"mflo\t$3", "move\t$2,$6", "mult\t$2,$5"}
	assert.Equal(t, []string{"mflo\t$3", "nop", "addu\t$2,$6,$zero", "mult\t$2,$5"}, run(t, lines, DefaultOptions()))
}

func TestHiLo_MoveNoreorder(t *testing.T) {
	lines := []string{"mflo\t$3", ".set\tnoreorder", "move\t$2,$6", "mult\t$3,$5"}
	assert.Equal(t, []string{
		"mflo\t$3",
		"nop",
		".set\tnoreorder",
		"addu\t$2,$6,$zero",
		"mult\t$3,$5",
	}, run(t, lines, DefaultOptions()))
}

func TestHiLo_Branch(t *testing.T) {
	lines := []string{"mflo\t$2", "#nop", "#nop", "bgez\t$2,$L14", "mult\t$17,$3"}
	assert.Equal(t, []string{"mflo\t$2", "bgez\t$2,$L14", "nop", "mult\t$17,$3"}, run(t, lines, DefaultOptions()))
}

func TestHiLo_BranchNoreorder(t *testing.T) {
	lines := []string{
		"mflo\t$2",
		"#nop",
		"#nop",
		".set\tnoreorder",
		".set\tnomacro",
		"bgez\t$2,$L14",
		"mult\t$17,$3",
	}
	assert.Equal(t, []string{
		"mflo\t$2",
		"nop",
		".set\tnoreorder",
		"bgez\t$2,$L14",
		"mult\t$17,$3",
	}, run(t, lines, DefaultOptions()))
}

func TestHiLo_LiTwoInstructions(t *testing.T) {
	lines := []string{"mflo\t$3", "li\t$5,-2004318071\t\t\t# 0x88888889", "mult\t$3,$5        "}
	assert.Equal(t, []string{"mflo\t$3", "li\t$5,-2004318071", "mult\t$3,$5"}, run(t, lines, DefaultOptions()))
}

func TestHiLo_LiOneInstruction(t *testing.T) {
	lines := []string{"mflo\t$3", "li\t$5,16", "mult\t$3,$5"}
	got := run(t, lines, opts(func(o *Options) { o.ExpandLi = true }))
	assert.Equal(t, []string{"mflo\t$3", "ori\t$5,$zero,16", "nop", "mult\t$3,$5"}, got)
}

func TestHiLo_LoadFeedsMult(t *testing.T) {
	lines := []string{"mflo\t$2", "lw\t$3,0($4)", "mult\t$3,$5"}
	assert.Equal(t, []string{"mflo\t$2", "lw\t$3,0($4)", "nop", "mult\t$3,$5"}, run(t, lines, DefaultOptions()))
}

func TestHiLo_LoadUnrelatedToMult(t *testing.T) {
	lines := []string{"mflo\t$2", "lw\t$4,0($5)", "mult\t$3,$6"}
	assert.Equal(t, []string{"mflo\t$2", "lw\t$4,0($5)", "nop", "mult\t$3,$6"}, run(t, lines, DefaultOptions()))
}

func TestHiLo_ExpandedLoadNeedsNoNop(t *testing.T) {
	lines := []string{"mflo\t$2", "lw\t$4,40000($5)", "mult\t$3,$6"}
	got := run(t, lines, DefaultOptions())
	assert.Equal(t, "mult\t$3,$6", got[len(got)-1])
	assert.NotContains(t, got, "nop")
}

func TestHiLo_ChainedReads(t *testing.T) {
	lines := []string{"mflo\t$2", "mfhi\t$3", "mult\t$4,$5"}
	assert.Equal(t, []string{"mflo\t$2", "mfhi\t$3", "nop", "nop", "mult\t$4,$5"}, run(t, lines, DefaultOptions()))
}

func TestHiLo_OtherFiller(t *testing.T) {
	lines := []string{"mflo\t$2", "addu\t$3,$4,$5", "multu\t$3,$6"}
	assert.Equal(t, []string{"mflo\t$2", "addu\t$3,$4,$5", "nop", "multu\t$3,$6"}, run(t, lines, DefaultOptions()))
}

func TestHiLo_NoHazard(t *testing.T) {
	lines := []string{"mflo\t$2", "addu\t$3,$4,$5", "addu\t$3,$4,$5", "mult\t$3,$6"}
	assert.Equal(t, lines, run(t, lines, DefaultOptions()))
}

func TestHiLo_AdjacentDivisionExpanded(t *testing.T) {
	lines := []string{"mflo\t$2", "div\t$3,$3,$4"}
	assert.Equal(t, []string{"mflo\t$2", "nop", "nop", "div\t$zero,$3,$4", "mflo\t$3"}, run(t, lines, DefaultOptions()))
}

// ============================================================================
// Hazard Invariant Tests
// ============================================================================

func isMultDiv(l asm.Line) bool {
	switch l.Mnemonic {
	case "mult", "multu", "div", "divu":
		return true
	}
	return false
}

// checkHazards asserts that every mflo/mfhi is at least two instructions
// ahead of the next mult/div and is not read by the instruction after it.
func checkHazards(t *testing.T, out []string) {
	t.Helper()
	var code []asm.Line
	for _, text := range out {
		if l := asm.Parse(text); l.Kind == asm.KindInstruction {
			code = append(code, l)
		}
	}
	for i, l := range code {
		if l.Mnemonic != "mflo" && l.Mnemonic != "mfhi" {
			continue
		}
		if i+1 < len(code) {
			assert.False(t, code[i+1].Reads(l.Dest()), "%s read right after %s", l.Dest(), l.Text)
		}
		for j := i + 1; j < len(code); j++ {
			if isMultDiv(code[j]) {
				assert.GreaterOrEqual(t, j-i-1, 2, "%s too close to %s", l.Text, code[j].Text)
				break
			}
		}
	}
}

func TestHiLo_FillerSequences(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		opts  Options
	}{
		{"store reader", []string{"div\t$2,$2,$3", "sw\t$2,112($18)", "mult\t$4,$5"}, DefaultOptions()},
		{"alu reader", []string{"div\t$2,$2,$3", "addu\t$4,$2,$6", "mult\t$4,$5"}, DefaultOptions()},
		{"alu", []string{"div\t$2,$2,$3", "addu\t$4,$5,$6", "mult\t$4,$5"}, DefaultOptions()},
		{"two alu", []string{"div\t$2,$2,$3", "addu\t$4,$2,$6", "addu\t$4,$4,$6", "mult\t$4,$5"}, DefaultOptions()},
		{"move reader", []string{"div\t$2,$2,$3", "move\t$4,$2", "mult\t$4,$5"}, DefaultOptions()},
		{"move", []string{"div\t$2,$2,$3", "move\t$4,$7", "mult\t$4,$5"}, DefaultOptions()},
		{"li", []string{"div\t$2,$2,$3", "li\t$4,16", "mult\t$4,$5"}, DefaultOptions()},
		{"li expanded", []string{"div\t$2,$2,$3", "li\t$4,0x10001", "div\t$4,$4,$5"}, opts(func(o *Options) { o.ExpandLi = true })},
		{"load reader", []string{"div\t$2,$2,$3", "lw\t$4,0($2)", "mult\t$4,$5"}, DefaultOptions()},
		{"load", []string{"div\t$2,$2,$3", "lw\t$4,0($5)", "mult\t$3,$6"}, DefaultOptions()},
		{"load through at", []string{"div\t$2,$2,$3", "lw\t$4,40000($5)", "mult\t$3,$6"}, DefaultOptions()},
		{"label", []string{"div\t$2,$2,$3", "$L5:", "addu\t$4,$5,$6", "mult\t$4,$7"}, DefaultOptions()},
		{"reader then label", []string{"div\t$2,$2,$3", "sw\t$2,0($4)", "$L5:", "mult\t$4,$5"}, DefaultOptions()},
		{"noreorder", []string{"div\t$2,$2,$3", ".set\tnoreorder", "addu\t$4,$5,$6", "mult\t$4,$5"}, DefaultOptions()},
		{"adjacent mult", []string{"div\t$2,$2,$3", "mult\t$2,$4"}, DefaultOptions()},
		{"adjacent div", []string{"div\t$2,$2,$3", "div\t$4,$4,$5"}, DefaultOptions()},
		{"rem reader", []string{"rem\t$2,$2,$3", "addu\t$4,$2,$6", "multu\t$4,$5"}, DefaultOptions()},
		{"expanded reader", []string{"div\t$2,$2,$3", "sw\t$2,112($18)", "mult\t$4,$5"}, opts(func(o *Options) { o.ExpandDiv = true })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkHazards(t, run(t, tt.lines, tt.opts))
		})
	}
}
