package processor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/psx-tools/maspsx/asm"
)

// run processes lines and drops comments from the result.
func run(t *testing.T, lines []string, opts Options) []string {
	t.Helper()
	out, err := Process(lines, opts)
	require.NoError(t, err)
	return stripComments(out)
}

func stripComments(lines []string) []string {
	res := []string{}
	for _, line := range lines {
		if strings.HasPrefix(line, "#") {
			continue
		}
		code, _ := asm.SplitComment(line)
		res = append(res, strings.TrimSpace(code))
	}
	return res
}

func opts(modify func(o *Options)) Options {
	o := DefaultOptions()
	if modify != nil {
		modify(&o)
	}
	return o
}
