package main

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// readSource returns the assembly to process. Input comes from stdin unless
// it is a terminal or empty, in which case the last assembler argument names
// the input file and is removed from args.
func readSource(stdin io.Reader, tty, forceStdin bool, args []string) (text string, rest []string, err error) {
	if !tty {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", nil, errors.Wrap(err, "reading stdin")
		}
		if len(data) > 0 {
			return string(data), args, nil
		}
		if forceStdin {
			return "", nil, errors.New("--force-stdin but no input from stdin")
		}
		logrus.Warn("no input from stdin, will try to read from a file")
	}

	if len(args) == 0 {
		return "", nil, errors.New("no input file found")
	}
	path := args[len(args)-1]
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, errors.Wrapf(err, "reading %s", path)
	}
	return string(data), args[:len(args)-1], nil
}

// splitLines breaks text into lines without their terminators.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	return lo.Map(lines, func(line string, _ int) string {
		return strings.TrimSuffix(line, "\r")
	})
}
