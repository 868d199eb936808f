package main

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// exitError carries the exit status of a failed assembler run.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("assembler exited with status %d", e.code)
}

// assemblerCommand builds "<as> -EL <args> [-G0] -". asPath is split like a
// shell would, so it may carry extra options.
func assemblerCommand(asPath string, args []string, forceG0 bool) ([]string, error) {
	argv, err := shellwords.Parse(asPath)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing assembler command %q", asPath)
	}
	if len(argv) == 0 {
		return nil, errors.New("empty assembler command")
	}
	argv = append(argv, "-EL")
	argv = append(argv, args...)
	if forceG0 {
		argv = append(argv, "-G0")
	}
	return append(argv, "-"), nil
}

// runAssembler feeds text to GNU as on stdin.
func runAssembler(ctx context.Context, argv []string, text string, stdout, stderr io.Writer) error {
	logrus.Debugf("running %s", strings.Join(argv, " "))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) {
			return &exitError{code: exit.ExitCode()}
		}
		return errors.Wrapf(err, "running %s", argv[0])
	}
	return nil
}
