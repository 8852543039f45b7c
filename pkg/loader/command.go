package loader

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
)

// Command pipes the source through an external program, e.g. a transpiler
// that reads stdin and writes stdout.
type Command struct {
	Args []string
	// Dir is the working directory of the process.
	Dir string
}

// NewCommand splits a shell-style command line.
func NewCommand(line string) (*Command, error) {
	args, err := shellwords.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("parse loader command %q: %w", line, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("loader command is empty")
	}
	return &Command{Args: args}, nil
}

func (c *Command) String() string { return strings.Join(c.Args, " ") }

// Transform runs the command with source on stdin and returns its stdout.
func (c *Command) Transform(source string) (string, error) {
	cmd := exec.Command(c.Args[0], c.Args[1:]...)
	cmd.Dir = c.Dir
	cmd.Stdin = strings.NewReader(source)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", errors.Wrapf(err, "%s: %s", c.Args[0], msg)
		}
		return "", errors.Wrap(err, c.Args[0])
	}
	return stdout.String(), nil
}
