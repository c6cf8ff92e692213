// Package prompt asks for missing values on an interactive terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNotInteractive is returned when a value is needed but stdin is not a terminal.
var ErrNotInteractive = errors.New("input is not interactive")

// Prompter reads answers line by line from In and writes questions to Out.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// New creates a Prompter over arbitrary streams. interactive reports whether
// questions may be asked at all.
func New(in io.Reader, out io.Writer, interactive bool) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, interactive: interactive}
}

// NewStdio creates a Prompter over the process's stdin and stderr.
func NewStdio() *Prompter {
	return New(os.Stdin, os.Stderr, StdinIsTTY())
}

// StdinIsTTY reports whether stdin is a terminal.
func StdinIsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// WithDefault asks for label, showing def. An empty answer or end of input
// selects def.
func (p *Prompter) WithDefault(label, def string) (string, error) {
	if !p.interactive {
		if def != "" {
			return def, nil
		}
		return "", fmt.Errorf("%w: %s is required", ErrNotInteractive, label)
	}
	if def != "" {
		fmt.Fprintf(p.out, "%s (default: %s): ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	value := strings.TrimSpace(line)
	if value == "" {
		if def == "" {
			return "", fmt.Errorf("%s is required", label)
		}
		return def, nil
	}
	return value, nil
}
