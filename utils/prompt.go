package utils

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks questions on out and reads single-line answers from in.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a Prompter over the given streams.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints label and returns the trimmed answer. If current is already
// non-empty it is returned without asking.
func (p *Prompter) Ask(label, current string) (string, error) {
	if current != "" {
		return current, nil
	}
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("prompt: read %q: %w", label, err)
	}
	return strings.TrimSpace(line), nil
}
