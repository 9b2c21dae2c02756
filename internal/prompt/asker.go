// Package prompt implements the interactive logging loop: an operator
// records status entries and transmission traffic through a small question
// interface, and every accepted record is persisted immediately.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Asker is the capability the loop needs from an input source: pick one of a
// set of choices, or enter free text with a suggested default. Production
// uses a terminal; tests use a scripted implementation.
type Asker interface {
	Select(prompt string, choices []string) (string, error)
	Text(prompt, defaultValue string) (string, error)
}

// TerminalAsker asks questions over a line-oriented terminal.
type TerminalAsker struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalAsker creates an asker reading answers from in and writing
// prompts to out.
func NewTerminalAsker(in io.Reader, out io.Writer) *TerminalAsker {
	return &TerminalAsker{in: bufio.NewReader(in), out: out}
}

// Select presents numbered choices and reads one back, accepting either the
// number or the choice text. Re-asks on anything else.
func (a *TerminalAsker) Select(prompt string, choices []string) (string, error) {
	for {
		fmt.Fprintf(a.out, "%s\n", prompt)
		for i, c := range choices {
			fmt.Fprintf(a.out, "  %d) %s\n", i+1, c)
		}
		fmt.Fprintf(a.out, "> ")

		line, err := a.in.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		line = strings.TrimSpace(line)

		if n, convErr := strconv.Atoi(line); convErr == nil && n >= 1 && n <= len(choices) {
			return choices[n-1], nil
		}
		for _, c := range choices {
			if strings.EqualFold(line, c) {
				return c, nil
			}
		}
		fmt.Fprintf(a.out, "Unrecognized choice %q\n", line)
		if err != nil {
			return "", err
		}
	}
}

// Text asks a free-text question; an empty answer takes the default.
func (a *TerminalAsker) Text(prompt, defaultValue string) (string, error) {
	if defaultValue != "" {
		fmt.Fprintf(a.out, "%s [%s] ", prompt, defaultValue)
	} else {
		fmt.Fprintf(a.out, "%s ", prompt)
	}

	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return defaultValue, nil
	}
	return line, nil
}
