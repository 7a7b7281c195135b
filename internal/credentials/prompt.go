// internal/credentials/prompt.go
package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNoInput is returned when the input closes before an answer was given.
var ErrNoInput = errors.New("no input available for credential prompt")

// Prompter asks the user for credentials.
type Prompter interface {
	Username() (string, error)
	Password(username string) (string, error)
}

// TerminalPrompter prompts on Out and reads answers from In. Passwords are
// read without echo when In is a terminal.
type TerminalPrompter struct {
	in     *bufio.Reader
	out    io.Writer
	fd     int
	isTerm bool
}

// NewTerminalPrompter builds a prompter reading from in. Prompts go to out,
// which should not be stdout so that command output stays clean.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	p := &TerminalPrompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd, p.isTerm = int(f.Fd()), true
	}
	return p
}

func (p *TerminalPrompter) Username() (string, error) {
	fmt.Fprint(p.out, "pypi username: ")
	name, err := p.readLine()
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", errors.New("username must not be empty")
	}
	return name, nil
}

func (p *TerminalPrompter) Password(username string) (string, error) {
	fmt.Fprintf(p.out, "pypi password for %s: ", username)
	if !p.isTerm {
		return p.readLine()
	}
	raw, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(raw), nil
}

func (p *TerminalPrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
