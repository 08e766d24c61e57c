package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword and isTerminal are test seams over x/term.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

var ErrEmptyPassphrase = errors.New("passphrase must not be empty")

// prompter is what passphrase prompts need from a command.
type prompter interface {
	InOrStdin() io.Reader
	ErrOrStderr() io.Writer
}

// readPassphrase reads without echo from a terminal, or one line from the
// command's input otherwise, so scripts can pipe it in.
func (a *App) readPassphrase(p prompter, prompt string) ([]byte, error) {
	w := p.ErrOrStderr()
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}

	var pass []byte
	if f, ok := p.InOrStdin().(*os.File); ok && isTerminal(int(f.Fd())) {
		pw, err := readPassword(int(f.Fd()))
		fmt.Fprintln(w)
		if err != nil {
			return nil, err
		}
		pass = pw
	} else {
		line, err := a.lineReader(p).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			return nil, fmt.Errorf("read passphrase: %w", err)
		}
		pass = []byte(strings.TrimRight(line, "\r\n"))
	}

	if len(pass) == 0 {
		return nil, ErrEmptyPassphrase
	}
	return pass, nil
}

// lineReader is shared across prompts so buffered input is not lost.
func (a *App) lineReader(p prompter) *bufio.Reader {
	if a.in == nil {
		a.in = bufio.NewReader(p.InOrStdin())
	}
	return a.in
}
