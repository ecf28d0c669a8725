package cli

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompter asks questions on the command's input. Every question has a
// default that a blank answer or EOF selects.
type prompter struct {
	cmd *cobra.Command
	in  *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{cmd: cmd, in: bufio.NewReader(cmd.InOrStdin())}
}

func (p *prompter) line() string {
	s, _ := p.in.ReadString('\n') //nolint:errcheck // EOF yields the default
	return strings.TrimSpace(s)
}

// choose lists options numbered from 1 and returns the index picked.
// Out-of-range or unparsable answers pick the first option.
func (p *prompter) choose(title string, options []string) int {
	p.cmd.Println(title)
	for i, o := range options {
		p.cmd.Printf("  %d. %s\n", i+1, o)
	}
	p.cmd.Print("\nEnter choice [1]: ")
	return pickIndex(p.line(), len(options))
}

func (p *prompter) text(label, def string) string {
	p.cmd.Printf("%s [%s]: ", label, def)
	if s := p.line(); s != "" {
		return s
	}
	return def
}

func (p *prompter) number(label string, def int) int {
	p.cmd.Printf("%s [%d]: ", label, def)
	n, err := strconv.Atoi(p.line())
	if err != nil {
		return def
	}
	return n
}

// secret reads without echo on a terminal and as a plain line otherwise.
func (p *prompter) secret(label string) string {
	p.cmd.Print(label + ": ")
	defer p.cmd.Println()
	if f, ok := p.cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if b, err := term.ReadPassword(int(f.Fd())); err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	return p.line()
}

// pickIndex maps a 1-based answer to a 0-based index, falling back to 0.
func pickIndex(answer string, n int) int {
	i, err := strconv.Atoi(answer)
	if err != nil || i < 1 || i > n {
		return 0
	}
	return i - 1
}

// maskSecret keeps the first and last four characters of long values.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
