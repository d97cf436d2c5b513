package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/victorcalife/TOIT-Nexus-sub010/internal/app"
	"golang.org/x/term"
)

// console reads answers from stdin; passwords are hidden on a terminal
type console struct {
	in     *bufio.Reader
	out    io.Writer
	stdin  *os.File
	hidden bool
}

func newConsole(in io.Reader, out io.Writer) *console {
	c := &console{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		c.stdin = f
		c.hidden = true
	}
	return c
}

func (c *console) ask(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (c *console) password(prompt string) (string, error) {
	if !c.hidden {
		return c.ask(prompt)
	}
	fmt.Fprint(c.out, prompt)
	raw, err := term.ReadPassword(int(c.stdin.Fd()))
	fmt.Fprintln(c.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

func (c *console) confirm(prompt string) (bool, error) {
	answer, err := c.ask(prompt + " (yes/no): ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "yes" || answer == "y", nil
}

// NewRootCmd builds the command tree on top of an assembled application
func NewRootCmd(a *app.App, in io.Reader, out io.Writer) *cobra.Command {
	con := newConsole(in, out)

	root := &cobra.Command{
		Use:   "toit-nexus",
		Short: "TOIT NEXUS calendar automation service",
		Long: `TOIT NEXUS watches connected calendars and starts workflows when events match triggers.

Run without arguments to start the HTTP server. Maintenance commands:
  toit-nexus key show                  # print the API key
  toit-nexus key reset                 # generate a new API key
  toit-nexus user create --tenant acme # create a user
  toit-nexus user list                 # list users
  toit-nexus workflow create --tenant acme --name "Prepare meeting"
  toit-nexus sync run                  # run one sync cycle now
  toit-nexus trigger list --tenant acme --account 3`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(out)

	root.AddCommand(newKeyCmd(a, con))
	root.AddCommand(newUserCmd(a, con))
	root.AddCommand(newWorkflowCmd(a))
	root.AddCommand(newSyncCmd(a))
	root.AddCommand(newTriggerCmd(a))
	return root
}

// Execute runs the CLI with the process arguments
func Execute(ctx context.Context, a *app.App) error {
	return NewRootCmd(a, os.Stdin, os.Stdout).ExecuteContext(ctx)
}
