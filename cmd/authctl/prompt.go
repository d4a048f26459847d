package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"
)

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(c *cli.Context) *prompter {
	return &prompter{in: bufio.NewReader(c.App.Reader), out: c.App.ErrWriter}
}

// secret returns the flag value, or reads one line from standard input.
func (p *prompter) secret(c *cli.Context, flag, label string) (string, error) {
	if v := c.String(flag); v != "" {
		return v, nil
	}
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("error reading %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func requireArgs(c *cli.Context, n int, usage string) error {
	if c.Args().Len() != n {
		return fmt.Errorf("%s requires %s", c.Command.FullName(), usage)
	}
	return nil
}
