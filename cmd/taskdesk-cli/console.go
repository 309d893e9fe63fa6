package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/target/taskdesk/internal/adapters/oidc"
	domainauth "github.com/target/taskdesk/internal/domain/auth"
	"github.com/target/taskdesk/internal/ports"
)

var (
	_ ports.Notifier  = (*console)(nil)
	_ ports.Navigator = (*console)(nil)
)

// console is the terminal surface: it prints feedback and navigation and reads input.
// Background flows may print while a prompt is waiting, so writes are serialized.
type console struct {
	in  *bufio.Reader
	fd  int
	tty bool

	mu    sync.Mutex
	out   io.Writer
	route string
}

func newConsole(in io.Reader, out io.Writer) *console {
	c := &console{in: bufio.NewReader(in), out: out, fd: -1, route: "/"}
	if f, ok := in.(*os.File); ok {
		c.fd = int(f.Fd())
		c.tty = term.IsTerminal(c.fd)
	}
	return c
}

// Notify prints a user-visible acknowledgment.
func (c *console) Notify(_ context.Context, fb domainauth.Feedback) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", fb.Level)
	if fb.Field != "" {
		fmt.Fprintf(&b, "%s: ", fb.Field)
	}
	if fb.Title != "" {
		fmt.Fprintf(&b, "%s: ", fb.Title)
	}
	b.WriteString(fb.Message)
	c.println(b.String())
}

// Navigate records the new route and prints it.
func (c *console) Navigate(_ context.Context, intent domainauth.NavigationIntent) {
	c.mu.Lock()
	c.route = intent.TargetPath
	c.mu.Unlock()

	line := "→ " + intent.TargetPath
	if intent.Replace {
		line += " (replace)"
	}
	c.println(line)
}

func (c *console) currentRoute() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.route
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func (c *console) println(s string) {
	c.printf("%s\n", s)
}

// prompt prints label and reads one trimmed line. io.EOF is returned only when no input is left.
func (c *console) prompt(label string) (string, error) {
	c.printf("%s", label)
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads a line without echo when attached to a terminal.
func (c *console) promptSecret(label string) (string, error) {
	if !c.tty {
		line, err := c.prompt(label)
		return line, err
	}
	c.printf("%s", label)
	raw, err := term.ReadPassword(c.fd)
	c.println("")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

// authorizer drives the federated consent step: the user opens the URL in a browser and
// pastes back the URL the provider redirected to. An empty line cancels.
func (c *console) authorizer() oidc.Authorizer {
	return oidc.AuthorizerFunc(func(_ context.Context, authURL string) (string, error) {
		c.printf("Open this URL in your browser to sign in:\n  %s\n", authURL)
		callback, err := c.prompt("Paste the redirect URL (empty to cancel): ")
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return callback, nil
	})
}
