package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/target/taskdesk/config"
	domainauth "github.com/target/taskdesk/internal/domain/auth"
	"github.com/target/taskdesk/internal/domain/presence"
	"github.com/target/taskdesk/internal/ports"
	"github.com/target/taskdesk/internal/service"
)

var errQuit = errors.New("quit")

// menuBounds is where the profile menu is drawn; clicks outside it close the menu.
var menuBounds = presence.Rect{Min: presence.Point{X: 0, Y: 0}, Max: presence.Point{X: 240, Y: 320}}

type commandFn func(ctx context.Context, args []string) error

type command struct {
	name        string
	usage       string
	description string
	run         commandFn
}

type appOptions struct {
	Provider     ports.IdentityProvider
	Sync         ports.ProfileSync
	Console      *console
	Client       config.ClientConfig
	ProviderName string
	Logger       *slog.Logger
	Now          func() time.Time
}

// app wires the auth flows, the session store and the profile menu to the console.
type app struct {
	con      *console
	flow     *service.AuthFlow
	store    *service.SessionStore
	pointers *service.PointerHub
	menu     *service.ProfileMenu
	stopSub  func()
}

func newApp(opts appOptions) (*app, error) {
	store, writer := service.NewSessionStore()
	flow, err := service.NewAuthFlow(service.AuthFlowOptions{
		Provider:             opts.Provider,
		Sync:                 opts.Sync,
		Session:              writer,
		Notifier:             opts.Console,
		Navigator:            opts.Console,
		Logger:               opts.Logger,
		Now:                  opts.Now,
		HomePath:             opts.Client.HomePath,
		ProviderName:         opts.ProviderName,
		RepairProfileOnLogin: opts.Client.RepairProfileOnLogin,
	})
	if err != nil {
		return nil, err
	}

	pointers := service.NewPointerHub()
	a := &app{
		con:      opts.Console,
		flow:     flow,
		store:    store,
		pointers: pointers,
		menu:     service.MountProfileMenu(store, pointers, menuBounds),
	}
	a.stopSub = store.Subscribe(func(s domainauth.Session) {
		if !s.IsAuthenticated() {
			a.con.println("(signed out)")
		}
	})
	return a, nil
}

func (a *app) close() {
	a.menu.Teardown()
	a.stopSub()
	a.flow.Wait()
}

func (a *app) commands() map[string]command {
	return map[string]command{
		"login": {
			name: "login", usage: "login [redirect-path]",
			description: "Sign in with email and password",
			run:         a.runLogin,
		},
		"register": {
			name: "register", usage: "register",
			description: "Create an account and store the profile",
			run:         a.runRegister,
		},
		"federated": {
			name: "federated", usage: "federated [redirect-path]",
			description: "Sign in with the federated provider",
			run:         a.runFederated,
		},
		"logout": {
			name: "logout", usage: "logout",
			description: "Sign out",
			run:         func(ctx context.Context, _ []string) error { a.flow.SignOut(ctx); return nil },
		},
		"whoami": {
			name: "whoami", usage: "whoami",
			description: "Show the current session",
			run:         a.runWhoami,
		},
		"menu": {
			name: "menu", usage: "menu",
			description: "Toggle the profile menu",
			run:         a.runMenu,
		},
		"click": {
			name: "click", usage: "click X Y",
			description: "Send a pointer-down at X,Y",
			run:         a.runClick,
		},
		"help": {
			name: "help", usage: "help",
			description: "List commands",
			run:         a.runHelp,
		},
		"quit": {
			name: "quit", usage: "quit",
			description: "Exit",
			run:         func(context.Context, []string) error { return errQuit },
		},
	}
}

// run reads commands until quit, end of input or ctx cancellation.
func (a *app) run(ctx context.Context) error {
	cmds := a.commands()
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := a.con.prompt(fmt.Sprintf("taskdesk %s> ", a.con.currentRoute()))
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read command: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, ok := cmds[fields[0]]
		if !ok {
			a.con.printf("unknown command %q (try help)\n", fields[0])
			continue
		}
		if err := cmd.run(ctx, fields[1:]); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			a.con.printf("%s: %v\n", cmd.name, err)
		}
	}
}

func redirectArg(args []string) domainauth.RedirectContext {
	if len(args) == 0 {
		return domainauth.RedirectContext{}
	}
	return domainauth.RedirectContext{FromPath: args[0]}
}

func (a *app) runLogin(ctx context.Context, args []string) error {
	email, err := a.con.prompt("Email: ")
	if err != nil {
		return err
	}
	password, err := a.con.promptSecret("Password: ")
	if err != nil {
		return err
	}
	a.flow.PasswordLogin(ctx, service.PasswordLoginInput{
		Email:    email,
		Password: password,
		Redirect: redirectArg(args),
	})
	return nil
}

func (a *app) runRegister(ctx context.Context, _ []string) error {
	var form service.RegistrationForm
	fields := []struct {
		label  string
		dst    *string
		secret bool
	}{
		{"Name: ", &form.Name, false},
		{"Email: ", &form.Email, false},
		{"Phone: ", &form.Phone, false},
		{"Photo URL: ", &form.PhotoURL, false},
		{"Password: ", &form.Password, true},
		{"Confirm password: ", &form.ConfirmPassword, true},
	}
	for _, f := range fields {
		var (
			v   string
			err error
		)
		if f.secret {
			v, err = a.con.promptSecret(f.label)
		} else {
			v, err = a.con.prompt(f.label)
		}
		if err != nil {
			return err
		}
		*f.dst = v
	}
	a.flow.Register(ctx, &form)
	return nil
}

func (a *app) runFederated(ctx context.Context, args []string) error {
	res := a.flow.FederatedLogin(ctx, redirectArg(args))
	if res.Outcome == service.OutcomeCancelled {
		a.con.println("sign-in cancelled")
	}
	return nil
}

func (a *app) runWhoami(_ context.Context, _ []string) error {
	s := a.store.GetCurrent()
	if !s.IsAuthenticated() {
		a.con.println("not signed in")
		return nil
	}
	u := s.User
	a.con.printf("signed in as %s\n", u.Email)
	if u.DisplayName != "" {
		a.con.printf("  name:     %s\n", u.DisplayName)
	}
	a.con.printf("  provider: %s\n", u.ProviderID)
	if !u.ExpiresAt.IsZero() {
		a.con.printf("  expires:  %s\n", u.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

func (a *app) runMenu(_ context.Context, _ []string) error {
	a.menu.Toggle()
	a.printMenuState()
	return nil
}

func (a *app) runClick(_ context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: click X Y")
	}
	x, errX := strconv.ParseFloat(args[0], 64)
	y, errY := strconv.ParseFloat(args[1], 64)
	if errX != nil || errY != nil {
		return errors.New("X and Y must be numbers")
	}
	a.pointers.Dispatch(presence.PointerEvent{At: presence.Point{X: x, Y: y}})
	a.printMenuState()
	return nil
}

func (a *app) printMenuState() {
	state := "closed"
	if a.menu.IsOpen() {
		state = "open"
	}
	a.con.printf("menu: %s\n", state)
}

func (a *app) runHelp(_ context.Context, _ []string) error {
	cmds := a.commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a.con.printf("  %-26s %s\n", cmds[name].usage, cmds[name].description)
	}
	return nil
}
