package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/99minutos/coupon-admin/internal/console"
	"github.com/99minutos/coupon-admin/internal/core/domain"
	"github.com/99minutos/coupon-admin/internal/core/policy"
)

const usage = `usage: couponctl <command> [flags]

commands:
  whoami                      resolve and print the current user
  login -windows              sign in with the Windows identity
  login -u USER [-p PASS]     sign in with a password (read from stdin when -p is omitted)
  logout                      forget the stored token
  register -u USER [-p PASS] [-email EMAIL] [-name FULL_NAME]
  nav [PATH]                  list visible menu entries, or check access to PATH
`

type app struct {
	console *console.Console
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
}

// run executes one command and returns the process exit code.
func (a *app) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.errOut, usage)
		return 2
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "whoami":
		return a.whoami(ctx)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		a.console.Actions().Logout(ctx)
		fmt.Fprintln(a.out, "signed out")
		return 0
	case "register":
		return a.register(ctx, rest)
	case "nav":
		return a.nav(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return 0
	default:
		fmt.Fprintf(a.errOut, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
}

type whoamiOutput struct {
	User         *domain.User         `json:"user"`
	Capabilities policy.CapabilitySet `json:"capabilities"`
}

func (a *app) whoami(ctx context.Context) int {
	st := a.console.Start(ctx)
	if st.User == nil {
		fmt.Fprintln(a.out, "not signed in")
		return 1
	}
	return a.printJSON(whoamiOutput{User: st.User, Capabilities: a.console.Capabilities()})
}

func (a *app) login(ctx context.Context, args []string) int {
	fs := a.flagSet("login")
	windows := fs.Bool("windows", false, "sign in with the Windows identity")
	user := fs.String("u", "", "username")
	pass := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var err error
	switch {
	case *windows:
		err = a.console.Actions().LoginImplicit(ctx)
	case *user != "":
		password := *pass
		if password == "" {
			password = a.readSecret("password: ")
		}
		err = a.console.Actions().LoginWithCredentials(ctx, *user, password)
	default:
		fmt.Fprintln(a.errOut, "login: pass -windows or -u USER")
		return 2
	}
	if err != nil {
		fmt.Fprintf(a.errOut, "login failed: %s\n", domain.Message(err))
		return 1
	}

	u := a.console.Session().Get().User
	if u != nil {
		fmt.Fprintf(a.out, "signed in as %s\n", u.Username)
	} else {
		fmt.Fprintln(a.out, "signed in")
	}
	return 0
}

func (a *app) register(ctx context.Context, args []string) int {
	fs := a.flagSet("register")
	user := fs.String("u", "", "username")
	pass := fs.String("p", "", "password")
	email := fs.String("email", "", "email address")
	name := fs.String("name", "", "full name")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *user == "" {
		fmt.Fprintln(a.errOut, "register: -u is required")
		return 2
	}

	password := *pass
	if password == "" {
		password = a.readSecret("password: ")
	}
	err := a.console.Actions().Register(ctx, domain.NewUser{
		Username: *user,
		Password: password,
		Email:    *email,
		FullName: *name,
	})
	if err != nil {
		fmt.Fprintf(a.errOut, "register failed: %s\n", domain.Message(err))
		return 1
	}
	fmt.Fprintf(a.out, "registered %s, sign in with: couponctl login -u %s\n", *user, *user)
	return 0
}

func (a *app) nav(ctx context.Context, args []string) int {
	a.console.Start(ctx)

	if len(args) > 0 {
		ok, redirect := a.console.Guard(args[0])
		if !ok {
			fmt.Fprintf(a.out, "%s: denied, go to %s\n", args[0], redirect)
			return 1
		}
		fmt.Fprintf(a.out, "%s: allowed\n", args[0])
		return 0
	}

	for _, e := range a.console.Capabilities().Nav {
		fmt.Fprintf(a.out, "%-22s %s\n", e.Title, e.Path)
	}
	return 0
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *app) readSecret(prompt string) string {
	fmt.Fprint(a.errOut, prompt)
	line, _ := bufio.NewReader(a.in).ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

func (a *app) printJSON(v any) int {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(a.errOut, "couponctl:", err)
		return 1
	}
	return 0
}

// printNavigator reports navigation targets instead of switching views.
type printNavigator struct {
	w   io.Writer
	log zerolog.Logger
}

func (n *printNavigator) Navigate(path string) {
	n.log.Debug().Str("path", path).Msg("navigate")
	fmt.Fprintf(n.w, "-> %s\n", path)
}
