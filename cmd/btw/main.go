// Command btw is the BTW Buddy command line client. It keeps the session in the
// configured token store so consecutive invocations stay logged in.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"btw-buddy/internal/api"
	"btw-buddy/internal/config"
	"btw-buddy/internal/session"
	"btw-buddy/internal/storage"
)

const usage = `Usage: btw [-config path] [-v] <command> [flags]

Session:
  login          Log in with email and password
  verify-otp     Complete a two-factor login
  logout         Forget the stored tokens
  whoami         Show the logged-in account
  refresh        Exchange the refresh token for a new access token
  keepalive      Refresh the access token before it expires, until interrupted

Account:
  register       Create an account step by step
  verify-email   Confirm an email address with the token from the email
  2fa            setup | enable

Bookkeeping:
  totals         Compute VAT totals for a JSON file of invoice lines
  transactions   list | add
  receipts       list | upload | link | download
  invoices       list | create | pdf
  vat-returns    list | prepare | submit
`

var errUsage = errors.New("invalid usage")

type command struct {
	run func(ctx context.Context, a *app, args []string) error
	// restore loads the stored session before run
	restore bool
}

var commands = map[string]command{
	"login":        {run: cmdLogin},
	"verify-otp":   {run: cmdVerifyOTP},
	"logout":       {run: cmdLogout},
	"whoami":       {run: cmdWhoami, restore: true},
	"refresh":      {run: cmdRefresh, restore: true},
	"keepalive":    {run: cmdKeepalive, restore: true},
	"register":     {run: cmdRegister},
	"verify-email": {run: cmdVerifyEmail},
	"2fa":          {run: cmdTwoFactor, restore: true},
	"totals":       {run: cmdTotals},
	"transactions": {run: cmdTransactions, restore: true},
	"receipts":     {run: cmdReceipts, restore: true},
	"invoices":     {run: cmdInvoices, restore: true},
	"vat-returns":  {run: cmdVATReturns, restore: true},
}

// app carries everything a command needs. One app serves one invocation.
type app struct {
	cfg     *config.Config
	auth    *api.AuthClient
	session *session.Manager
	client  *api.Client
	in      *bufio.Reader
	out     io.Writer
}

func newApp(cfg *config.Config, store storage.TokenStore, in io.Reader, out io.Writer) *app {
	authClient := api.NewAuthClient(cfg)
	a := &app{
		cfg:  cfg,
		auth: authClient,
		in:   bufio.NewReader(in),
		out:  out,
	}
	a.session = session.New(authClient, store, session.WithLogoutHook(func(reason error) {
		fmt.Fprintln(a.out, "Your session has ended. Log in again with: btw login")
	}))
	a.client = api.New(cfg, a.session)
	return a
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
	if cmd.restore {
		if _, err := a.session.Init(ctx); err != nil {
			return err
		}
	}
	return cmd.run(ctx, a, args[1:])
}

// requireSession fails early instead of sending a request that can only 401
func (a *app) requireSession() error {
	if !a.session.Authenticated() {
		return errNotLoggedIn
	}
	return nil
}

var errNotLoggedIn = errors.New("not logged in, run: btw login")

// prompt reads one line from the input, showing label first
func (a *app) prompt(label string) (string, error) {
	fmt.Fprintf(a.out, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// printFieldErrors lists validation messages in a stable order
func (a *app) printFieldErrors(fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(a.out, "  %s: %s\n", k, fields[k])
	}
}

// describe turns API errors into something a user can act on
func describe(err error) string {
	switch {
	case errors.Is(err, api.ErrUnauthorized), errors.Is(err, session.ErrRefreshFailed),
		errors.Is(err, session.ErrNoRefreshToken):
		return "not logged in, run: btw login"
	}
	if fields := api.FieldErrors(err); len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString("the server rejected the request:")
		for _, k := range keys {
			fmt.Fprintf(&b, "\n  %s: %s", k, strings.Join(fields[k], " "))
		}
		return b.String()
	}
	return err.Error()
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	verbose := flag.Bool("v", false, "Log requests and session changes to stderr")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if !*verbose {
		log.SetOutput(io.Discard)
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "btw: config error: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "btw: token store: %v\n", err)
		os.Exit(1)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(cfg, store, os.Stdin, os.Stdout).run(ctx, flag.Args()); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "btw: %s\n", describe(err))
		}
		stop()
		os.Exit(1)
	}
}
