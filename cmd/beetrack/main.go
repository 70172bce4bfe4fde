package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/beetrack-client/auth"
	"github.com/jrsteele09/beetrack-client/export"
	"github.com/jrsteele09/beetrack-client/internal/config"
	"github.com/jrsteele09/beetrack-client/internal/logging"
	"github.com/jrsteele09/beetrack-client/internal/ui"
	"github.com/jrsteele09/beetrack-client/token/store"
	"github.com/jrsteele09/beetrack-client/transport"
	"github.com/jrsteele09/beetrack-client/users"
	"github.com/redis/go-redis/v9"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			code = exitFailure
		}
	}()

	c := config.New()
	logging.SetupWriter(stderr, c.GetLogLevel(), c.GetEnv())

	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		displayAppname(stdout, c.GetAppName())
		usage(stdout)
		if len(args) == 0 {
			return exitUsage
		}
		return exitOK
	}

	a, err := newApp(c, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return exitFailure
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = a.execute(ctx, args)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		usage(stderr)
		return exitUsage
	default:
		fmt.Fprintf(stderr, "error: %s\n", describe(err))
		return exitFailure
	}
}

// newApp wires config, storage, transport, refresh and the auth manager
func newApp(c config.Config, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	a := &app{
		stdin:  stdin,
		stdout: stdout,
		colour: colourEnabled(stdout),
	}

	var persistent store.Tier
	switch c.GetTokenStore() {
	case config.TokenStoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		})
		a.closers = append(a.closers, rdb.Close)
		persistent = store.NewRedisTier(rdb, c.GetRedisKey(), 0)
	default:
		persistent = store.NewFileTier(c.GetCredentialsFile())
	}

	client, err := transport.New(c.GetAPIURL(),
		transport.WithTimeout(c.GetHTTPTimeout()),
		transport.WithLogger(logging.Component("transport")),
	)
	if err != nil {
		return nil, err
	}

	st, err := store.New(persistent, nil, store.WithLogger(logging.Component("tokenstore")))
	if err != nil {
		return nil, err
	}

	logger := logging.Component("beetrack")
	a.wiring = auth.Wire(client, st, auth.WireConfig{
		RefreshTimeout: c.GetRefreshTimeout(),
		Navigator: auth.NavigatorFunc(func(route string) {
			if route == users.RouteLogin {
				fmt.Fprintln(stderr, ui.Colourise(a.colour, ui.Yellow, "Your session has ended. Run `beetrack login` to sign in again."))
			}
		}),
		Logger: &logger,
	})
	a.users = users.NewAPI(client)
	a.exporter = export.New(client)
	return a, nil
}

// describe turns the auth sentinels into the messages a user should see
func describe(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "incorrect username or password"
	case errors.Is(err, auth.ErrAccountInactive):
		return "this account is not active, contact an administrator"
	case errors.Is(err, auth.ErrRateLimited):
		return "too many attempts, please try again in a minute"
	case errors.Is(err, auth.ErrNotAuthenticated):
		return "not logged in, run `beetrack login`"
	}

	var apiErr *transport.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return err.Error()
}

func colourEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func displayAppname(w io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: beetrack <command> [flags]

Commands:
  login [-remember] -u <username>     sign in (password from BEETRACK_PASSWORD or stdin)
  logout                              sign out and forget stored credentials
  whoami                              show the signed-in user
  sessions                            list your active sessions
  revoke <session-id>                 revoke another session
  revoke-all [-keep-current=false]    revoke every other session, or all of them
  register -u <username> -e <email>   create an account (password from BEETRACK_PASSWORD or stdin)
  users [id]                          list accounts or show one (admin)
  export orders|inspections [-o file] download an export (admin)
  can <route> [-role role]            check whether a route is reachable
`)
}
