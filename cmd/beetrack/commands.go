package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/beetrack-client/auth"
	"github.com/jrsteele09/beetrack-client/export"
	"github.com/jrsteele09/beetrack-client/internal/ui"
	"github.com/jrsteele09/beetrack-client/internal/utils"
	"github.com/jrsteele09/beetrack-client/transport"
	"github.com/jrsteele09/beetrack-client/users"
)

const passwordEnvVar = "BEETRACK_PASSWORD"

type app struct {
	wiring   *auth.Wiring
	users    *users.API
	exporter *export.Exporter
	stdin    io.Reader
	stdout   io.Writer
	colour   bool
	closers  []func() error
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c()
	}
}

func (a *app) manager() *auth.Manager {
	return a.wiring.Manager
}

func (a *app) execute(ctx context.Context, args []string) error {
	name, rest := args[0], args[1:]
	switch name {
	case "login":
		return a.login(ctx, rest)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "sessions":
		return a.sessions(ctx)
	case "revoke":
		return a.revoke(ctx, rest)
	case "revoke-all":
		return a.revokeAll(ctx, rest)
	case "register":
		return a.register(ctx, rest)
	case "users":
		return a.listUsers(ctx, rest)
	case "export":
		return a.export(ctx, rest)
	case "can":
		return a.can(ctx, rest)
	}
	return fmt.Errorf("unknown command %q: %w", name, errUsage)
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	username := fs.String("u", "", "username")
	remember := fs.Bool("remember", false, "stay signed in across runs")
	if err := fs.Parse(args); err != nil || *username == "" {
		return errUsage
	}

	password, err := a.readPassword()
	if err != nil {
		return err
	}

	user, err := a.manager().Login(ctx, auth.Credential{Username: *username, Password: password, RememberMe: *remember})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Logged in as %s (%s)\n", user.Username, user.Role)
	if !*remember {
		fmt.Fprintln(a.stdout, "Not remembered: this login ends when the command exits. Use -remember to stay signed in.")
	}
	return nil
}

func (a *app) logout(ctx context.Context) error {
	a.manager().Bootstrap(ctx)
	if err := a.manager().Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Logged out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	user, err := a.requireUser(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "%s <%s>\nrole: %s\n", user.Username, user.Email, user.Role)
	if id := a.manager().CurrentSessionID(); id != nil {
		fmt.Fprintf(a.stdout, "session: %d\n", *id)
	}
	return nil
}

func (a *app) sessions(ctx context.Context) error {
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	list, err := a.manager().FetchSessions(ctx)
	if err != nil {
		return err
	}

	current := a.manager().CurrentSessionID()
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDEVICE\tIP\tLAST ACTIVITY\tEXPIRES")
	for _, s := range list {
		id := strconv.FormatInt(s.ID, 10)
		if s.IsCurrent(current) {
			id = ui.Colourise(a.colour, ui.GreenInverse, id+" (current)")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			id,
			utils.ValueOr(s.DeviceInfo, "unknown"),
			utils.ValueOr(s.IPAddress, "-"),
			s.LastActivity.Local().Format(time.DateTime),
			s.ExpiresAt.Local().Format(time.DateTime),
		)
	}
	return tw.Flush()
}

func (a *app) revoke(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", args[0], errUsage)
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	msg, err := a.manager().RevokeSession(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, msg)
	return nil
}

func (a *app) revokeAll(ctx context.Context, args []string) error {
	fs := newFlagSet("revoke-all")
	keepCurrent := fs.Bool("keep-current", true, "keep this session signed in")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	msg, err := a.manager().RevokeAllSessions(ctx, *keepCurrent)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, msg)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := newFlagSet("register")
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email address")
	if err := fs.Parse(args); err != nil || *username == "" || *email == "" {
		return errUsage
	}

	password, err := a.readPassword()
	if err != nil {
		return err
	}
	if err := users.ValidatePasswordStrength(password); err != nil {
		return err
	}

	if err := a.manager().Register(ctx, auth.Registration{Username: *username, Email: *email, Password: password}); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Account %s created. Run `beetrack login -u %s` to sign in.\n", *username, *username)
	return nil
}

func (a *app) listUsers(ctx context.Context, args []string) error {
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	var list []users.User
	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q: %w", args[0], errUsage)
		}
		user, err := a.users.Get(ctx, id)
		if err != nil {
			return err
		}
		list = append(list, *user)
	} else {
		all, err := a.users.List(ctx)
		if err != nil {
			return err
		}
		list = all
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE\tACTIVE")
	for _, u := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\n", u.ID, u.Username, u.Email, u.Role, u.IsActive)
	}
	return tw.Flush()
}

func (a *app) export(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	kind := args[0]
	fs := newFlagSet("export")
	out := fs.String("o", "", "output file (defaults to the server's filename)")
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}
	var fetch func(context.Context) (*transport.Blob, error)
	switch kind {
	case "orders":
		fetch = a.exporter.OrdersCSV
	case "inspections":
		fetch = a.exporter.InspectionsPDF
	default:
		return fmt.Errorf("unknown export %q: %w", kind, errUsage)
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	blob, err := fetch(ctx)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = blob.Filename
	}
	if err := os.WriteFile(path, blob.Data, 0o644); err != nil {
		return fmt.Errorf("[export] write %s: %w", path, err)
	}
	fmt.Fprintf(a.stdout, "Wrote %d bytes to %s\n", len(blob.Data), path)
	return nil
}

// can reports the guard decision for route. With -role the policy is
// evaluated for that role instead of the signed-in user.
func (a *app) can(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	route := args[0]
	fs := newFlagSet("can")
	roleName := fs.String("role", "", "evaluate for this role instead of the signed-in user")
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}

	if *roleName != "" {
		role, err := users.ParseRole(*roleName)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%s: %t\n", users.Match(route), users.CanAccess(route, role))
		return nil
	}

	a.manager().Bootstrap(ctx)
	decision := a.manager().Guard(route)
	fmt.Fprintf(a.stdout, "%s: %s\n", users.Match(route), decision)
	if decision != auth.DecisionAllow {
		return fmt.Errorf("%s is not reachable (%s)", route, decision)
	}
	return nil
}

// requireUser restores the stored login
func (a *app) requireUser(ctx context.Context) (*users.User, error) {
	a.manager().Bootstrap(ctx)
	user := a.manager().User()
	if user == nil {
		return nil, auth.ErrNotAuthenticated
	}
	return user, nil
}

func (a *app) readPassword() (string, error) {
	if p := os.Getenv(passwordEnvVar); p != "" {
		return p, nil
	}
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("[readPassword] %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("no password given: set %s or pipe it on stdin", passwordEnvVar)
	}
	return password, nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}
