package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/beetrack-client/internal/config"
	"github.com/jrsteele09/beetrack-client/internal/fakebackend"
	"github.com/jrsteele09/beetrack-client/internal/logging"
	"github.com/jrsteele09/beetrack-client/users"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	loginAttemptsPerMinute    = 5
	registerAttemptsPerMinute = 3
)

// demoUsers are seeded so the CLI can be tried straight away
var demoUsers = []struct {
	username string
	password string
	role     users.Role
}{
	{username: "admin", password: "Adm1n!pass", role: users.RoleAdmin},
	{username: "worker", password: "W0rker!pass", role: users.RoleWorker},
	{username: "customer", password: "Cust0mer!pass", role: users.RoleUser},
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running fake backend")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logging.Setup(c.GetLogLevel(), c.GetEnv())
	displayAppname(c.GetAppName() + " dev")

	backend, closeLimiter, err := newBackend(c)
	if err != nil {
		return err
	}
	defer closeLimiter()

	server := &http.Server{Addr: c.GetPort(), Handler: backend}
	errs := make(chan error, 1)
	go func() {
		errs <- listenAndServe(server)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errs:
		return err
	case <-stop:
	}
	return shutdown(server)
}

func newBackend(c config.Config) (*fakebackend.Server, func(), error) {
	options := []fakebackend.Option{
		fakebackend.WithRouteLogging(true),
		fakebackend.WithLogger(logging.Component("fakebackend")),
	}
	if key := c.GetSigningKey(); key != nil {
		options = append(options, fakebackend.WithSigningKey(key))
	}

	closeLimiter := func() {}
	switch c.GetRateLimitStore() {
	case config.RateLimitRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		})
		closeLimiter = func() { _ = rdb.Close() }
		options = append(options,
			fakebackend.WithLoginLimiter(fakebackend.NewRedisLimiter(rdb, loginAttemptsPerMinute, time.Minute, "beetrack:ratelimit:login")),
			fakebackend.WithRegisterLimiter(fakebackend.NewRedisLimiter(rdb, registerAttemptsPerMinute, time.Minute, "beetrack:ratelimit:register")),
		)
	default:
		options = append(options,
			fakebackend.WithLoginLimiter(fakebackend.NewWindowLimiter(loginAttemptsPerMinute, time.Minute, time.Now)),
			fakebackend.WithRegisterLimiter(fakebackend.NewWindowLimiter(registerAttemptsPerMinute, time.Minute, time.Now)),
		)
	}

	backend := fakebackend.New(options...)
	if c.GetSeedDemoUsers() {
		for _, u := range demoUsers {
			if _, err := backend.AddUser(u.username, u.username+"@beetrack.local", u.password, u.role, true); err != nil {
				closeLimiter()
				return nil, nil, fmt.Errorf("seeding %s: %w", u.username, err)
			}
			log.Info().Str("username", u.username).Str("role", string(u.role)).Msg("seeded demo user")
		}
	}
	return backend, closeLimiter, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Fake backend listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
