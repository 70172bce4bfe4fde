package auth

import (
	"context"
	"time"

	"github.com/jrsteele09/beetrack-client/sessions"
	"github.com/jrsteele09/beetrack-client/token/refresh"
	"github.com/jrsteele09/beetrack-client/token/store"
	"github.com/jrsteele09/beetrack-client/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Wiring is a ready to use client: the store mirrors its token into the
// transport, and the transport's 401 interceptor refreshes through the
// coordinator, whose failures end the session in the manager.
type Wiring struct {
	Client      *transport.Client
	Store       *store.Store
	Coordinator *refresh.Coordinator
	Manager     *Manager
}

// WireConfig carries what Wire needs beyond the client and store
type WireConfig struct {
	RefreshTimeout time.Duration
	Navigator      Navigator
	Logger         *zerolog.Logger
}

func Wire(client *transport.Client, st *store.Store, cfg WireConfig) *Wiring {
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	st.SetHeaderSink(client)

	api := NewAPI(client)
	managerOptions := []Option{WithLogger(logger.With().Str("component", "auth").Logger())}
	if cfg.Navigator != nil {
		managerOptions = append(managerOptions, WithNavigator(cfg.Navigator))
	}
	manager := NewManager(api, st, sessions.NewRegistry(client), managerOptions...)

	refreshOptions := []refresh.Option{
		refresh.WithGeneration(st.Generation),
		refresh.WithApply(manager.ApplyRefreshed),
		refresh.WithOnFailure(manager.HandleSessionExpired),
		refresh.WithLogger(logger.With().Str("component", "refresh").Logger()),
	}
	if cfg.RefreshTimeout > 0 {
		refreshOptions = append(refreshOptions, refresh.WithTimeout(cfg.RefreshTimeout))
	}
	coordinator := refresh.New(func(ctx context.Context) (string, error) {
		pair, err := api.Refresh(ctx)
		return pair.AccessToken, err
	}, refreshOptions...)
	client.SetCoordinator(coordinator)

	return &Wiring{
		Client:      client,
		Store:       st,
		Coordinator: coordinator,
		Manager:     manager,
	}
}
