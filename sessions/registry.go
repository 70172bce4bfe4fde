package sessions

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jrsteele09/beetrack-client/internal/routes"
	"github.com/jrsteele09/beetrack-client/transport"
)

// Registry lists and revokes the signed-in user's server-side sessions. It
// passes the current session id through and decides nothing itself.
type Registry struct {
	client *transport.Client
}

func NewRegistry(client *transport.Client) *Registry {
	return &Registry{client: client}
}

func (r *Registry) List(ctx context.Context) ([]Session, error) {
	list := make([]Session, 0)
	if err := r.client.Get(ctx, routes.UsersSessions, nil, &list); err != nil {
		return nil, fmt.Errorf("[Registry.List] %w", err)
	}
	return list, nil
}

// Revoke invalidates one session and the refresh credential behind it
func (r *Registry) Revoke(ctx context.Context, id int64) (string, error) {
	var msg Message
	if err := r.client.Delete(ctx, routes.SessionByID(id), nil, &msg); err != nil {
		return "", fmt.Errorf("[Registry.Revoke] %d: %w", id, err)
	}
	return msg.Message, nil
}

// RevokeAll invalidates every session. With keepCurrent the backend spares
// currentID, which is only sent when known.
func (r *Registry) RevokeAll(ctx context.Context, keepCurrent bool, currentID *int64) (string, error) {
	query := url.Values{}
	query.Set(routes.QueryKeepCurrent, strconv.FormatBool(keepCurrent))
	if currentID != nil {
		query.Set(routes.QueryCurrentSessionID, strconv.FormatInt(*currentID, 10))
	}

	var msg Message
	if err := r.client.Delete(ctx, routes.UsersSessions, query, &msg); err != nil {
		return "", fmt.Errorf("[Registry.RevokeAll] %w", err)
	}
	return msg.Message, nil
}
