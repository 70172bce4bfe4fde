package users

import (
	"context"
	"fmt"

	"github.com/jrsteele09/beetrack-client/internal/routes"
	"github.com/jrsteele09/beetrack-client/token"
	"github.com/jrsteele09/beetrack-client/transport"
)

// API wraps the user directory endpoints
type API struct {
	client *transport.Client
}

func NewAPI(client *transport.Client) *API {
	return &API{client: client}
}

// Me fetches the profile of the signed-in user. The backend may answer with
// null, which is returned as a nil user.
func (a *API) Me(ctx context.Context) (*User, error) {
	var user *User
	if err := a.client.Get(ctx, routes.UsersMe, nil, &user); err != nil {
		return nil, fmt.Errorf("[users.Me] %w", err)
	}
	return user, nil
}

func (a *API) Get(ctx context.Context, id int64) (*User, error) {
	var user User
	if err := a.client.Get(ctx, routes.UserByID(id), nil, &user); err != nil {
		return nil, fmt.Errorf("[users.Get] %d: %w", id, err)
	}
	return &user, nil
}

// List returns every account. Admin only.
func (a *API) List(ctx context.Context) ([]User, error) {
	var list []User
	if err := a.client.Get(ctx, routes.UsersList, nil, &list); err != nil {
		return nil, fmt.Errorf("[users.List] %w", err)
	}
	return list, nil
}

// UpdateMe changes the signed-in user's profile. The backend reissues the
// access token because the username is its subject.
func (a *API) UpdateMe(ctx context.Context, update Update) (token.Pair, error) {
	var pair token.Pair
	if err := a.client.Put(ctx, routes.UsersMe, update, &pair); err != nil {
		return token.Pair{}, fmt.Errorf("[users.UpdateMe] %w", err)
	}
	return pair, nil
}
