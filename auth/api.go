package auth

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/beetrack-client/internal/errors"
	"github.com/jrsteele09/beetrack-client/internal/routes"
	"github.com/jrsteele09/beetrack-client/token"
	"github.com/jrsteele09/beetrack-client/transport"
	"github.com/jrsteele09/beetrack-client/users"
)

var (
	ErrInvalidCredentials = errors.ErrInvalidCredentials
	ErrAccountInactive    = errors.ErrAccountInactive
	ErrRateLimited        = errors.ErrRateLimited
	ErrNotAuthenticated   = errors.ErrNotAuthenticated
)

// Registration is the self-service sign-up payload. Role is always sent as
// "worker"; the backend decides what the account really gets.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerBody struct {
	Registration
	Role string `json:"role"`
}

type rememberBody struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// API wraps the authentication endpoints
type API struct {
	client *transport.Client
}

func NewAPI(client *transport.Client) *API {
	return &API{client: client}
}

// Login is the form-encoded login. No session is opened, so the token
// cannot be refreshed.
func (a *API) Login(ctx context.Context, username, password string) (token.Pair, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var pair token.Pair
	err := a.client.Do(ctx, &transport.Request{
		Method:   http.MethodPost,
		Path:     routes.UsersLogin,
		Form:     form,
		SkipAuth: true,
	}, &pair)
	if err != nil {
		return token.Pair{}, errors.Wrapf(classifyLoginError(err), "[auth.Login] %s", username)
	}
	return pair, nil
}

// LoginWithRemember is the JSON login. With rememberMe the backend opens a
// session and sets the refresh cookie.
func (a *API) LoginWithRemember(ctx context.Context, username, password string, rememberMe bool) (token.Pair, error) {
	var pair token.Pair
	err := a.client.Do(ctx, &transport.Request{
		Method:   http.MethodPost,
		Path:     routes.UsersLoginWithRemember,
		Body:     rememberBody{Username: username, Password: password, RememberMe: rememberMe},
		SkipAuth: true,
	}, &pair)
	if err != nil {
		return token.Pair{}, errors.Wrapf(classifyLoginError(err), "[auth.LoginWithRemember] %s", username)
	}
	return pair, nil
}

// Refresh mints a new access token from the refresh cookie
func (a *API) Refresh(ctx context.Context) (token.Pair, error) {
	pair, err := a.client.RefreshToken(ctx)
	if err != nil {
		return token.Pair{}, errors.Wrapf(err, "[auth.Refresh]")
	}
	if pair.AccessToken == "" {
		return token.Pair{}, errors.Wrapf(errors.ErrNoToken, "[auth.Refresh]")
	}
	return pair, nil
}

// Logout ends the backend session. A 401 here is not worth a refresh.
func (a *API) Logout(ctx context.Context) (string, error) {
	var msg struct {
		Message string `json:"message"`
	}
	err := a.client.Do(ctx, &transport.Request{
		Method:      http.MethodPost,
		Path:        routes.UsersLogout,
		SkipRefresh: true,
	}, &msg)
	if err != nil {
		return "", errors.Wrapf(err, "[auth.Logout]")
	}
	return msg.Message, nil
}

// Me fetches the signed-in profile through the refresh interceptor
func (a *API) Me(ctx context.Context) (*users.User, error) {
	return a.me(ctx, false)
}

// Register creates an account. It does not sign in.
func (a *API) Register(ctx context.Context, reg Registration) error {
	body := registerBody{Registration: reg, Role: string(users.RoleWorker)}
	err := a.client.Do(ctx, &transport.Request{
		Method:   http.MethodPost,
		Path:     routes.UsersRegister,
		Body:     body,
		SkipAuth: true,
	}, nil)
	if err != nil {
		return errors.Wrapf(classifyLoginError(err), "[auth.Register] %s", reg.Username)
	}
	return nil
}

// probeMe fetches the profile without the refresh interceptor, for bootstrap
// where a failed refresh must not be treated as an expired session
func (a *API) probeMe(ctx context.Context) (*users.User, error) {
	return a.me(ctx, true)
}

func (a *API) me(ctx context.Context, skipRefresh bool) (*users.User, error) {
	var user *users.User
	err := a.client.Do(ctx, &transport.Request{
		Method:      http.MethodGet,
		Path:        routes.UsersMe,
		SkipRefresh: skipRefresh,
	}, &user)
	if err != nil {
		return nil, errors.Wrapf(err, "[auth.Me]")
	}
	return user, nil
}

func (a *API) setRefreshCredential(refreshToken string) {
	a.client.SetRefreshCredential(refreshToken)
}

// classifyLoginError tags credential failures with a sentinel while keeping
// the *transport.APIError reachable through errors.As
func classifyLoginError(err error) error {
	switch transport.StatusCode(err) {
	case http.StatusUnauthorized:
		return errors.Join(ErrInvalidCredentials, err)
	case http.StatusForbidden:
		return errors.Join(ErrAccountInactive, err)
	case http.StatusTooManyRequests:
		return errors.Join(ErrRateLimited, err)
	}
	return err
}
