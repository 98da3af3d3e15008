package cli

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/divvyauth/internal/client/api"
	"github.com/dmitrijs2005/divvyauth/internal/common"
)

// Indirections over the interactive helpers, swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	firstName, err := getSimpleText(a.reader, "Enter first name", a.out)
	if err != nil {
		return err
	}
	lastName, err := getSimpleText(a.reader, "Enter last name", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	pair, err := a.client.Register(ctx, api.RegisterRequest{
		Email:     email,
		Password:  string(password),
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		return err
	}

	return a.keep(ctx, pair)
}

func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	pair, err := a.client.Login(ctx, email, string(password))
	if err != nil {
		return err
	}

	return a.keep(ctx, pair)
}

func (a *App) Refresh(ctx context.Context) error {
	_, refreshToken, err := a.session.Tokens(ctx)
	if err != nil {
		return err
	}

	pair, err := a.client.Refresh(ctx, refreshToken)
	if err != nil {
		return err
	}

	return a.keep(ctx, pair)
}

// Logout revokes the stored refresh token and forgets the local session
// whatever the server answers.
func (a *App) Logout(ctx context.Context) error {
	_, refreshToken, err := a.session.Tokens(ctx)
	if err != nil {
		return err
	}

	revoked, err := a.client.Logout(ctx, refreshToken)
	if err != nil && !errors.Is(err, api.ErrUnauthorized) {
		return err
	}

	if err := a.session.Clear(ctx); err != nil {
		return err
	}

	return a.print(map[string]bool{"revoked": revoked})
}

// Me fetches the profile. An expired access token is refreshed once and the
// call retried.
func (a *App) Me(ctx context.Context) error {
	accessToken, refreshToken, err := a.session.Tokens(ctx)
	if err != nil {
		return err
	}

	user, err := a.client.Me(ctx, accessToken)
	if errors.Is(err, api.ErrUnauthorized) {
		pair, rerr := a.client.Refresh(ctx, refreshToken)
		if rerr != nil {
			return rerr
		}
		if err := a.session.Save(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
			return err
		}
		user, err = a.client.Me(ctx, pair.AccessToken)
	}
	if err != nil {
		return err
	}

	return a.print(user)
}

func (a *App) keep(ctx context.Context, pair *api.TokenPair) error {
	if err := a.session.Save(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		return err
	}
	return a.print(pair)
}

func (a *App) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
