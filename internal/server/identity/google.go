package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/divvyauth/internal/common"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// GoogleTokenInfoURL validates an ID token server-side and returns its claims.
const GoogleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

var googleScopes = []string{"openid", "email", "profile"}

// GoogleVerifier implements Verifier for Google OpenID Connect.
type GoogleVerifier struct {
	cfg          *oauth2.Config
	tokenInfoURL string
	client       *http.Client
}

type GoogleOption func(*GoogleVerifier)

// WithEndpoint overrides Google's authorization and token endpoints.
func WithEndpoint(ep oauth2.Endpoint) GoogleOption {
	return func(v *GoogleVerifier) { v.cfg.Endpoint = ep }
}

func WithTokenInfoURL(u string) GoogleOption {
	return func(v *GoogleVerifier) { v.tokenInfoURL = u }
}

func WithHTTPClient(c *http.Client) GoogleOption {
	return func(v *GoogleVerifier) { v.client = c }
}

func NewGoogleVerifier(clientID, clientSecret, redirectURI string, opts ...GoogleOption) *GoogleVerifier {
	ep := endpoints.Google
	ep.AuthStyle = oauth2.AuthStyleInParams

	v := &GoogleVerifier{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       googleScopes,
			Endpoint:     ep,
		},
		tokenInfoURL: GoogleTokenInfoURL,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// AuthCodeURL asks for offline access and always shows the consent screen.
func (v *GoogleVerifier) AuthCodeURL(state string) string {
	return v.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

type tokenInfo struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

func (v *GoogleVerifier) VerifyAuthCode(ctx context.Context, code string) (*Claim, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", common.ErrVerificationFailed)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.client)
	tok, err := v.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %v", common.ErrVerificationFailed, err)
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return nil, fmt.Errorf("%w: id token missing", common.ErrVerificationFailed)
	}

	info, err := v.tokenInfo(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if info.Aud != v.cfg.ClientID {
		return nil, fmt.Errorf("%w: audience mismatch", common.ErrVerificationFailed)
	}
	if info.EmailVerified == "false" {
		return nil, fmt.Errorf("%w: email not verified", common.ErrVerificationFailed)
	}

	return &Claim{
		Email:      info.Email,
		SubjectID:  info.Sub,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
		FullName:   info.Name,
	}, nil
}

func (v *GoogleVerifier) tokenInfo(ctx context.Context, idToken string) (*tokenInfo, error) {
	u, err := url.Parse(v.tokenInfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: tokeninfo url: %v", common.ErrVerificationFailed, err)
	}
	q := u.Query()
	q.Set("id_token", idToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrVerificationFailed, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: tokeninfo: %v", common.ErrVerificationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: tokeninfo status %d", common.ErrVerificationFailed, resp.StatusCode)
	}

	info := &tokenInfo{}
	if err := json.NewDecoder(resp.Body).Decode(info); err != nil {
		return nil, fmt.Errorf("%w: tokeninfo body: %v", common.ErrVerificationFailed, err)
	}
	return info, nil
}
