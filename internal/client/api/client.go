// Package api is the HTTP client for the divvyauth server's /auth endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/divvyauth/internal/common"
)

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 64 << 10

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	AuthProvider string    `json:"auth_provider"`
	HasPassword  bool      `json:"has_password"`
	CreatedAt    time.Time `json:"created_at"`
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Register(ctx context.Context, req RegisterRequest) (*TokenPair, error) {
	pair := &TokenPair{}
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", req, pair); err != nil {
		return nil, err
	}
	return pair, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	in := map[string]string{"email": email, "password": password}
	pair := &TokenPair{}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", in, pair); err != nil {
		return nil, err
	}
	return pair, nil
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	in := map[string]string{"refresh_token": refreshToken}
	pair := &TokenPair{}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", "", in, pair); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout reports whether the server revoked a live token.
func (c *HTTPClient) Logout(ctx context.Context, refreshToken string) (bool, error) {
	in := map[string]string{"refresh_token": refreshToken}
	var out struct {
		Revoked bool `json:"revoked"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/logout", "", in, &out); err != nil {
		return false, err
	}
	return out.Revoked, nil
}

func (c *HTTPClient) Me(ctx context.Context, accessToken string) (*User, error) {
	u := &User{}
	if err := c.do(ctx, http.MethodGet, "/auth/me", accessToken, nil, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	e := &StatusError{StatusCode: resp.StatusCode}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(b) == 0 {
		return e
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(b, &payload) != nil || len(payload.Detail) == 0 {
		return e
	}

	// validation failures may carry structured detail
	var s string
	if json.Unmarshal(payload.Detail, &s) == nil {
		e.Detail = s
	} else {
		e.Detail = string(payload.Detail)
	}
	return e
}
