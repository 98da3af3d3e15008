package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/divvyauth/internal/common"
	"github.com/dmitrijs2005/divvyauth/internal/logging"
	"github.com/dmitrijs2005/divvyauth/internal/server/config"
	"github.com/dmitrijs2005/divvyauth/internal/server/identity"
	"github.com/dmitrijs2005/divvyauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/divvyauth/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeVerifier struct {
	claim *identity.Claim
	err   error
}

func (f *fakeVerifier) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + url.QueryEscape(state)
}

func (f *fakeVerifier) VerifyAuthCode(ctx context.Context, code string) (*identity.Claim, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.claim, nil
}

func newTestServer(t *testing.T, v identity.Verifier) *HTTPServer {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "test-secret",
		SigningAlgorithm:             "HS256",
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenValidityDuration: time.Hour,
		BcryptCost:                   bcrypt.MinCost,
	}
	svc, err := services.NewAuthService(repomanager.NewInMemoryRepositoryManager(), cfg, logging.Nop{})
	require.NoError(t, err)
	return NewHTTPServer(":0", logging.Nop{}, svc, v)
}

func do(t *testing.T, s *HTTPServer, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodePair(t *testing.T, rec *httptest.ResponseRecorder) tokenPairResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p tokenPairResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.NotEmpty(t, p.AccessToken)
	require.NotEmpty(t, p.RefreshToken)
	assert.Equal(t, "bearer", p.TokenType)
	return p
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e.Detail
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRegisterLoginMe(t *testing.T) {
	s := newTestServer(t, nil)

	reg := decodePair(t, do(t, s, http.MethodPost, "/auth/register",
		`{"email":"Alice@Example.com","password":"pw","first_name":"Alice","last_name":"Smith"}`, nil))

	rec := do(t, s, http.MethodPost, "/auth/register", `{"email":"alice@example.com","password":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered", decodeDetail(t, rec))

	login := decodePair(t, do(t, s, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"pw"}`, nil))
	assert.NotEqual(t, reg.RefreshToken, login.RefreshToken)

	rec = do(t, s, http.MethodGet, "/auth/me", "", bearer(login.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var me userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "alice@example.com", me.Email)
	assert.Equal(t, "Alice", me.FirstName)
	assert.Equal(t, "local", me.AuthProvider)
	assert.True(t, me.HasPassword)
	assert.NotContains(t, rec.Body.String(), "password_hash")
}

func TestRegister_Validation(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/auth/register", `{"email":"not-an-email","password":"pw"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodPost, "/auth/register", `{"email":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decodeDetail(t, rec))
}

func TestLogin_UniformFailure(t *testing.T) {
	s := newTestServer(t, nil)
	decodePair(t, do(t, s, http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"pw"}`, nil))

	unknown := do(t, s, http.MethodPost, "/auth/login", `{"email":"nouser@x.com","password":"any"}`, nil)
	wrong := do(t, s, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"nope"}`, nil)

	assert.Equal(t, http.StatusBadRequest, unknown.Code)
	assert.Equal(t, unknown.Code, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	assert.Equal(t, "Invalid credentials", decodeDetail(t, wrong))
}

func TestRefreshAndLogout(t *testing.T) {
	s := newTestServer(t, nil)
	first := decodePair(t, do(t, s, http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"pw"}`, nil))

	body := fmt.Sprintf(`{"refresh_token":%q}`, first.RefreshToken)
	second := decodePair(t, do(t, s, http.MethodPost, "/auth/refresh", body, nil))
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	rec := do(t, s, http.MethodPost, "/auth/refresh", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid refresh token", decodeDetail(t, rec))

	logoutBody := fmt.Sprintf(`{"refresh_token":%q}`, second.RefreshToken)
	rec = do(t, s, http.MethodPost, "/auth/logout", logoutBody, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"revoked":true}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/auth/logout", logoutBody, nil)
	assert.JSONEq(t, `{"revoked":false}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/auth/refresh", logoutBody, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_Unauthorized(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		header http.Header
		detail string
	}{
		{"no header", nil, "Not authenticated"},
		{"wrong scheme", http.Header{"Authorization": []string{"Basic abc"}}, "Not authenticated"},
		{"empty token", http.Header{"Authorization": []string{"Bearer "}}, "Not authenticated"},
		{"garbage token", bearer("x.y.z"), "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/auth/me", "", tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.detail, decodeDetail(t, rec))
			assert.Equal(t, common.BearerScheme, rec.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestGoogleRoutes_DisabledWithoutVerifier(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/auth/google/login", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decodeDetail(t, rec))
}

func googleLoginState(t *testing.T, s *HTTPServer) *http.Cookie {
	t.Helper()
	rec := do(t, s, http.MethodGet, "/auth/google/login", "", nil)
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, stateCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, loc.Query().Get("state"), cookies[0].Value)
	return cookies[0]
}

func TestGoogleFlow(t *testing.T) {
	v := &fakeVerifier{claim: &identity.Claim{Email: "ada@x.com", SubjectID: "sub-1", FullName: "Ada Lovelace"}}
	s := newTestServer(t, v)

	state := googleLoginState(t, s)
	header := http.Header{"Cookie": []string{state.Name + "=" + state.Value}}

	pair := decodePair(t, do(t, s, http.MethodGet, "/auth/google/callback?code=abc&state="+url.QueryEscape(state.Value), "", header))

	rec := do(t, s, http.MethodGet, "/auth/me", "", bearer(pair.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	var me userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "google", me.AuthProvider)
	assert.Equal(t, "Ada", me.FirstName)
	assert.Equal(t, "Lovelace", me.LastName)
	assert.False(t, me.HasPassword)
}

func TestGoogleCallback_Rejects(t *testing.T) {
	v := &fakeVerifier{claim: &identity.Claim{Email: "ada@x.com", SubjectID: "sub-1"}}
	s := newTestServer(t, v)
	state := googleLoginState(t, s)
	cookie := http.Header{"Cookie": []string{state.Name + "=" + state.Value}}

	rec := do(t, s, http.MethodGet, "/auth/google/callback?state="+state.Value, "", cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing code")

	rec = do(t, s, http.MethodGet, "/auth/google/callback?code=abc&state=other", "", cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid OAuth state", decodeDetail(t, rec))

	rec = do(t, s, http.MethodGet, "/auth/google/callback?code=abc&state="+state.Value, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing cookie")

	v.err = fmt.Errorf("%w: audience mismatch", common.ErrVerificationFailed)
	rec = do(t, s, http.MethodGet, "/auth/google/callback?code=abc&state="+state.Value, "", cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeDetail(t, rec), "audience mismatch")

	v.err = nil
	v.claim = &identity.Claim{SubjectID: "sub-2"}
	rec = do(t, s, http.MethodGet, "/auth/google/callback?code=abc&state="+state.Value, "", cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid Google profile", decodeDetail(t, rec))
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := newTestServer(t, nil)
	s.address = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
