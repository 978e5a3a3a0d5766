package accounts_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCookie = "sid"

type httpFixture struct {
	*fixture
	app *fiber.App
}

func newHTTPFixture(t *testing.T, configure ...func(*accounts.Config)) *httpFixture {
	t.Helper()

	f := newFixture(t, configure...)

	auther := accounts.NewRouteAuthenticator(f.lifecycle,
		accounts.WithSessionCookie(testCookie, false),
		accounts.WithRouteLogger(accounts.NopLogger{}),
	)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return accounts.WriteError(c, accounts.NopLogger{}, err)
		},
	})

	accounts.RegisterAccountRoutes(app.Group("/accounts"), f.lifecycle,
		accounts.WithControllerLogger(accounts.NopLogger{}),
		accounts.WithRouteAuthenticator(auther),
	)

	return &httpFixture{fixture: f, app: app}
}

type apiResponse struct {
	status  int
	body    map[string]any
	cookies []*http.Cookie
}

func (h *httpFixture) do(t *testing.T, method, path string, payload any, token string) apiResponse {
	t.Helper()

	var body io.Reader
	switch p := payload.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(p)
	default:
		raw, err := json.Marshal(p)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	res, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()

	out := apiResponse{status: res.StatusCode, cookies: res.Cookies()}

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	}

	return out
}

func (r apiResponse) errorCode() string {
	e, _ := r.body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func (r apiResponse) cookie(name string) *http.Cookie {
	for _, c := range r.cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (h *httpFixture) login(t *testing.T, identifier string) string {
	t.Helper()

	res := h.do(t, http.MethodPost, "/accounts/login", map[string]any{
		"identifier": identifier,
		"password":   testPassword,
	}, "")
	require.Equal(t, http.StatusOK, res.status, res.body)

	token, _ := res.body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestProtectedRouteRequiresSession(t *testing.T) {
	h := newHTTPFixture(t)

	res := h.do(t, http.MethodGet, "/accounts/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, accounts.TextCodeSessionNotFound, res.errorCode())

	res = h.do(t, http.MethodGet, "/accounts/me", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, accounts.TextCodeTokenInvalid, res.errorCode())
}

func TestSessionCookieAndBearer(t *testing.T) {
	h := newHTTPFixture(t)
	h.registerActive(t, "nora", "nora@example.com")

	res := h.do(t, http.MethodPost, "/accounts/login", map[string]any{
		"identifier": "nora",
		"password":   testPassword,
	}, "")
	require.Equal(t, http.StatusOK, res.status)

	cookie := res.cookie(testCookie)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, res.body["token"], cookie.Value)

	req := httptest.NewRequest(http.MethodGet, "/accounts/me", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: cookie.Value})
	raw, err := h.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, raw.StatusCode)

	me := h.do(t, http.MethodGet, "/accounts/me", nil, cookie.Value)
	require.Equal(t, http.StatusOK, me.status)
	account := me.body["account"].(map[string]any)
	assert.Equal(t, "nora", account["username"])
	assert.Equal(t, true, account["is_active"])

	out := h.do(t, http.MethodPost, "/accounts/logout", nil, "")
	assert.Equal(t, http.StatusNoContent, out.status)
	cleared := out.cookie(testCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}

func TestGuestOnlyRejectsSignedInCallers(t *testing.T) {
	h := newHTTPFixture(t)
	h.registerActive(t, "otto", "otto@example.com")
	token := h.login(t, "otto")

	res := h.do(t, http.MethodPost, "/accounts/register", map[string]any{
		"username":         "otto2",
		"email":            "otto2@example.com",
		"password":         testPassword,
		"confirm_password": testPassword,
	}, token)
	assert.Equal(t, http.StatusConflict, res.status)
	assert.Equal(t, accounts.TextCodeAlreadyAuthenticated, res.errorCode())
}

func TestWriteErrorStatuses(t *testing.T) {
	h := newHTTPFixture(t)
	h.register(t, "pia", "pia@example.com")

	tests := []struct {
		name     string
		method   string
		path     string
		payload  any
		status   int
		textCode string
	}{
		{
			name: "validation", method: http.MethodPost, path: "/accounts/register",
			payload: map[string]any{"username": "x", "email": "bad"},
			status:  http.StatusBadRequest, textCode: accounts.TextCodeInvalidPayload,
		},
		{
			name: "malformed body", method: http.MethodPost, path: "/accounts/register",
			payload: "{not json",
			status:  http.StatusBadRequest, textCode: accounts.TextCodeInvalidPayload,
		},
		{
			name: "email taken", method: http.MethodPost, path: "/accounts/register",
			payload: map[string]any{
				"username": "pia2", "email": "PIA@example.com",
				"password": testPassword, "confirm_password": testPassword,
			},
			status: http.StatusConflict, textCode: accounts.TextCodeEmailTaken,
		},
		{
			name: "cooldown", method: http.MethodPost, path: "/accounts/activate/resend",
			payload: map[string]any{"identifier": "pia"},
			status:  http.StatusTooManyRequests, textCode: accounts.TextCodeCooldownActive,
		},
		{
			name: "unknown code", method: http.MethodGet, path: "/accounts/activate/nope",
			status: http.StatusNotFound, textCode: accounts.TextCodeCodeNotFound,
		},
		{
			name: "inactive sign in", method: http.MethodPost, path: "/accounts/login",
			payload: map[string]any{"identifier": "pia", "password": testPassword},
			status:  http.StatusUnauthorized, textCode: accounts.TextCodeInvalidCreds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := h.do(t, tt.method, tt.path, tt.payload, "")
			assert.Equal(t, tt.status, res.status, res.body)
			assert.Equal(t, tt.textCode, res.errorCode())
		})
	}

	t.Run("validation fields", func(t *testing.T) {
		res := h.do(t, http.MethodPost, "/accounts/register", map[string]any{"username": "x", "email": "bad"}, "")
		e := res.body["error"].(map[string]any)
		fields, ok := e["fields"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "password")
	})
}
