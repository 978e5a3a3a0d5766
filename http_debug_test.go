package accounts

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func argValue(args []any, key string) (any, bool) {
	for i := 0; i+1 < len(args); i += 2 {
		if args[i] == key {
			return args[i+1], true
		}
	}
	return nil, false
}

func TestControllerDebugLogsErrorDetails(t *testing.T) {
	tests := []struct {
		name   string
		debug  bool
		logged bool
	}{
		{name: "debug enabled", debug: true, logged: true},
		{name: "debug disabled", debug: false, logged: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &captureLogger{}
			l := NewLifecycle(stubRepo{}, DefaultConfig(),
				WithLogger(NopLogger{}),
				WithTokenService(NewTokenService([]byte("k"), "", 0)),
			)
			controller := NewAccountsController(l,
				WithControllerLogger(logger),
				WithControllerDebug(tt.debug),
			)

			app := fiber.New(fiber.Config{DisableStartupMessage: true})
			app.Post("/register", controller.RegistrationCreate)

			req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"username":"x","email":"bad"}`))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			res, err := app.Test(req, -1)
			require.NoError(t, err)
			require.Equal(t, http.StatusBadRequest, res.StatusCode)

			call, ok := logger.find("debug", "accounts handler error")
			require.Equal(t, tt.logged, ok)
			if !tt.logged {
				return
			}

			code, _ := argValue(call.args, "text_code")
			require.Equal(t, TextCodeInvalidPayload, code)

			details, ok := argValue(call.args, "details")
			require.True(t, ok)
			require.IsType(t, "", details)
			require.Contains(t, details, "fields")
			require.Contains(t, details, "email")
		})
	}
}
