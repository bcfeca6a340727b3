package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldapsso/ldapsso/internal/auth"
	"github.com/ldapsso/ldapsso/internal/config"
	"github.com/ldapsso/ldapsso/internal/db/models"
	"github.com/ldapsso/ldapsso/internal/web/handler/authenticate"
)

// stubAuthenticator answers with a fixed outcome and records the last call.
type stubAuthenticator struct {
	outcome  *auth.Outcome
	err      error
	username string
	password string
	deadline bool
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, username, password string) (*auth.Outcome, error) {
	s.username, s.password = username, password
	_, s.deadline = ctx.Deadline()

	return s.outcome, s.err
}

func newTestService(t *testing.T, a *stubAuthenticator) *Service {
	t.Helper()

	cfg := &config.Config{
		Title:     "ldapsso",
		Webserver: config.Webserver{RequestTimeout: 5},
	}

	s, err := New(cfg, a)
	require.NoError(t, err)

	return s
}

func post(t *testing.T, s *Service, contentType, body string) (int, authenticate.Response) {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/authenticate", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, contentType)

	resp, err := s.App.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	var out authenticate.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return resp.StatusCode, out
}

func TestAuthenticateEndpoint(t *testing.T) {
	user := (&models.User{ID: 7, Username: "jdoe", Name: "John Doe", Password: "$argon2id$hash"}).Record()
	user.SetExtra("phone", "555")

	tests := []struct {
		name        string
		body        string
		outcome     *auth.Outcome
		err         error
		wantStatus  int
		wantSuccess bool
		wantError   string
		wantDiag    string
	}{
		{
			name:        "success",
			body:        `{"username":"jdoe","password":"secret"}`,
			outcome:     &auth.Outcome{User: user},
			wantStatus:  fiber.StatusOK,
			wantSuccess: true,
		},
		{
			name:        "pass through",
			body:        `{"username":"jdoe","password":"secret"}`,
			outcome:     &auth.Outcome{PassThrough: true},
			wantStatus:  fiber.StatusOK,
			wantSuccess: true,
		},
		{
			name:       "rejected",
			body:       `{"username":"jdoe","password":"wrong"}`,
			outcome:    &auth.Outcome{Diagnostic: "Invalid credentials"},
			err:        auth.ErrCredentialsRejected,
			wantStatus: fiber.StatusUnauthorized,
			wantError:  authenticate.ErrAuthenticationFailed.Error(),
			wantDiag:   "Invalid credentials",
		},
		{
			name:       "required groups missing",
			body:       `{"username":"jdoe","password":"secret"}`,
			outcome:    &auth.Outcome{Diagnostic: auth.DiagnosticRequiredGroups},
			err:        auth.ErrRequiredGroupsMissing,
			wantStatus: fiber.StatusUnauthorized,
			wantError:  authenticate.ErrAuthenticationFailed.Error(),
			wantDiag:   auth.DiagnosticRequiredGroups,
		},
		{
			name:       "directory down",
			body:       `{"username":"jdoe","password":"secret"}`,
			outcome:    &auth.Outcome{Diagnostic: auth.DiagnosticUnavailable},
			err:        auth.ErrDirectoryUnavailable,
			wantStatus: fiber.StatusServiceUnavailable,
			wantError:  authenticate.ErrUnavailable.Error(),
			wantDiag:   auth.DiagnosticUnavailable,
		},
		{
			name:       "unexpected error",
			body:       `{"username":"jdoe","password":"secret"}`,
			err:        errors.New("disk full"),
			wantStatus: fiber.StatusInternalServerError,
			wantError:  authenticate.ErrInternalServerError.Error(),
		},
		{
			name:       "missing username",
			body:       `{"password":"secret"}`,
			wantStatus: fiber.StatusBadRequest,
			wantError:  authenticate.ErrInvalidRequest.Error(),
		},
		{
			name:       "broken json",
			body:       `{"username":`,
			wantStatus: fiber.StatusBadRequest,
			wantError:  authenticate.ErrInvalidRequest.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubAuthenticator{outcome: tt.outcome, err: tt.err}
			s := newTestService(t, stub)

			status, out := post(t, s, fiber.MIMEApplicationJSON, tt.body)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantSuccess, out.Success)
			assert.Equal(t, tt.wantError, out.Error)

			if tt.wantDiag != "" {
				assert.Equal(t, tt.wantDiag, out.Diagnostic)
			}

			if tt.wantStatus != fiber.StatusBadRequest {
				assert.Equal(t, "jdoe", stub.username)
				assert.True(t, stub.deadline, "the request is bounded by a timeout")
			}
		})
	}
}

func TestAuthenticateEndpointUserFields(t *testing.T) {
	user := (&models.User{ID: 7, Username: "jdoe", Name: "John Doe", Password: "$argon2id$hash"}).Record()
	user.SetExtra("phone", "555")

	s := newTestService(t, &stubAuthenticator{outcome: &auth.Outcome{User: user}})

	status, out := post(t, s, fiber.MIMEApplicationForm, "username=jdoe&password=secret")
	require.Equal(t, fiber.StatusOK, status)

	assert.Equal(t, "John Doe", out.User["name"])
	assert.Equal(t, "jdoe", out.User[models.ColumnUsername])
	assert.InDelta(t, 7, out.User[models.ColumnID], 0)
	assert.NotContains(t, out.User, models.ColumnPassword)
	assert.Equal(t, map[string]any{"phone": "555"}, out.Extra)
}

func TestCheckAlive(t *testing.T) {
	s := newTestService(t, &stubAuthenticator{})

	check := func() (int, string) {
		resp, err := s.App.Test(httptest.NewRequest(fiber.MethodGet, "/checkalive", nil))
		require.NoError(t, err)

		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		return resp.StatusCode, string(body)
	}

	status, body := check()
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "OK", body)
	assert.True(t, s.Alive())

	s.alive.Store(false)

	status, _ = check()
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
}

func TestMetrics(t *testing.T) {
	s := newTestService(t, &stubAuthenticator{})

	resp, err := s.App.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewWithoutConfig(t *testing.T) {
	_, err := New(nil, &stubAuthenticator{})
	require.Error(t, err)

	_, err = New(&config.Config{}, nil)
	require.Error(t, err)
}
