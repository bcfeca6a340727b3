package directory_test

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldapsso/ldapsso/internal/config"
	"github.com/ldapsso/ldapsso/internal/directory"
)

// fakeClient implements the parts of ldap.Client a session uses.
type fakeClient struct {
	ldap.Client

	passwords map[string]string // bind DN -> password
	entries   []*ldap.Entry
	binds     []string
	filters   []string
	closed    atomic.Bool
	startTLS  bool
	// userBindErr fails every bind except the service account's.
	userBindErr error
}

func (f *fakeClient) Bind(username, password string) error {
	f.binds = append(f.binds, username)

	if f.userBindErr != nil && username != serviceDN {
		return f.userBindErr
	}

	if want, ok := f.passwords[username]; ok && want == password {
		return nil
	}

	return &ldap.Error{
		ResultCode: ldap.LDAPResultInvalidCredentials,
		Err:        errors.New("80090308: LdapErr: DSID-0C09044E, comment: AcceptSecurityContext error, data 52e"),
	}
}

func (f *fakeClient) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	f.filters = append(f.filters, req.Filter)

	return &ldap.SearchResult{Entries: f.entries}, nil
}

func (f *fakeClient) StartTLS(_ *tls.Config) error {
	f.startTLS = true

	return nil
}

func (f *fakeClient) SetTimeout(time.Duration) {}

func (f *fakeClient) Close() error {
	f.closed.Store(true)

	return nil
}

const serviceDN = "cn=reader,dc=example"

func newFake(entries ...*ldap.Entry) *fakeClient {
	return &fakeClient{
		passwords: map[string]string{
			serviceDN:                       "reader-secret",
			"uid=jdoe,ou=people,dc=example": "s3cret",
		},
		entries: entries,
	}
}

func openSession(t *testing.T, cfg config.LDAP, client *fakeClient) directory.Session {
	t.Helper()

	var dialed string

	connector := directory.NewLDAPConnector(cfg, func(addr string, _ ...ldap.DialOpt) (ldap.Client, error) {
		dialed = addr

		return client, nil
	})

	s, err := connector.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, connector.URL(), dialed)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func serviceConfig() config.LDAP {
	return config.LDAP{Host: "ldap.example", Port: 389, BindDN: serviceDN, BindPassword: "reader-secret", Timeout: 5}
}

func TestConnectorURL(t *testing.T) {
	assert.Equal(t, "ldap://ldap.example:389", directory.NewLDAPConnector(config.LDAP{Host: "ldap.example", Port: 389}, nil).URL())
	assert.Equal(t, "ldaps://ldap.example:636", directory.NewLDAPConnector(config.LDAP{Host: "ldap.example", Port: 636, UseSSL: true}, nil).URL())
}

func TestOpenUpgradesToTLS(t *testing.T) {
	client := newFake()
	cfg := serviceConfig()
	cfg.UseTLS = true

	openSession(t, cfg, client)
	assert.True(t, client.startTLS)
	assert.Equal(t, []string{serviceDN}, client.binds)
}

func TestOpenFailsOnServiceAccount(t *testing.T) {
	client := newFake()
	cfg := serviceConfig()
	cfg.BindPassword = "wrong"

	connector := directory.NewLDAPConnector(cfg, func(string, ...ldap.DialOpt) (ldap.Client, error) {
		return client, nil
	})

	_, err := connector.Open(context.Background())
	require.Error(t, err)
	assert.True(t, client.closed.Load())
}

func TestBindSuccess(t *testing.T) {
	client := newFake(ldap.NewEntry("uid=jdoe,ou=people,dc=example", nil))
	s := openSession(t, serviceConfig(), client)

	res, err := s.Bind(context.Background(), "jdoe", "s3cret", "ou=people,dc=example", "(uid={USERNAME})")
	require.NoError(t, err)

	assert.Equal(t, "uid=jdoe,ou=people,dc=example", res.DN)
	assert.False(t, res.PassThrough)
	assert.Empty(t, s.LastBindDiagnostic())
	assert.Equal(t, []string{"(uid=jdoe)"}, client.filters)
	// service, user, service again
	assert.Equal(t, []string{serviceDN, "uid=jdoe,ou=people,dc=example", serviceDN}, client.binds)
}

func TestBindEscapesUsername(t *testing.T) {
	client := newFake()
	s := openSession(t, serviceConfig(), client)

	_, err := s.Bind(context.Background(), "*)(uid=*", "x", "ou=people", "(uid={USERNAME})")
	require.ErrorIs(t, err, directory.ErrInvalidCredentials)
	assert.Equal(t, []string{`(uid=\2a\29\28uid=\2a)`}, client.filters)
	assert.Equal(t, directory.DiagnosticUserNotFound, s.LastBindDiagnostic())
}

func TestBindRejections(t *testing.T) {
	tests := []struct {
		name       string
		entries    []*ldap.Entry
		password   string
		diagnostic string
	}{
		{
			name:       "empty password",
			entries:    []*ldap.Entry{ldap.NewEntry("uid=jdoe,ou=people,dc=example", nil)},
			diagnostic: directory.DiagnosticEmptyPassword,
		},
		{
			name:       "wrong password",
			entries:    []*ldap.Entry{ldap.NewEntry("uid=jdoe,ou=people,dc=example", nil)},
			password:   "wrong",
			diagnostic: "80090308: LdapErr: DSID-0C09044E, comment: AcceptSecurityContext error, data 52e",
		},
		{
			name: "ambiguous user",
			entries: []*ldap.Entry{
				ldap.NewEntry("uid=jdoe,ou=people,dc=example", nil),
				ldap.NewEntry("uid=jdoe,ou=staff,dc=example", nil),
			},
			password:   "s3cret",
			diagnostic: directory.DiagnosticAmbiguousUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openSession(t, serviceConfig(), newFake(tt.entries...))

			_, err := s.Bind(context.Background(), "jdoe", tt.password, "ou=people,dc=example", "(uid={USERNAME})")
			require.ErrorIs(t, err, directory.ErrInvalidCredentials)
			assert.Equal(t, tt.diagnostic, s.LastBindDiagnostic())
		})
	}
}

func TestBindTransportFailureIsNotARejection(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "connection lost",
			err:  ldap.NewError(ldap.ErrorNetwork, errors.New("connection reset by peer")),
		},
		{
			name: "server busy",
			err:  &ldap.Error{ResultCode: ldap.LDAPResultBusy, Err: errors.New("busy")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFake(ldap.NewEntry("uid=jdoe,ou=people,dc=example", nil))
			client.userBindErr = tt.err

			s := openSession(t, serviceConfig(), client)

			_, err := s.Bind(context.Background(), "jdoe", "s3cret", "ou=people,dc=example", "(uid={USERNAME})")
			require.Error(t, err)
			require.NotErrorIs(t, err, directory.ErrInvalidCredentials)
			require.ErrorIs(t, err, tt.err)
			assert.NotEmpty(t, s.LastBindDiagnostic())
		})
	}
}

func TestBindDiagnosticIsResetPerAttempt(t *testing.T) {
	s := openSession(t, serviceConfig(), newFake(ldap.NewEntry("uid=jdoe,ou=people,dc=example", nil)))

	_, err := s.Bind(context.Background(), "jdoe", "", "ou=people,dc=example", "(uid={USERNAME})")
	require.Error(t, err)
	require.NotEmpty(t, s.LastBindDiagnostic())

	_, err = s.Bind(context.Background(), "jdoe", "s3cret", "ou=people,dc=example", "(uid={USERNAME})")
	require.NoError(t, err)
	assert.Empty(t, s.LastBindDiagnostic())
}

func TestBindWithoutFilterIsPassThrough(t *testing.T) {
	client := newFake()
	s := openSession(t, serviceConfig(), client)

	res, err := s.Bind(context.Background(), "uid=jdoe,ou=people,dc=example", "s3cret", "", "")
	require.NoError(t, err)
	assert.True(t, res.PassThrough)
	assert.Empty(t, res.DN)
	assert.Empty(t, client.filters)
}

func TestSessionHonoursContext(t *testing.T) {
	client := newFake()

	ctx, cancel := context.WithCancel(context.Background())

	connector := directory.NewLDAPConnector(serviceConfig(), func(string, ...ldap.DialOpt) (ldap.Client, error) {
		return client, nil
	})

	s, err := connector.Open(ctx)
	require.NoError(t, err)

	cancel()

	require.Eventually(t, func() bool { return client.closed.Load() }, time.Second, 10*time.Millisecond)

	_, err = s.Search(ctx, "ou=people", "(uid=*)", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCloseIsIdempotent(t *testing.T) {
	client := newFake()
	s := openSession(t, serviceConfig(), client)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, client.closed.Load())

	_, err := s.Search(context.Background(), "ou=people", "(uid=*)", nil)
	require.ErrorIs(t, err, directory.ErrSessionClosed)
}

func TestDiagnostic(t *testing.T) {
	assert.Empty(t, directory.Diagnostic(nil))
	assert.Equal(t, "plain", directory.Diagnostic(errors.New("plain")))
	assert.Equal(t, "Invalid Credentials",
		directory.Diagnostic(&ldap.Error{ResultCode: ldap.LDAPResultInvalidCredentials, Err: errors.New("")}))
	assert.Equal(t, "data 775",
		directory.Diagnostic(fmt.Errorf("wrapped: %w", &ldap.Error{ResultCode: ldap.LDAPResultInvalidCredentials, Err: errors.New("data 775")})))
}
