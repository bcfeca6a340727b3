package directory

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"

	"github.com/ldapsso/ldapsso/internal/config"
)

// Diagnostics reported by LastBindDiagnostic.
const (
	DiagnosticEmptyPassword  = "Empty password provided!"
	DiagnosticUserNotFound   = "No directory entry matches the username."
	DiagnosticAmbiguousUser  = "The username matches more than one directory entry."
	DiagnosticServiceAccount = "Directory service account was rejected."
)

// DialFunc opens a raw LDAP connection.
type DialFunc func(addr string, opts ...ldap.DialOpt) (ldap.Client, error)

// LDAPConnector opens sessions against an LDAP server.
type LDAPConnector struct {
	cfg  config.LDAP
	dial DialFunc
}

// NewLDAPConnector creates a connector. A nil dial uses ldap.DialURL.
func NewLDAPConnector(cfg config.LDAP, dial DialFunc) *LDAPConnector {
	if dial == nil {
		dial = func(addr string, opts ...ldap.DialOpt) (ldap.Client, error) {
			return ldap.DialURL(addr, opts...)
		}
	}

	return &LDAPConnector{cfg: cfg, dial: dial}
}

// URL builds the server url from the configuration.
func (c *LDAPConnector) URL() string {
	hostPort := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))

	if c.cfg.UseSSL {
		return "ldaps://" + hostPort
	}

	return "ldap://" + hostPort
}

// Open dials the server, upgrades to TLS if configured and binds the service account.
// The connection is torn down as soon as ctx is done.
func (c *LDAPConnector) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}

	var tlsConfig *tls.Config
	if c.cfg.UseSSL || c.cfg.UseTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: c.cfg.SkipVerify, //nolint:gosec // skipping verifying tls is opt-in
			ServerName:         c.cfg.Host,
			MinVersion:         tls.VersionTLS12,
		}
	}

	timeout := time.Duration(c.cfg.Timeout) * time.Second

	conn, err := c.dial(c.URL(),
		ldap.DialWithTLSConfig(tlsConfig),
		ldap.DialWithDialer(&net.Dialer{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	s := &ldapSession{conn: conn, cfg: c.cfg}
	s.stop = context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})

	if !c.cfg.UseSSL && c.cfg.UseTLS {
		if err = conn.StartTLS(tlsConfig); err != nil {
			s.closeQuietly()

			return nil, fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if timeout > 0 {
		conn.SetTimeout(timeout)
	}

	if err = s.bindService(); err != nil {
		s.closeQuietly()

		return nil, err
	}

	return s, nil
}

type ldapSession struct {
	conn       ldap.Client
	cfg        config.LDAP
	stop       func() bool
	diagnostic string
	closed     bool
}

func (s *ldapSession) LastBindDiagnostic() string {
	return s.diagnostic
}

func (s *ldapSession) Bind(ctx context.Context, username, password, baseDN, filter string) (BindResult, error) {
	s.diagnostic = ""

	if s.closed {
		return BindResult{}, ErrSessionClosed
	}

	if err := ctx.Err(); err != nil {
		return BindResult{}, err //nolint:wrapcheck
	}

	// an empty password would be an unauthenticated bind that most servers accept
	if password == "" {
		s.diagnostic = DiagnosticEmptyPassword

		return BindResult{}, ErrInvalidCredentials
	}

	// without a filter the username is the DN, nothing is left to synchronize
	if filter == "" {
		if err := s.conn.Bind(username, password); err != nil {
			return BindResult{}, s.rejected(err)
		}

		if err := s.bindService(); err != nil {
			return BindResult{}, err
		}

		return BindResult{PassThrough: true}, nil
	}

	entries, err := s.Search(ctx, baseDN, ExpandFilter(filter, map[string]string{PlaceholderUsername: username}), []string{AttributeDN})
	if err != nil {
		return BindResult{}, fmt.Errorf("failed to search for user: %w", err)
	}

	switch len(entries) {
	case 0:
		s.diagnostic = DiagnosticUserNotFound

		return BindResult{}, ErrInvalidCredentials
	case 1:
	default:
		s.diagnostic = DiagnosticAmbiguousUser

		return BindResult{}, ErrInvalidCredentials
	}

	dn := entries[0].DN

	if err = s.conn.Bind(dn, password); err != nil {
		return BindResult{}, s.rejected(err)
	}

	// searches after the credential check run with the service account again
	if err = s.bindService(); err != nil {
		return BindResult{}, err
	}

	return BindResult{DN: dn}, nil
}

func (s *ldapSession) Search(ctx context.Context, baseDN, filter string, attributes []string) ([]*Entry, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}

	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}

	req := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, // Size limit
		s.cfg.Timeout,
		false,
		filter,
		attributes,
		nil,
	)

	res, err := s.conn.Search(req)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return nil, nil
		}

		return nil, fmt.Errorf("search %q below %q failed: %w", filter, baseDN, err)
	}

	entries := make([]*Entry, 0, len(res.Entries))
	for _, e := range res.Entries {
		entries = append(entries, FromLDAP(e))
	}

	return entries, nil
}

func (s *ldapSession) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true
	s.stop()

	return s.conn.Close() //nolint:wrapcheck
}

func (s *ldapSession) closeQuietly() {
	if err := s.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close LDAP connection")
	}
}

// bindService binds with the configured service account, if any.
func (s *ldapSession) bindService() error {
	if s.cfg.BindDN == "" {
		return nil
	}

	if err := s.conn.Bind(s.cfg.BindDN, s.cfg.BindPassword); err != nil {
		s.diagnostic = DiagnosticServiceAccount

		return fmt.Errorf("failed to bind with service account: %w", err)
	}

	return nil
}

// rejected classifies a failed user bind. Only credential result codes are
// ErrInvalidCredentials, transport failures stay plain errors.
func (s *ldapSession) rejected(err error) error {
	s.diagnostic = Diagnostic(err)

	if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) ||
		ldap.IsErrorWithCode(err, ldap.LDAPResultInappropriateAuthentication) {
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	return fmt.Errorf("user bind failed: %w", err)
}

// Diagnostic extracts the server supplied message from an LDAP error.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}

	var ldapErr *ldap.Error
	if !errors.As(err, &ldapErr) {
		return err.Error()
	}

	if ldapErr.Err != nil && ldapErr.Err.Error() != "" {
		return ldapErr.Err.Error()
	}

	if text, ok := ldap.LDAPResultCodeMap[ldapErr.ResultCode]; ok {
		return text
	}

	return ldapErr.Error()
}
