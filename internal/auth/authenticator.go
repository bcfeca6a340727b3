package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ldapsso/ldapsso/internal/config"
	"github.com/ldapsso/ldapsso/internal/db/models"
	"github.com/ldapsso/ldapsso/internal/db/repository"
	"github.com/ldapsso/ldapsso/internal/directory"
	"github.com/ldapsso/ldapsso/internal/mapping"
)

// Outcome is the result of one authentication attempt.
type Outcome struct {
	// User is the synchronized local user, nil on failure and on pass-through.
	User *models.Record
	// PassThrough is set when the directory accepted the credentials without an entry to synchronize.
	PassThrough bool
	// Diagnostic is the human readable failure reason of this attempt, "" on success.
	Diagnostic string
}

// Option configures New.
type Option func(*options)

type options struct {
	mapper *mapping.Mapper
	hook   repository.MembershipHook
}

// WithMapper replaces the default attribute mapper.
func WithMapper(m *mapping.Mapper) Option {
	return func(o *options) {
		o.mapper = m
	}
}

// WithMembershipHook installs a hook that may veto group assignments.
func WithMembershipHook(hook repository.MembershipHook) Option {
	return func(o *options) {
		o.hook = hook
	}
}

// Authenticator checks credentials against the directory and synchronizes the user.
type Authenticator struct {
	connector    directory.Connector
	synchronizer *UserSynchronizer
	cfg          config.Users
	lowerCase    bool
}

// New wires the resolver, synchronizer and authenticator for cfg on top of db.
func New(cfg *config.Config, db *gorm.DB, connector directory.Connector, opts ...Option) (*Authenticator, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.mapper == nil {
		o.mapper = mapping.NewMapper()
	}

	groups := repository.NewGroups(db)

	resolver, err := NewGroupResolver(cfg, groups, o.mapper)
	if err != nil {
		return nil, err
	}

	assigner := repository.NewMembershipAssigner(groups, cfg.Groups.Table, cfg.Policy, o.hook)

	synchronizer, err := NewUserSynchronizer(cfg, repository.NewUsers(db), resolver, assigner, o.mapper)
	if err != nil {
		return nil, err
	}

	return NewAuthenticator(cfg, connector, synchronizer), nil
}

// NewAuthenticator creates an authenticator using synchronizer for successful binds.
func NewAuthenticator(cfg *config.Config, connector directory.Connector, synchronizer *UserSynchronizer) *Authenticator {
	registerMetrics()

	return &Authenticator{
		connector:    connector,
		synchronizer: synchronizer,
		cfg:          cfg.Users,
		lowerCase:    cfg.Policy.ForceLowerCaseUsername,
	}
}

// Authenticate checks username and password against the directory and returns
// the synchronized local user. The returned Outcome is never nil, on failure it
// carries the diagnostic of this attempt. ctx bounds every directory and
// database call.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*Outcome, error) {
	start := time.Now()
	out := &Outcome{}

	err := a.authenticate(ctx, out, username, password)

	observe(OutcomeLabel(out, err), time.Since(start))

	return out, err
}

func (a *Authenticator) authenticate(ctx context.Context, out *Outcome, username, password string) error {
	if a.lowerCase {
		username = strings.ToLower(username)
	}

	if username == "" {
		out.Diagnostic = DiagnosticEmptyUsername

		return ErrEmptyUsername
	}

	session, err := a.connector.Open(ctx)
	if err != nil {
		out.Diagnostic = DiagnosticUnavailable
		log.Warn().Err(err).Str("username", username).Msg("cannot connect to directory")

		return fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}

	defer func() {
		if errClose := session.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close directory session")
		}
	}()

	result, err := session.Bind(ctx, username, password, a.cfg.BaseDN, a.cfg.Filter)
	if err != nil {
		out.Diagnostic = session.LastBindDiagnostic()

		if errors.Is(err, directory.ErrInvalidCredentials) {
			log.Info().Str("username", username).Str("diagnostic", out.Diagnostic).Msg("directory rejected credentials")

			return fmt.Errorf("%w: %w", ErrCredentialsRejected, err)
		}

		return fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}

	log.Info().Str("username", username).Msg("authenticated with directory")

	if result.PassThrough {
		out.PassThrough = true

		return nil
	}

	user, err := a.synchronizer.Synchronize(ctx, session, result.DN, username, nil)
	if err != nil {
		if errors.Is(err, ErrRequiredGroupsMissing) {
			out.Diagnostic = DiagnosticRequiredGroups
		}

		return err
	}

	out.User = user

	return nil
}

// Import synchronizes every directory user.
func (a *Authenticator) Import(ctx context.Context) (*ImportReport, error) {
	session, err := a.connector.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}

	defer func() {
		if errClose := session.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close directory session")
		}
	}()

	return a.synchronizer.ImportUsers(ctx, session)
}
