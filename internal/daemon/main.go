// Package daemon wires the database, the directory and the web service together.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ldapsso/ldapsso/internal/auth"
	"github.com/ldapsso/ldapsso/internal/config"
	"github.com/ldapsso/ldapsso/internal/db/controller/importrun"
	"github.com/ldapsso/ldapsso/internal/db/dsn"
	"github.com/ldapsso/ldapsso/internal/db/repository"
	"github.com/ldapsso/ldapsso/internal/directory"
	"github.com/ldapsso/ldapsso/internal/logger/adapter/stdlogger"
	"github.com/ldapsso/ldapsso/internal/web"
)

const slowQueryThreshold = 500 * time.Millisecond

// Daemon represents the main application daemon.
type Daemon struct {
	cfg           *config.Config
	db            *gorm.DB
	authenticator *auth.Authenticator
}

// Open connects to the configured database and migrates the configured tables.
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dsn.Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(cfg.DevMode)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err = repository.Migrate(db, []string{cfg.Users.Table}, []string{cfg.Groups.Table}); err != nil {
		return nil, err
	}

	return db, nil
}

// newGormLogger routes gorm through zerolog: slow queries and errors, every statement in dev mode.
func newGormLogger(devMode bool) gormlogger.Interface {
	c := gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	}

	level := zerolog.WarnLevel

	if devMode {
		c.LogLevel = gormlogger.Info
		level = zerolog.DebugLevel
	}

	return gormlogger.New(stdlogger.New(level), c)
}

// New creates a daemon on top of db. The directory is reached through connector,
// nil selects the LDAP server of the configuration.
func New(cfg *config.Config, db *gorm.DB, connector directory.Connector) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	if connector == nil {
		ldap.Logger(stdlogger.New(zerolog.WarnLevel).Std())
		connector = directory.NewLDAPConnector(cfg.LDAP, nil)
	}

	authenticator, err := auth.New(cfg, db, connector)
	if err != nil {
		return nil, err
	}

	return &Daemon{
		cfg:           cfg,
		db:            db,
		authenticator: authenticator,
	}, nil
}

// Authenticator returns the authenticator the daemon serves.
func (d *Daemon) Authenticator() *auth.Authenticator {
	return d.authenticator
}

// Start serves the web API until SIGINT or SIGTERM.
func (d *Daemon) Start() error {
	webService, err := web.New(d.cfg, d.authenticator)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
	}()

	go webService.WaitShutdown()

	return <-errCh
}

// Import synchronizes all directory users and records the run in the settings table.
func (d *Daemon) Import(ctx context.Context, timeout time.Duration) (*importrun.Run, error) {
	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	started := time.Now()
	report, err := d.authenticator.Import(ctx)
	run := importrun.FromReport(started, report, err)

	log.Info().
		Int("synchronized", run.Synchronized).
		Int("failed", len(run.Failures)).
		Dur("elapsed", run.Finished.Sub(started)).
		Msg("directory import finished")

	if errSave := run.Save(context.WithoutCancel(ctx), d.db); errSave != nil {
		log.Error().Err(errSave).Msg("failed to record the import run")
	}

	return run, err
}
