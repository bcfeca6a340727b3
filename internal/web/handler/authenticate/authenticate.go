// Package authenticate serves the JSON login endpoint of the API.
package authenticate

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ldapsso/ldapsso/internal/auth"
	"github.com/ldapsso/ldapsso/internal/config"
	"github.com/ldapsso/ldapsso/internal/db/models"
	fiberlogger "github.com/ldapsso/ldapsso/internal/logger/adapter/fiber"
	"github.com/ldapsso/ldapsso/internal/web/handler"
)

const (
	// Path of the endpoint below handler.APIPath.
	Path = "/authenticate"

	defaultTimeout = 15 * time.Second
)

var (
	// ErrInvalidRequest is returned for bodies that cannot be parsed or fail validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAuthenticationFailed is reported for every rejected login.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrUnavailable is reported when the directory cannot be used.
	ErrUnavailable = errors.New("directory unavailable")

	// ErrInternalServerError is reported for unexpected failures.
	ErrInternalServerError = errors.New("internal server error")
)

// Request is the body of POST /api/v1/authenticate.
type Request struct {
	Username string `json:"username" form:"username" validate:"required,max=255"`
	Password string `json:"password" form:"password" validate:"max=1024"`
}

// Response is returned for every request.
type Response struct {
	Success     bool           `json:"success"`
	PassThrough bool           `json:"passThrough,omitempty"`
	User        map[string]any `json:"user,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
	Error       string         `json:"error,omitempty"`
	Diagnostic  string         `json:"diagnostic,omitempty"`
}

// Service is the authenticate handler service.
type Service struct {
	authenticator handler.Authenticator
	validator     *validator.Validate
	timeout       time.Duration
}

// Init registers the route.
func (s *Service) Init(app *fiber.App, cfg *config.Config, authenticator handler.Authenticator) error {
	if app == nil || cfg == nil || authenticator == nil {
		return errors.New(handler.ErrNilACFatalLogMsg)
	}

	s.authenticator = authenticator
	s.validator = validator.New()

	s.timeout = time.Duration(cfg.Webserver.RequestTimeout) * time.Second
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}

	app.Route(handler.APIPath, func(router fiber.Router) {
		router.Post(Path, s.Post)
	})

	return nil
}

// Post authenticates the user of the request body.
func (s *Service) Post(c *fiber.Ctx) error {
	in := new(Request)

	if err := c.BodyParser(in); err != nil {
		c.Locals(fiberlogger.LocalsOutcome, auth.OutcomeInvalidRequest)

		return c.Status(fiber.StatusBadRequest).JSON(Response{Error: ErrInvalidRequest.Error()})
	}

	c.Locals(fiberlogger.LocalsUsername, in.Username)

	if err := s.validator.Struct(in); err != nil {
		c.Locals(fiberlogger.LocalsOutcome, auth.OutcomeInvalidRequest)

		return c.Status(fiber.StatusBadRequest).JSON(Response{
			Error:      ErrInvalidRequest.Error(),
			Diagnostic: err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.timeout)
	defer cancel()

	outcome, err := s.authenticator.Authenticate(ctx, in.Username, in.Password)
	if outcome == nil {
		outcome = &auth.Outcome{}
	}

	c.Locals(fiberlogger.LocalsOutcome, auth.OutcomeLabel(outcome, err))

	if err != nil {
		status, public := classify(err)
		if status == fiber.StatusInternalServerError {
			log.Error().Err(err).Str("username", in.Username).Msg("authentication failed")
		}

		return c.Status(status).JSON(Response{Error: public.Error(), Diagnostic: outcome.Diagnostic})
	}

	out := Response{Success: true, PassThrough: outcome.PassThrough}

	if outcome.User != nil {
		out.User = publicFields(outcome.User)
		out.Extra = outcome.User.ExtraData
	}

	return c.JSON(out)
}

func classify(err error) (int, error) {
	switch {
	case errors.Is(err, auth.ErrEmptyUsername):
		return fiber.StatusBadRequest, ErrInvalidRequest
	case errors.Is(err, auth.ErrCredentialsRejected),
		errors.Is(err, auth.ErrRequiredGroupsMissing),
		errors.Is(err, auth.ErrUserNotPermitted),
		errors.Is(err, auth.ErrMembershipRejected):
		return fiber.StatusUnauthorized, ErrAuthenticationFailed
	case errors.Is(err, auth.ErrDirectoryUnavailable),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable, ErrUnavailable
	default:
		return fiber.StatusInternalServerError, ErrInternalServerError
	}
}

// publicFields drops the password hash.
func publicFields(user *models.Record) map[string]any {
	fields := make(map[string]any, len(user.Fields))

	for k, v := range user.Fields {
		if k != models.ColumnPassword {
			fields[k] = v
		}
	}

	return fields
}
