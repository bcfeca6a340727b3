// Package handler holds what the HTTP handlers of the web service share.
package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/ldapsso/ldapsso/internal/auth"
	"github.com/ldapsso/ldapsso/internal/config"
)

// Authenticator checks credentials and synchronizes the user. *auth.Authenticator implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*auth.Outcome, error)
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, authenticator Authenticator) error
}
