package auth

import (
	"errors"

	"github.com/ldapsso/ldapsso/internal/db/repository"
)

var (
	// ErrEmptyUsername is returned when authenticating without a username.
	ErrEmptyUsername = errors.New("username is empty")

	// ErrDirectoryUnavailable is returned when the directory cannot be reached or queried.
	ErrDirectoryUnavailable = errors.New("directory is unavailable")

	// ErrCredentialsRejected is returned when the directory refuses the username or password.
	ErrCredentialsRejected = errors.New("credentials rejected by directory")

	// ErrRequiredGroupsMissing is returned when the user resolves into none of the required groups.
	ErrRequiredGroupsMissing = errors.New("required directory groups missing")

	// ErrUserNotPermitted is returned when no local user may be used or created for the directory user.
	ErrUserNotPermitted = errors.New("user is not permitted")

	// ErrUserNotFound is returned when the authenticated DN cannot be read from the directory.
	ErrUserNotFound = errors.New("user not found in directory")

	// ErrMembershipRejected is returned when the membership hook vetoes the resolved groups.
	ErrMembershipRejected = repository.ErrMembershipRejected
)

// Diagnostics recorded in Outcome.Diagnostic besides the ones reported by the directory.
const (
	DiagnosticEmptyUsername  = "No username provided."
	DiagnosticUnavailable    = "Cannot connect to the directory."
	DiagnosticRequiredGroups = "Missing required directory groups."
)
