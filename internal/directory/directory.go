package directory

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCredentials is returned by Bind when the directory rejects the user.
	ErrInvalidCredentials = errors.New("invalid directory credentials")

	// ErrSessionClosed is returned when a closed session is used.
	ErrSessionClosed = errors.New("directory session is closed")
)

// Searcher runs subtree searches below baseDN. A nil attribute list requests all attributes.
type Searcher interface {
	Search(ctx context.Context, baseDN, filter string, attributes []string) ([]*Entry, error)
}

// BindResult describes a successful credential check.
type BindResult struct {
	// DN of the authenticated entry. Empty on pass-through success.
	DN string
	// PassThrough is set when the directory accepted the credentials without
	// revealing an entry to synchronize.
	PassThrough bool
}

// Session is one connection to the directory owned by a single caller.
type Session interface {
	Searcher
	// Bind checks username and password. The user is located with filter below baseDN.
	Bind(ctx context.Context, username, password, baseDN, filter string) (BindResult, error)
	// LastBindDiagnostic is the human readable reason of the last failed Bind, or "".
	LastBindDiagnostic() string
	Close() error
}

// Connector opens sessions.
type Connector interface {
	Open(ctx context.Context) (Session, error)
}
