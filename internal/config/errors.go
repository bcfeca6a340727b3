package config

import (
	"errors"
)

var (
	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrEmptyLDAPHost error if no directory server is configured.
	ErrEmptyLDAPHost = errors.New("toml config ldap.host can not be empty")

	// ErrEmptyUserBaseDN error if users are not located anywhere.
	ErrEmptyUserBaseDN = errors.New("toml config users.basedn can not be empty")

	// ErrMissingUsernamePlaceholder error if the user filter can not select a single user.
	ErrMissingUsernamePlaceholder = errors.New("toml config users.filter must contain {USERNAME}")

	// ErrEmptyTable error if a user or group table name is empty.
	ErrEmptyTable = errors.New("toml config users.table and groups.table can not be empty")

	// ErrUnknownGormEngine error if db.gormengine is none of mysql, postgres, sqlite.
	ErrUnknownGormEngine = errors.New("toml config db.gormengine must be one of mysql, postgres, sqlite")
)
