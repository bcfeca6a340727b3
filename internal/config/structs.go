package config

import (
	"github.com/ldapsso/ldapsso/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string `default:"ldapsso"`
	Webserver Webserver
	LDAP      LDAP
	Users     Users
	Groups    Groups
	Policy    Policy
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath      bool   // use clean path middleware to allow multi slash requests
	DisableRecover bool   // disable recover middleware
	Port           int    `default:"8080"` // listening port for the webserver
	ShutDownTime   int    `default:"5"`    // wait time for shutdown
	URL            string // base url for the webserver
	RequestTimeout int    `default:"15"` // upper bound in seconds for one authentication request
}

// LDAP holds the directory server connection settings.
type LDAP struct {
	Host         string
	Port         int  `default:"389"`
	UseSSL       bool // ldaps://
	UseTLS       bool // StartTLS on a plain connection
	SkipVerify   bool
	BindDN       string // service account used for searches
	BindPassword string
	Timeout      int `default:"10"` // seconds
}

// Users describes where directory users live and how they map onto the local user table.
type Users struct {
	Table  string `default:"users"`
	BaseDN string
	// Filter must contain the {USERNAME} placeholder, e.g. (&(objectClass=inetOrgPerson)(uid={USERNAME})).
	// Set it to "" to bind with the username as DN and skip synchronization.
	Filter string `default:"(uid={USERNAME})"`
	// Mapping holds one "field = expression" rule per line.
	Mapping string
}

// Groups describes where directory groups live and how they map onto the local group table.
type Groups struct {
	Table  string `default:"groups"`
	BaseDN string
	// Filter may reference {USERDN} and {USERUID} for reverse membership lookups.
	Filter  string `default:"(&(objectClass=groupOfNames)(member={USERDN}))"`
	Mapping string
}

// Policy holds the synchronization switches.
type Policy struct {
	ForceLowerCaseUsername bool
	// OnlyExistingUsers rejects directory users without an active local record.
	OnlyExistingUsers bool
	// DeleteUserIfNoLocalGroups soft-deletes users that resolve into no local group.
	DeleteUserIfNoLocalGroups bool
	// DeleteUserIfNoDirectoryGroups soft-deletes users that belong to no directory group at all.
	DeleteUserIfNoDirectoryGroups bool
	// RequiredGroups lists local group ids of which a user must resolve into at least one.
	RequiredGroups []uint64
	// FailOnMissingLocalGroup yields no memberships when none of the directory groups exists locally.
	FailOnMissingLocalGroup bool
	// DoNotSynchronizeGroups never creates or updates local groups.
	DoNotSynchronizeGroups bool
	// EvaluateGroupsFromMembership reads groups from the user's membership attribute
	// instead of searching groups that reference the user.
	EvaluateGroupsFromMembership bool
	// AssignGroups are always added to every synchronized user.
	AssignGroups []uint64
	// KeepLocalGroups keeps memberships of groups that are not managed by the directory.
	KeepLocalGroups bool
	// AdminGroups turns on the admin flag of users resolving into one of these groups.
	AdminGroups []uint64
}
