// Package main provides the entry point of ldapsso.
// ldapsso authenticates users against an LDAP directory and keeps local user
// and group tables in sync with it. It serves a JSON authentication API using
// the Fiber framework, offers a bulk import command and persists users, groups
// and memberships with gorm on MySQL, PostgreSQL or SQLite.
package main
