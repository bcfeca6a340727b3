// Package repository reads and writes local users and groups.
//
// Table names are chosen per call so one process can serve several user and
// group tables sharing the layout of models.User and models.Group. Records are
// exchanged as *models.Record working copies.
package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/ldapsso/ldapsso/internal/db/models"
	"github.com/ldapsso/ldapsso/internal/uniuri"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")

	// ErrTableEmpty is returned when no table name was given.
	ErrTableEmpty = errors.New("table name cannot be empty")

	// ErrNotPersisted is returned when updating a record without primary key.
	ErrNotPersisted = errors.New("record has no id")

	// ErrRecordNotFound is returned when a record vanished between two calls.
	ErrRecordNotFound = errors.New("record not found")

	// ErrMembershipRejected is returned when a membership hook vetoes an assignment.
	ErrMembershipRejected = errors.New("membership assignment rejected")
)

const randomPasswordLength = 32

// Migrate creates or updates the given user and group tables and the membership table.
func Migrate(db *gorm.DB, userTables, groupTables []string) error {
	if db == nil {
		return ErrDBNil
	}

	for _, table := range userTables {
		if err := db.Table(table).AutoMigrate(&models.User{}); err != nil {
			return fmt.Errorf("failed to migrate user table %s: %w", table, err)
		}
	}

	for _, table := range groupTables {
		if err := db.Table(table).AutoMigrate(&models.Group{}); err != nil {
			return fmt.Errorf("failed to migrate group table %s: %w", table, err)
		}
	}

	if err := db.AutoMigrate(&models.UserGroup{}, &models.Setting{}); err != nil {
		return fmt.Errorf("failed to migrate membership table: %w", err)
	}

	return nil
}

// NormalizeUsername trims surrounding whitespace.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// RandomPassword returns the argon2id hash of a random secret nobody knows.
// Directory users authenticate against the directory, the local password only
// has to be unusable.
func RandomPassword() string {
	return models.HashPassword(uniuri.NewLen(randomPasswordLength), models.PlaceholderParams)
}

// ParseIDs splits a comma separated id list, invalid items are skipped.
func ParseIDs(list string) []uint64 {
	var ids []uint64

	for _, item := range strings.Split(list, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(item), 10, 64)
		if err != nil || id == 0 {
			continue
		}

		ids = append(ids, id)
	}

	return ids
}

// JoinIDs renders ids as a comma separated list.
func JoinIDs(ids []uint64) string {
	items := make([]string, len(ids))
	for i, id := range ids {
		items[i] = strconv.FormatUint(id, 10)
	}

	return strings.Join(items, ",")
}

// columnDefaults returns the schema default of every non primary key column of model.
func columnDefaults(db *gorm.DB, model any) (map[string]any, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	defaults := map[string]any{}

	for _, field := range stmt.Schema.Fields {
		if field.PrimaryKey || field.DBName == "" || field.DefaultValueInterface == nil {
			continue
		}

		defaults[field.DBName] = field.DefaultValueInterface
	}

	return defaults, nil
}

func checkTable(db *gorm.DB, table string) error {
	if db == nil {
		return ErrDBNil
	}

	if table == "" {
		return ErrTableEmpty
	}

	return nil
}
