// Package setting stores named values in the settings table.
package setting

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ldapsso/ldapsso/internal/db/models"
)

const (
	nameQueryPattern = "name = ?"
)

var (
	// ErrSettingNotFound is returned when a setting is not found.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrSettingNameEmpty is returned when attempting to create/update a setting with an empty name.
	ErrSettingNameEmpty = errors.New("setting name cannot be empty")
	// ErrSettingAlreadyExists is returned when attempting to create a setting that already exists.
	ErrSettingAlreadyExists = errors.New("setting already exists")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

func check(db *gorm.DB, name string) error {
	if db == nil {
		return ErrDBNil
	}

	if name == "" {
		return ErrSettingNameEmpty
	}

	return nil
}

// Get retrieves a setting by its name.
func Get(ctx context.Context, db *gorm.DB, name string) (*models.Setting, error) {
	if err := check(db, name); err != nil {
		return nil, err
	}

	var setting models.Setting

	result := db.WithContext(ctx).Where(nameQueryPattern, name).First(&setting)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}

		return nil, result.Error
	}

	return &setting, nil
}

// Create inserts a new setting, an existing name is an error.
func Create(ctx context.Context, db *gorm.DB, name string, value []byte) (*models.Setting, error) {
	if _, err := Get(ctx, db, name); err == nil {
		return nil, ErrSettingAlreadyExists
	} else if !errors.Is(err, ErrSettingNotFound) {
		return nil, err
	}

	setting := &models.Setting{
		Name:  name,
		Value: value,
	}

	if result := db.WithContext(ctx).Create(setting); result.Error != nil {
		return nil, result.Error
	}

	return setting, nil
}

// Set creates or updates a setting by name.
func Set(ctx context.Context, db *gorm.DB, name string, value []byte) (*models.Setting, error) {
	setting, err := Get(ctx, db, name)
	if errors.Is(err, ErrSettingNotFound) {
		return Create(ctx, db, name, value)
	}

	if err != nil {
		return nil, err
	}

	setting.Value = value
	if result := db.WithContext(ctx).Save(setting); result.Error != nil {
		return nil, result.Error
	}

	return setting, nil
}

// Delete removes a setting by name.
func Delete(ctx context.Context, db *gorm.DB, name string) error {
	if err := check(db, name); err != nil {
		return err
	}

	result := db.WithContext(ctx).Where(nameQueryPattern, name).Delete(&models.Setting{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrSettingNotFound
	}

	return nil
}
