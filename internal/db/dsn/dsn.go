// Package dsn builds the gorm dialector for the configured database engine.
package dsn

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ldapsso/ldapsso/internal/config"
)

// Create builds the Data Source Name of cfg.DB.GormEngine.
func Create(cfg *config.Config) (string, error) {
	db := cfg.DB

	switch db.GormEngine {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			db.User,
			db.Password,
			db.Host,
			db.Port,
			db.Name,
			db.Extras,
		), nil
	case "postgres":
		parts := []string{
			"host=" + db.Host,
			"user=" + db.User,
			"password=" + db.Password,
			"dbname=" + db.Name,
		}

		if db.Port != 0 {
			parts = append(parts, fmt.Sprintf("port=%d", db.Port))
		}

		if db.Extras != "" {
			parts = append(parts, db.Extras)
		}

		return strings.Join(parts, " "), nil
	case "sqlite":
		if db.Extras == "" {
			return db.Name, nil
		}

		return db.Name + "?" + db.Extras, nil
	default:
		return "", fmt.Errorf("%w: %q", config.ErrUnknownGormEngine, db.GormEngine)
	}
}

// Dialector opens the gorm driver of cfg.DB.GormEngine.
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	dsn, err := Create(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.DB.GormEngine {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	default:
		return sqlite.Open(dsn), nil
	}
}
