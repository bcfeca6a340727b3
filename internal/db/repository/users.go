package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ldapsso/ldapsso/internal/db/models"
)

// UserQuery selects users. ID wins over every other criterion. Otherwise users
// are looked up by DN first and by Username if no DN matched. ParentID 0 searches
// every container.
type UserQuery struct {
	ID       uint64
	ParentID uint64
	Username string
	DN       string
}

// Users stores users in tables shaped like models.User.
type Users struct {
	db *gorm.DB
}

// NewUsers creates a user repository.
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// Fetch returns the matching users ordered by id, soft-deleted ones included.
func (r *Users) Fetch(ctx context.Context, table string, q UserQuery) ([]*models.Record, error) {
	if err := checkTable(r.db, table); err != nil {
		return nil, err
	}

	if q.ID > 0 {
		return r.find(ctx, table, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("id = ?", q.ID)
		})
	}

	if q.DN != "" {
		records, err := r.find(ctx, table, func(tx *gorm.DB) *gorm.DB {
			return inParent(tx, q.ParentID).Where("LOWER(dn) = ?", strings.ToLower(q.DN))
		})
		if err != nil || len(records) > 0 {
			return records, err
		}
	}

	if q.Username == "" {
		return nil, nil
	}

	return r.find(ctx, table, func(tx *gorm.DB) *gorm.DB {
		return inParent(tx, q.ParentID).Where("username = ?", q.Username)
	})
}

// Create returns an empty, not persisted user of the table.
func (r *Users) Create(_ string) *models.Record {
	return (&models.User{}).Record()
}

// Defaults returns the schema defaults of the user columns.
func (r *Users) Defaults() (map[string]any, error) {
	if r.db == nil {
		return nil, ErrDBNil
	}

	return columnDefaults(r.db, &models.User{})
}

// Add inserts the record and returns the persisted copy.
func (r *Users) Add(ctx context.Context, table string, record *models.Record) (*models.Record, error) {
	if err := checkTable(r.db, table); err != nil {
		return nil, err
	}

	user := models.UserFromRecord(record)
	user.ID = 0

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(table).Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user in %s: %w", table, err)
		}

		return replaceMemberships(tx, table, user.ID, user.UserGroup)
	})
	if err != nil {
		return nil, err
	}

	out := user.Record()
	out.ExtraData = record.ExtraData
	out.Origin = record.Origin

	return out, nil
}

// Update writes every column of a persisted record and rewrites its memberships.
func (r *Users) Update(ctx context.Context, table string, record *models.Record) error {
	if err := checkTable(r.db, table); err != nil {
		return err
	}

	user := models.UserFromRecord(record)
	if user.ID == 0 {
		return ErrNotPersisted
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(table).Save(&user).Error; err != nil {
			return fmt.Errorf("failed to update user %d in %s: %w", user.ID, table, err)
		}

		return replaceMemberships(tx, table, user.ID, user.UserGroup)
	})
}

func (r *Users) find(ctx context.Context, table string, scope func(*gorm.DB) *gorm.DB) ([]*models.Record, error) {
	var users []models.User

	if err := scope(r.db.WithContext(ctx).Table(table)).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}

	records := make([]*models.Record, len(users))
	for i := range users {
		records[i] = users[i].Record()
	}

	return records, nil
}

func replaceMemberships(tx *gorm.DB, table string, userID uint64, usergroup string) error {
	if err := tx.Where("user_table = ? AND user_id = ?", table, userID).Delete(&models.UserGroup{}).Error; err != nil {
		return fmt.Errorf("failed to clear memberships: %w", err)
	}

	ids := ParseIDs(usergroup)
	if len(ids) == 0 {
		return nil
	}

	rows := make([]models.UserGroup, 0, len(ids))
	seen := make(map[uint64]bool, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}

		seen[id] = true
		rows = append(rows, models.UserGroup{UserTable: table, UserID: userID, GroupID: id})
	}

	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to store memberships: %w", err)
	}

	return nil
}

func inParent(tx *gorm.DB, parentID uint64) *gorm.DB {
	if parentID == 0 {
		return tx
	}

	return tx.Where("pid = ?", parentID)
}
