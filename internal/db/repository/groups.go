package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ldapsso/ldapsso/internal/db/models"
)

// GroupQuery selects groups by id, or by DN within an optional container.
type GroupQuery struct {
	ID       uint64
	ParentID uint64
	DN       string
}

// Groups stores groups in tables shaped like models.Group.
type Groups struct {
	db *gorm.DB
}

// NewGroups creates a group repository.
func NewGroups(db *gorm.DB) *Groups {
	return &Groups{db: db}
}

// Fetch returns the matching groups ordered by id, soft-deleted ones included.
func (r *Groups) Fetch(ctx context.Context, table string, q GroupQuery) ([]*models.Record, error) {
	if err := checkTable(r.db, table); err != nil {
		return nil, err
	}

	tx := r.db.WithContext(ctx).Table(table)

	switch {
	case q.ID > 0:
		tx = tx.Where("id = ?", q.ID)
	case q.DN != "":
		tx = inParent(tx, q.ParentID).Where("LOWER(dn) = ?", strings.ToLower(q.DN))
	default:
		return nil, nil
	}

	return r.find(tx, table)
}

// FetchIDs returns the groups with the given ids ordered by id.
func (r *Groups) FetchIDs(ctx context.Context, table string, ids []uint64) ([]*models.Record, error) {
	if err := checkTable(r.db, table); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return nil, nil
	}

	return r.find(r.db.WithContext(ctx).Table(table).Where("id IN ?", ids), table)
}

// Create returns an empty, not persisted group of the table.
func (r *Groups) Create(_ string) *models.Record {
	return (&models.Group{}).Record()
}

// Add inserts the record and returns the persisted copy.
func (r *Groups) Add(ctx context.Context, table string, record *models.Record) (*models.Record, error) {
	if err := checkTable(r.db, table); err != nil {
		return nil, err
	}

	group := models.GroupFromRecord(record)
	group.ID = 0

	if err := r.db.WithContext(ctx).Table(table).Create(&group).Error; err != nil {
		return nil, fmt.Errorf("failed to create group in %s: %w", table, err)
	}

	out := group.Record()
	out.ExtraData = record.ExtraData

	return out, nil
}

// Update writes every column of a persisted record.
func (r *Groups) Update(ctx context.Context, table string, record *models.Record) error {
	if err := checkTable(r.db, table); err != nil {
		return err
	}

	group := models.GroupFromRecord(record)
	if group.ID == 0 {
		return ErrNotPersisted
	}

	if err := r.db.WithContext(ctx).Table(table).Save(&group).Error; err != nil {
		return fmt.Errorf("failed to update group %d in %s: %w", group.ID, table, err)
	}

	return nil
}

func (r *Groups) find(tx *gorm.DB, table string) ([]*models.Record, error) {
	var groups []models.Group

	if err := tx.Order("id").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}

	records := make([]*models.Record, len(groups))
	for i := range groups {
		records[i] = groups[i].Record()
	}

	return records, nil
}
