package models

import "github.com/spf13/cast"

// Group is a row of a local group table.
type Group struct {
	ID          uint64 `gorm:"primaryKey;column:id"`
	ParentID    uint64 `gorm:"column:pid;not null;default:0"`
	DN          string `gorm:"column:dn;size:512"`
	Title       string `gorm:"column:title;size:255"`
	Description string `gorm:"column:description;size:1024"`
	Hidden      int    `gorm:"column:hidden;not null;default:0"`
	Deleted     int    `gorm:"column:deleted;not null;default:0"`
	Crdate      int64  `gorm:"column:crdate"`
	Tstamp      int64  `gorm:"column:tstamp"`
}

// Record converts the row into a working copy.
func (g *Group) Record() *Record {
	return NewRecord(map[string]any{
		ColumnID:       g.ID,
		ColumnParentID: g.ParentID,
		ColumnDN:       g.DN,
		ColumnTitle:    g.Title,
		"description":  g.Description,
		"hidden":       g.Hidden,
		ColumnDeleted:  g.Deleted,
		ColumnCrdate:   g.Crdate,
		ColumnTstamp:   g.Tstamp,
	})
}

// GroupFromRecord converts a working copy back into a row.
func GroupFromRecord(r *Record) Group {
	return Group{
		ID:          r.ID(),
		ParentID:    cast.ToUint64(r.Get(ColumnParentID)),
		DN:          r.String(ColumnDN),
		Title:       r.String(ColumnTitle),
		Description: r.String("description"),
		Hidden:      cast.ToInt(r.Get("hidden")),
		Deleted:     cast.ToInt(r.Get(ColumnDeleted)),
		Crdate:      r.Int(ColumnCrdate),
		Tstamp:      r.Int(ColumnTstamp),
	}
}
