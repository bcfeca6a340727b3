package models

import (
	"maps"

	"github.com/spf13/cast"
)

// Column names shared by the user and group tables.
const (
	ColumnID        = "id"
	ColumnParentID  = "pid"
	ColumnDN        = "dn"
	ColumnUsername  = "username"
	ColumnPassword  = "password"
	ColumnUserGroup = "usergroup"
	ColumnDeleted   = "deleted"
	ColumnEndTime   = "endtime"
	ColumnCrdate    = "crdate"
	ColumnTstamp    = "tstamp"
	ColumnTitle     = "title"
	ColumnAdmin     = "admin"
)

// OriginDirectory tags records produced by a directory synchronization.
const OriginDirectory = "directory"

// Record is a column keyed working copy of a user or group row.
//
// Fields holds exactly the columns of the table, so a field "exists" when it is a
// column. Values that have no column end up in ExtraData. Origin is never persisted.
type Record struct {
	Fields    map[string]any
	ExtraData map[string]any
	Origin    string
}

// NewRecord wraps fields, a nil map is replaced by an empty one.
func NewRecord(fields map[string]any) *Record {
	if fields == nil {
		fields = map[string]any{}
	}

	return &Record{Fields: fields}
}

// Has reports whether field is a column of the record.
func (r *Record) Has(field string) bool {
	_, ok := r.Fields[field]

	return ok
}

// Get returns the raw value of a column.
func (r *Record) Get(field string) any {
	return r.Fields[field]
}

// Set assigns a column value.
func (r *Record) Set(field string, value any) {
	r.Fields[field] = value
}

// SetExtra stores a value without column.
func (r *Record) SetExtra(field string, value any) {
	if r.ExtraData == nil {
		r.ExtraData = map[string]any{}
	}

	r.ExtraData[field] = value
}

// String returns the column value converted to a string.
func (r *Record) String(field string) string {
	return cast.ToString(r.Fields[field])
}

// Int returns the column value converted to an int64.
func (r *Record) Int(field string) int64 {
	return cast.ToInt64(r.Fields[field])
}

// ID returns the primary key, 0 while the record is not persisted.
func (r *Record) ID() uint64 {
	return cast.ToUint64(r.Fields[ColumnID])
}

// Deleted reports the soft-delete flag.
func (r *Record) Deleted() bool {
	return r.Int(ColumnDeleted) != 0
}

// Clone returns a copy whose maps can be changed independently.
func (r *Record) Clone() *Record {
	c := &Record{Fields: maps.Clone(r.Fields), Origin: r.Origin}
	if r.ExtraData != nil {
		c.ExtraData = maps.Clone(r.ExtraData)
	}

	return c
}
