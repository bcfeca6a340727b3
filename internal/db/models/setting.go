// Package models contains the database rows and the working copies the synchronization edits.
package models

// Setting is a named value the service keeps between runs, e.g. the result of the last import.
type Setting struct {
	ID    uint64 `gorm:"primaryKey"`
	Name  string `gorm:"size:191;uniqueIndex"`
	Value []byte
}
