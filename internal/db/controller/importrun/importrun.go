// Package importrun keeps the summary of the last bulk import in the settings table.
package importrun

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/ldapsso/ldapsso/internal/auth"
	"github.com/ldapsso/ldapsso/internal/db/controller/setting"
)

const (
	// SettingKeyLastImport is the key used to store the last import in the database.
	SettingKeyLastImport = "last_import"
)

type (
	// Failure is a user the import skipped.
	Failure struct {
		DN    string `json:"dn"`
		Error string `json:"error"`
	}

	// Run summarizes one import.
	Run struct {
		Started      time.Time `json:"started"`
		Finished     time.Time `json:"finished"`
		Synchronized int       `json:"synchronized"`
		Failures     []Failure `json:"failures,omitempty"`
		// Error is set when the import stopped early.
		Error string `json:"error,omitempty"`
	}
)

// FromReport builds the summary of an import that ran from started until now.
func FromReport(started time.Time, report *auth.ImportReport, err error) *Run {
	run := &Run{Started: started, Finished: time.Now()}

	if err != nil {
		run.Error = err.Error()
	}

	if report == nil {
		return run
	}

	run.Synchronized = report.Synchronized

	for _, f := range report.Failures {
		run.Failures = append(run.Failures, Failure{DN: f.DN, Error: f.Err.Error()})
	}

	return run
}

// Load loads the last import from the database.
func (r *Run) Load(ctx context.Context, db *gorm.DB) error {
	s, err := setting.Get(ctx, db, SettingKeyLastImport)
	if err != nil {
		return err
	}

	return json.Unmarshal(s.Value, r)
}

// Save stores r as the last import.
func (r *Run) Save(ctx context.Context, db *gorm.DB) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	_, err = setting.Set(ctx, db, SettingKeyLastImport, data)

	return err
}
