package mapping

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/ldapsso/ldapsso/internal/db/models"
	"github.com/ldapsso/ldapsso/internal/directory"
)

// Option configures a Mapper.
type Option func(*Mapper)

// WithClock replaces the time source of {DATE}.
func WithClock(now func() time.Time) Option {
	return func(m *Mapper) {
		m.now = now
	}
}

// WithRandom replaces the number source of {RAND}.
func WithRandom(random func() int64) Option {
	return func(m *Mapper) {
		m.random = random
	}
}

// WithRegistry sets the hook processors.
func WithRegistry(r *Registry) Option {
	return func(m *Mapper) {
		m.registry = r
	}
}

// Mapper evaluates mappings against directory entries.
type Mapper struct {
	registry *Registry
	now      func() time.Time
	random   func() int64
}

// NewMapper creates a mapper with the default registry.
func NewMapper(opts ...Option) *Mapper {
	m := &Mapper{
		registry: DefaultRegistry(),
		now:      time.Now,
		random:   func() int64 { return rand.Int64N(1 << 31) },
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Now returns the current time of the mapper's clock.
func (m *Mapper) Now() time.Time {
	return m.now()
}

// Merge evaluates every rule but usergroup against entry and returns a copy of
// record with the results. A field that is a column of record is overwritten,
// anything else lands in ExtraData. Unresolvable markers and unknown hooks
// evaluate to "".
func (m *Mapper) Merge(entry *directory.Entry, record *models.Record, mapping Mapping) *models.Record {
	out := record.Clone()

	for _, rule := range mapping {
		if rule.Field == FieldUserGroup {
			continue
		}

		value := m.Evaluate(rule, out, entry)

		if out.Has(rule.Field) {
			out.Set(rule.Field, value)
		} else {
			out.SetExtra(rule.Field, value)
		}
	}

	return out
}

// Evaluate returns the value of one rule.
func (m *Mapper) Evaluate(rule Rule, record *models.Record, entry *directory.Entry) any {
	e := rule.Expr

	switch e.Kind {
	case Constant:
		if e.Constant == ConstantDate {
			return m.now().Unix()
		}

		return m.random()
	case Hook:
		p, ok := m.registry.Resolve(e.HookName())
		if !ok {
			return ""
		}

		return p.Process(rule.Field, record, entry, e.Attributes, e.Params)
	case Attribute:
		if rule.Field == FieldDN || (rule.Field == models.ColumnTitle && e.Raw == "<"+directory.AttributeDN+">") {
			return entry.Value(e.Attributes[0])
		}

		return ReplaceMarkers(e.Raw, entry)
	default:
		return e.Raw
	}
}

// ReplaceMarkers substitutes every <name> in template with the first value of
// the attribute, or removes it when the entry lacks the attribute.
func ReplaceMarkers(template string, entry *directory.Entry) string {
	return markerRe.ReplaceAllStringFunc(template, func(marker string) string {
		return entry.Value(strings.TrimSuffix(strings.TrimPrefix(marker, "<"), ">"))
	})
}
