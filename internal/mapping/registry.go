package mapping

import (
	"strings"
	"sync"

	"github.com/ldapsso/ldapsso/internal/db/models"
	"github.com/ldapsso/ldapsso/internal/directory"
)

// Processor computes the value of a field mapped to a hook expression.
type Processor interface {
	Process(field string, record *models.Record, entry *directory.Entry, attributes []string, params map[string]string) any
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(field string, record *models.Record, entry *directory.Entry, attributes []string, params map[string]string) any

// Process calls f.
func (f ProcessorFunc) Process(field string, record *models.Record, entry *directory.Entry, attributes []string, params map[string]string) any {
	return f(field, record, entry, attributes, params)
}

// Registry resolves processors by hook name. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]Processor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{processors: map[string]Processor{}}
}

// Register adds or replaces the processor of name.
func (r *Registry) Register(name string, p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.processors[name] = p
}

// Resolve returns the processor of name.
func (r *Registry) Resolve(name string) (Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.processors[name]

	return p, ok
}

// DefaultRegistry returns a registry with the built-in processors:
//
//	join   every value of the attributes, joined by the separator param (default ", ")
//	lower  first value of the first attribute, lower-cased
//	upper  first value of the first attribute, upper-cased
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("join", ProcessorFunc(join))
	r.Register("lower", ProcessorFunc(caseProcessor(strings.ToLower)))
	r.Register("upper", ProcessorFunc(caseProcessor(strings.ToUpper)))

	return r
}

func join(_ string, _ *models.Record, entry *directory.Entry, attributes []string, params map[string]string) any {
	sep, ok := params["separator"]
	if !ok {
		sep = ", "
	}

	var values []string
	for _, name := range attributes {
		values = append(values, entry.Values(name)...)
	}

	return strings.Join(values, sep)
}

func caseProcessor(fn func(string) string) ProcessorFunc {
	return func(_ string, _ *models.Record, entry *directory.Entry, attributes []string, _ map[string]string) any {
		if len(attributes) == 0 {
			return ""
		}

		return fn(entry.Value(attributes[0]))
	}
}
