// Package directory reads users and groups from an LDAP directory.
//
// Entries returned by a Session are immutable snapshots with case-insensitive
// attribute names. The synchronization engine only depends on the Connector,
// Session and Searcher interfaces, the LDAP implementation lives in ldap.go.
package directory

import (
	"sort"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// AttributeDN is the pseudo attribute resolving to the entry's distinguished name.
const AttributeDN = "dn"

// Entry is a read-only snapshot of one directory object.
type Entry struct {
	DN         string
	attributes map[string][]string
}

// NewEntry copies attributes into a new entry, attribute names are folded to lower case.
// Values of names differing only in case are concatenated in sorted name order.
func NewEntry(dn string, attributes map[string][]string) *Entry {
	names := make([]string, 0, len(attributes))
	for name := range attributes {
		names = append(names, name)
	}

	sort.Strings(names)

	e := &Entry{DN: dn, attributes: make(map[string][]string, len(attributes))}

	for _, name := range names {
		key := strings.ToLower(name)
		e.attributes[key] = append(e.attributes[key], attributes[name]...)
	}

	return e
}

// FromLDAP converts a go-ldap search result entry.
func FromLDAP(entry *ldap.Entry) *Entry {
	attributes := make(map[string][]string, len(entry.Attributes))
	for _, attr := range entry.Attributes {
		attributes[attr.Name] = append(attributes[attr.Name], attr.Values...)
	}

	return NewEntry(entry.DN, attributes)
}

// Values returns all values of the attribute. "dn" yields the DN unless the
// directory returned an explicit attribute of that name.
func (e *Entry) Values(name string) []string {
	name = strings.ToLower(name)

	if values, ok := e.attributes[name]; ok {
		return append([]string(nil), values...)
	}

	if name == AttributeDN && e.DN != "" {
		return []string{e.DN}
	}

	return nil
}

// Value returns the first value of the attribute or "".
func (e *Entry) Value(name string) string {
	values := e.Values(name)
	if len(values) == 0 {
		return ""
	}

	return values[0]
}

// Has reports whether the entry carries the attribute.
func (e *Entry) Has(name string) bool {
	return len(e.Values(name)) > 0
}

// Attributes returns the sorted lower-cased attribute names.
func (e *Entry) Attributes() []string {
	names := make([]string, 0, len(e.attributes))
	for name := range e.attributes {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
