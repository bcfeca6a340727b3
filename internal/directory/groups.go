package directory

import (
	"context"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// SelectFromMembership resolves the group DNs listed in a user's membership attribute.
//
// DNs outside baseDN are ignored. With verify set every DN is looked up with the
// group filter and dropped if the directory does not return it. Without verify the
// DN is accepted as is and the entry only carries the attribute of its first RDN,
// which allows groups living on another server.
func SelectFromMembership(
	ctx context.Context,
	s Searcher,
	membership []string,
	baseDN, filter string,
	attributes []string,
	verify bool,
) ([]*Entry, error) {
	entries := make([]*Entry, 0, len(membership))
	filter = WildcardFilter(filter)

	for _, dn := range membership {
		if !InBase(dn, baseDN) {
			continue
		}

		if !verify {
			entries = append(entries, entryFromDN(dn))

			continue
		}

		found, err := s.Search(ctx, dn, filter, attributes)
		if err != nil {
			return nil, err
		}

		if len(found) > 0 {
			entries = append(entries, found[0])
		}
	}

	return entries, nil
}

// SelectFromUser searches baseDN for groups referencing the user by DN or uid.
func SelectFromUser(
	ctx context.Context,
	s Searcher,
	baseDN, filter, userDN, userUID string,
	attributes []string,
) ([]*Entry, error) {
	filter = ExpandFilter(filter, map[string]string{
		PlaceholderUserDN:  userDN,
		PlaceholderUserUID: userUID,
	})

	return s.Search(ctx, baseDN, filter, attributes)
}

// InBase reports whether dn equals or lies below baseDN. An empty baseDN matches everything.
func InBase(dn, baseDN string) bool {
	if baseDN == "" {
		return true
	}

	child, errChild := ldap.ParseDN(dn)
	base, errBase := ldap.ParseDN(baseDN)

	if errChild != nil || errBase != nil {
		return strings.HasSuffix(strings.ToLower(dn), strings.ToLower(baseDN))
	}

	return base.EqualFold(child) || base.AncestorOfFold(child)
}

func entryFromDN(dn string) *Entry {
	attributes := map[string][]string{}

	if parsed, err := ldap.ParseDN(dn); err == nil && len(parsed.RDNs) > 0 {
		for _, attr := range parsed.RDNs[0].Attributes {
			attributes[attr.Type] = append(attributes[attr.Type], attr.Value)
		}
	}

	return NewEntry(dn, attributes)
}
