package directory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ldapsso/ldapsso/internal/directory"
)

func TestUsernameAttribute(t *testing.T) {
	tests := []struct {
		filter string
		want   string
	}{
		{"(uid={USERNAME})", "uid"},
		{"(&(objectClass=user)(sAMAccountName={USERNAME}))", "samaccountname"},
		{"(&(objectClass=person)( mail = {USERNAME} ))", "mail"},
		{"(objectClass=person)", directory.DefaultUsernameAttribute},
		{"", directory.DefaultUsernameAttribute},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			assert.Equal(t, tt.want, directory.UsernameAttribute(tt.filter))
		})
	}
}

func TestExpandFilterEscapesValues(t *testing.T) {
	got := directory.ExpandFilter("(&(member={USERDN})(memberUid={USERUID}))", map[string]string{
		directory.PlaceholderUserDN:  "cn=J*hn (ext),ou=people",
		directory.PlaceholderUserUID: "jdoe",
	})

	assert.Equal(t, `(&(member=cn=J\2ahn \28ext\29,ou=people)(memberUid=jdoe))`, got)
}

func TestExpandFilterKeepsUnknownPlaceholders(t *testing.T) {
	got := directory.ExpandFilter("(uid={USERNAME})", map[string]string{directory.PlaceholderUserDN: "x"})
	assert.Equal(t, "(uid={USERNAME})", got)
}

func TestWildcardFilter(t *testing.T) {
	assert.Equal(t,
		"(&(objectClass=groupOfNames)(member=*)(memberUid=*))",
		directory.WildcardFilter("(&(objectClass=groupOfNames)(member={USERDN})(memberUid={USERUID}))"),
	)
	assert.Equal(t, "(uid=*)", directory.WildcardFilter("(uid={USERNAME})"))
	assert.Equal(t, directory.MatchAllFilter, directory.WildcardFilter(""))
}
