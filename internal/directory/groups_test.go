package directory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldapsso/ldapsso/internal/directory"
)

type searchCall struct {
	baseDN string
	filter string
}

type stubSearcher struct {
	entries map[string][]*directory.Entry // keyed by base DN
	calls   []searchCall
	err     error
}

func (s *stubSearcher) Search(_ context.Context, baseDN, filter string, _ []string) ([]*directory.Entry, error) {
	s.calls = append(s.calls, searchCall{baseDN: baseDN, filter: filter})
	if s.err != nil {
		return nil, s.err
	}

	return s.entries[baseDN], nil
}

func TestSelectFromMembershipVerifies(t *testing.T) {
	admins := directory.NewEntry("cn=admins,ou=groups,dc=example", map[string][]string{"cn": {"admins"}})
	s := &stubSearcher{entries: map[string][]*directory.Entry{
		"cn=admins,ou=groups,dc=example": {admins},
	}}

	got, err := directory.SelectFromMembership(context.Background(), s,
		[]string{
			"cn=admins,ou=groups,dc=example",
			"cn=gone,ou=groups,dc=example",
			"cn=staff,ou=other,dc=example",
		},
		"ou=groups,dc=example",
		"(&(objectClass=groupOfNames)(member={USERDN}))",
		[]string{"cn"},
		true,
	)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Same(t, admins, got[0])

	// the foreign DN never hits the directory
	require.Len(t, s.calls, 2)
	assert.Equal(t, "(&(objectClass=groupOfNames)(member=*))", s.calls[0].filter)
}

func TestSelectFromMembershipWithoutVerify(t *testing.T) {
	s := &stubSearcher{}

	got, err := directory.SelectFromMembership(context.Background(), s,
		[]string{"CN=Admins,OU=Groups,DC=example", "cn=staff,ou=other,dc=example"},
		"ou=groups,dc=example", "", nil, false,
	)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "CN=Admins,OU=Groups,DC=example", got[0].DN)
	assert.Equal(t, "Admins", got[0].Value("cn"))
	assert.Empty(t, s.calls)
}

func TestSelectFromMembershipPropagatesErrors(t *testing.T) {
	boom := errors.New("connection reset")
	s := &stubSearcher{err: boom}

	_, err := directory.SelectFromMembership(context.Background(), s,
		[]string{"cn=admins,ou=groups"}, "", "(cn=*)", nil, true)
	require.ErrorIs(t, err, boom)
}

func TestSelectFromUser(t *testing.T) {
	s := &stubSearcher{entries: map[string][]*directory.Entry{
		"ou=groups": {directory.NewEntry("cn=a,ou=groups", nil), directory.NewEntry("cn=b,ou=groups", nil)},
	}}

	got, err := directory.SelectFromUser(context.Background(), s,
		"ou=groups", "(|(member={USERDN})(memberUid={USERUID}))", "uid=jdoe,ou=people", "jdoe", nil)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "cn=a,ou=groups", got[0].DN)
	require.Len(t, s.calls, 1)
	assert.Equal(t, "(|(member=uid=jdoe,ou=people)(memberUid=jdoe))", s.calls[0].filter)
}

func TestInBase(t *testing.T) {
	tests := []struct {
		dn, base string
		want     bool
	}{
		{"cn=a,ou=groups,dc=example", "ou=groups,dc=example", true},
		{"cn=a,ou=groups,dc=example", "OU=Groups,DC=Example", true},
		{"ou=groups,dc=example", "ou=groups,dc=example", true},
		{"cn=a,ou=people,dc=example", "ou=groups,dc=example", false},
		{"cn=a,ou=people", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.dn+" in "+tt.base, func(t *testing.T) {
			assert.Equal(t, tt.want, directory.InBase(tt.dn, tt.base))
		})
	}
}
