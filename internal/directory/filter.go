package directory

import (
	"regexp"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Filter placeholders.
const (
	PlaceholderUsername = "{USERNAME}"
	PlaceholderUserDN   = "{USERDN}"
	PlaceholderUserUID  = "{USERUID}"
)

// DefaultUsernameAttribute is used when the user filter does not reveal one.
const DefaultUsernameAttribute = "uid"

var usernameAttributeRe = regexp.MustCompile(`\(\s*([^()=\s]+)\s*=\s*\{USERNAME\}\s*\)`)

// UsernameAttribute returns the attribute compared against {USERNAME} in filter.
func UsernameAttribute(filter string) string {
	m := usernameAttributeRe.FindStringSubmatch(filter)
	if m == nil {
		return DefaultUsernameAttribute
	}

	return strings.ToLower(m[1])
}

// ExpandFilter replaces placeholders with escaped values. Placeholders
// without a value are left untouched.
func ExpandFilter(filter string, values map[string]string) string {
	for placeholder, value := range values {
		filter = strings.ReplaceAll(filter, placeholder, ldap.EscapeFilter(value))
	}

	return filter
}

// MatchAllFilter matches every entry.
const MatchAllFilter = "(objectClass=*)"

// WildcardFilter replaces every placeholder with "*", turning a per-user
// filter into one matching any object of the same kind. An empty filter
// matches everything.
func WildcardFilter(filter string) string {
	if filter == "" {
		return MatchAllFilter
	}

	return strings.NewReplacer(
		PlaceholderUsername, "*",
		PlaceholderUserDN, "*",
		PlaceholderUserUID, "*",
	).Replace(filter)
}
