package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ldapsso/ldapsso/internal/config"
	"github.com/ldapsso/ldapsso/internal/db/models"
	"github.com/ldapsso/ldapsso/internal/db/repository"
	"github.com/ldapsso/ldapsso/internal/directory"
	"github.com/ldapsso/ldapsso/internal/mapping"
)

const (
	userBase  = "ou=people,dc=example"
	groupBase = "ou=groups,dc=example"
	jdoeDN    = "uid=jdoe,ou=people,dc=example"
	adminsDN  = "cn=admins,ou=groups,dc=example"
	staffDN   = "cn=staff,ou=groups,dc=example"
)

var testNow = time.Unix(1700000000, 0) //nolint:gochecknoglobals

// fakeDirectory is an in-memory directory serving users below userBase and
// groups below groupBase. Group membership is stored in the member attribute.
type fakeDirectory struct {
	mu        sync.Mutex
	users     []*directory.Entry
	groups    []*directory.Entry
	passwords map[string]string // uid -> password
	openErr   error
	opened    atomic.Int32
	closed    atomic.Int32
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{passwords: map[string]string{}}
}

func (d *fakeDirectory) addUser(uid, password string, attributes map[string][]string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	dn := fmt.Sprintf("uid=%s,%s", uid, userBase)

	if attributes == nil {
		attributes = map[string][]string{}
	}

	attributes["uid"] = []string{uid}

	d.users = append(d.users, directory.NewEntry(dn, attributes))
	d.passwords[uid] = password

	return dn
}

func (d *fakeDirectory) addGroup(dn string, attributes map[string][]string, members ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if attributes == nil {
		attributes = map[string][]string{}
	}

	attributes["member"] = members

	d.groups = append(d.groups, directory.NewEntry(dn, attributes))
}

func (d *fakeDirectory) Open(ctx context.Context) (directory.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if d.openErr != nil {
		return nil, d.openErr
	}

	d.opened.Add(1)

	return &fakeSession{dir: d}, nil
}

type fakeSession struct {
	dir        *fakeDirectory
	diagnostic string
	closed     bool
	searches   []string
}

func (s *fakeSession) Bind(_ context.Context, username, password, baseDN, filter string) (directory.BindResult, error) {
	s.diagnostic = ""

	if password == "" {
		s.diagnostic = directory.DiagnosticEmptyPassword

		return directory.BindResult{}, directory.ErrInvalidCredentials
	}

	if filter == "" {
		return directory.BindResult{PassThrough: true}, nil
	}

	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()

	for _, u := range s.dir.users {
		if u.Value("uid") != username || !directory.InBase(u.DN, baseDN) {
			continue
		}

		if s.dir.passwords[username] != password {
			s.diagnostic = "Invalid credentials"

			return directory.BindResult{}, fmt.Errorf("%w: bad password", directory.ErrInvalidCredentials)
		}

		return directory.BindResult{DN: u.DN}, nil
	}

	s.diagnostic = directory.DiagnosticUserNotFound

	return directory.BindResult{}, directory.ErrInvalidCredentials
}

func (s *fakeSession) Search(_ context.Context, baseDN, filter string, _ []string) ([]*directory.Entry, error) {
	if s.closed {
		return nil, directory.ErrSessionClosed
	}

	s.searches = append(s.searches, baseDN)

	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()

	for _, e := range append(append([]*directory.Entry{}, s.dir.users...), s.dir.groups...) {
		if strings.EqualFold(e.DN, baseDN) {
			return []*directory.Entry{e}, nil
		}
	}

	switch baseDN {
	case userBase:
		users := append([]*directory.Entry{}, s.dir.users...)
		sort.Slice(users, func(i, j int) bool { return users[i].DN < users[j].DN })

		return users, nil
	case groupBase:
		var found []*directory.Entry

		for _, g := range s.dir.groups {
			for _, member := range g.Values("member") {
				if strings.Contains(filter, "(member="+member+")") {
					found = append(found, g)

					break
				}
			}
		}

		return found, nil
	}

	return nil, nil
}

func (s *fakeSession) LastBindDiagnostic() string {
	return s.diagnostic
}

func (s *fakeSession) Close() error {
	if s.closed {
		return errors.New("closed twice")
	}

	s.closed = true
	s.dir.closed.Add(1)

	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Users: config.Users{
			Table:  "users",
			BaseDN: userBase,
			Filter: "(&(objectClass=inetOrgPerson)(uid={USERNAME}))",
			Mapping: `
				pid       = 0
				dn        = <dn>
				name      = <cn>
				email     = <mail>
				tstamp    = {DATE}
				usergroup = <memberOf>
				phone     = <telephoneNumber>
			`,
		},
		Groups: config.Groups{
			Table:  "groups",
			BaseDN: groupBase,
			Filter: "(&(objectClass=groupOfNames)(member={USERDN}))",
			Mapping: `
				pid         = 0
				dn          = <dn>
				title       = <cn>
				description = <description>
				tstamp      = {DATE}
			`,
		},
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, repository.Migrate(db, []string{"users"}, []string{"groups"}))

	return db
}

type testEnv struct {
	cfg  *config.Config
	db   *gorm.DB
	dir  *fakeDirectory
	auth *Authenticator
}

func newTestEnv(t *testing.T, cfg *config.Config, dir *fakeDirectory, opts ...Option) *testEnv {
	t.Helper()

	db := setupTestDB(t)

	mapper := mapping.NewMapper(
		mapping.WithClock(func() time.Time { return testNow }),
		mapping.WithRandom(func() int64 { return 4 }),
	)

	a, err := New(cfg, db, dir, append([]Option{WithMapper(mapper)}, opts...)...)
	require.NoError(t, err)

	return &testEnv{cfg: cfg, db: db, dir: dir, auth: a}
}

func (e *testEnv) seedUsers(t *testing.T, users ...models.User) {
	t.Helper()

	for _, u := range users {
		require.NoError(t, e.db.Table("users").Create(&u).Error)
	}
}

func (e *testEnv) seedGroups(t *testing.T, groups ...models.Group) {
	t.Helper()

	for _, g := range groups {
		require.NoError(t, e.db.Table("groups").Create(&g).Error)
	}
}

func (e *testEnv) storedUsers(t *testing.T) []models.User {
	t.Helper()

	var users []models.User
	require.NoError(t, e.db.Table("users").Order("id").Find(&users).Error)

	return users
}

func (e *testEnv) storedGroups(t *testing.T) []models.Group {
	t.Helper()

	var groups []models.Group
	require.NoError(t, e.db.Table("groups").Order("id").Find(&groups).Error)

	return groups
}
