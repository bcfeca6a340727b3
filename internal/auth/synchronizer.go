package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"github.com/ldapsso/ldapsso/internal/config"
	"github.com/ldapsso/ldapsso/internal/db/models"
	"github.com/ldapsso/ldapsso/internal/db/repository"
	"github.com/ldapsso/ldapsso/internal/directory"
	"github.com/ldapsso/ldapsso/internal/mapping"
)

// UserSynchronizer creates and updates local users from directory entries.
type UserSynchronizer struct {
	users    *repository.Users
	resolver *GroupResolver
	assigner *repository.MembershipAssigner
	mapper   *mapping.Mapper
	cfg      config.Users
	mapping  mapping.Mapping
	policy   config.Policy
	locks    *keyedMutex
}

// NewUserSynchronizer creates a synchronizer writing to cfg.Users.Table.
func NewUserSynchronizer(
	cfg *config.Config,
	users *repository.Users,
	resolver *GroupResolver,
	assigner *repository.MembershipAssigner,
	mapper *mapping.Mapper,
) (*UserSynchronizer, error) {
	userMapping, err := mapping.Parse(cfg.Users.Mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user mapping: %w", err)
	}

	return &UserSynchronizer{
		users:    users,
		resolver: resolver,
		assigner: assigner,
		mapper:   mapper,
		cfg:      cfg.Users,
		mapping:  userMapping,
		policy:   cfg.Policy,
		locks:    newKeyedMutex(),
	}, nil
}

// Synchronize reconciles the directory user userDN with the local user table and
// returns the stored record tagged with models.OriginDirectory.
//
// entry is read from the directory when nil, username is taken from the entry
// when empty. Calls for the same DN are serialized.
func (s *UserSynchronizer) Synchronize(
	ctx context.Context,
	session directory.Searcher,
	userDN, username string,
	entry *directory.Entry,
) (*models.Record, error) {
	unlock, err := s.locks.Lock(ctx, strings.ToLower(userDN))
	if err != nil {
		return nil, err
	}

	defer unlock()

	if entry == nil {
		if entry, err = s.readEntry(ctx, session, userDN); err != nil {
			return nil, err
		}
	}

	if username == "" {
		username = entry.Value(directory.UsernameAttribute(s.cfg.Filter))
	}

	user, err := s.localUser(ctx, username, userDN)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, fmt.Errorf("%w: no active local user %q", ErrUserNotPermitted, username)
	}

	res, err := s.resolver.ResolveUserGroups(ctx, session, entry)
	if err != nil {
		return nil, err
	}

	if s.policy.OnlyExistingUsers && !persisted(user) {
		return nil, fmt.Errorf("%w: no local user %q", ErrUserNotPermitted, username)
	}

	if !persisted(user) && (len(res.Groups) > 0 || !s.policy.DeleteUserIfNoLocalGroups) {
		if user, err = s.create(ctx, user); err != nil {
			return nil, err
		}
	}

	if !persisted(user) {
		return nil, fmt.Errorf("%w: %q belongs to no local group", ErrUserNotPermitted, username)
	}

	now := s.mapper.Now().Unix()

	user.Set(models.ColumnDeleted, 0)
	user.Set(models.ColumnEndTime, 0)
	user.Set(models.ColumnPassword, repository.RandomPassword())

	switch {
	case len(res.Groups) == 0 && s.policy.DeleteUserIfNoLocalGroups:
		softDelete(user, now)
	case len(res.DirectoryGroups) == 0 && s.policy.DeleteUserIfNoDirectoryGroups:
		softDelete(user, now)
	}

	user, err = s.assigner.Assign(ctx, res.Groups, user)
	if err != nil {
		return nil, err
	}

	user = s.mapper.Merge(entry, user, s.mapping)

	if s.policy.ForceLowerCaseUsername {
		user.Set(models.ColumnUsername, strings.ToLower(user.String(models.ColumnUsername)))
	}

	if err = s.users.Update(ctx, s.cfg.Table, user); err != nil {
		return nil, err
	}

	user.Origin = models.OriginDirectory

	log.Debug().
		Str("dn", userDN).
		Uint64("id", user.ID()).
		Bool("deleted", user.Deleted()).
		Str("usergroup", user.String(models.ColumnUserGroup)).
		Msg("synchronized user")

	return user, nil
}

func (s *UserSynchronizer) readEntry(ctx context.Context, session directory.Searcher, userDN string) (*directory.Entry, error) {
	entries, err := session.Search(ctx, userDN, directory.WildcardFilter(s.cfg.Filter), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrDirectoryUnavailable, userDN, err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userDN)
	}

	return entries[0], nil
}

// localUser returns the first local match, a fresh record if none exists, or
// nil when only existing active users are allowed and there is none.
func (s *UserSynchronizer) localUser(ctx context.Context, username, userDN string) (*models.Record, error) {
	pid := s.mapping.ParentID()

	found, err := s.users.Fetch(ctx, s.cfg.Table, repository.UserQuery{
		ParentID: pid,
		Username: username,
		DN:       userDN,
	})
	if err != nil {
		return nil, err
	}

	if s.policy.OnlyExistingUsers {
		active := found[:0]

		for _, u := range found {
			if !u.Deleted() {
				active = append(active, u)
			}
		}

		found = active
	}

	if len(found) > 0 {
		if len(found) > 1 {
			log.Warn().Str("dn", userDN).Int("matches", len(found)).Msg("duplicate local users, using the first")
		}

		return found[0], nil
	}

	if s.policy.OnlyExistingUsers {
		return nil, nil
	}

	now := s.mapper.Now().Unix()

	user := s.users.Create(s.cfg.Table)
	user.Set(models.ColumnParentID, pid)
	user.Set(models.ColumnCrdate, now)
	user.Set(models.ColumnTstamp, now)
	user.Set(models.ColumnUsername, username)
	user.Set(models.ColumnDN, userDN)

	return user, nil
}

// create fills unset columns with their schema defaults and inserts the user.
func (s *UserSynchronizer) create(ctx context.Context, user *models.Record) (*models.Record, error) {
	defaults, err := s.users.Defaults()
	if err != nil {
		return nil, err
	}

	for column, value := range defaults {
		if user.Has(column) && isZero(user.Get(column)) {
			user.Set(column, value)
		}
	}

	user.Set(models.ColumnUsername, repository.NormalizeUsername(user.String(models.ColumnUsername)))

	added, err := s.users.Add(ctx, s.cfg.Table, user)
	if err != nil {
		return nil, err
	}

	log.Info().Str("username", added.String(models.ColumnUsername)).Uint64("id", added.ID()).Msg("created local user")

	return added, nil
}

// ImportFailure is a directory user that could not be synchronized.
type ImportFailure struct {
	DN  string
	Err error
}

// ImportReport summarizes ImportUsers.
type ImportReport struct {
	Synchronized int
	Failures     []ImportFailure
}

// ImportUsers synchronizes every directory user below the user base DN. Failing
// users are reported and skipped. The import stops when ctx is done.
func (s *UserSynchronizer) ImportUsers(ctx context.Context, session directory.Searcher) (*ImportReport, error) {
	entries, err := session.Search(ctx, s.cfg.BaseDN, directory.WildcardFilter(s.cfg.Filter), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list users: %w", ErrDirectoryUnavailable, err)
	}

	report := &ImportReport{}

	for _, entry := range entries {
		if err = ctx.Err(); err != nil {
			return report, err //nolint:wrapcheck
		}

		if _, err = s.Synchronize(ctx, session, entry.DN, "", entry); err != nil {
			log.Warn().Err(err).Str("dn", entry.DN).Msg("failed to import user")
			report.Failures = append(report.Failures, ImportFailure{DN: entry.DN, Err: err})

			continue
		}

		report.Synchronized++
	}

	return report, nil
}

func softDelete(user *models.Record, now int64) {
	user.Set(models.ColumnDeleted, 1)
	user.Set(models.ColumnEndTime, now)
}

func isZero(v any) bool {
	s := cast.ToString(v)

	return s == "" || s == "0"
}
