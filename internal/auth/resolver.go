package auth

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"github.com/ldapsso/ldapsso/internal/config"
	"github.com/ldapsso/ldapsso/internal/db/models"
	"github.com/ldapsso/ldapsso/internal/db/repository"
	"github.com/ldapsso/ldapsso/internal/directory"
	"github.com/ldapsso/ldapsso/internal/mapping"
)

// Resolution is the result of ResolveUserGroups.
type Resolution struct {
	// Groups are the local groups the user belongs to, in directory order.
	Groups []*models.Record
	// DirectoryGroups are the groups the directory returned for the user.
	DirectoryGroups []*directory.Entry
}

// GroupResolver maps the directory groups of a user onto local groups.
type GroupResolver struct {
	groups  *repository.Groups
	mapper  *mapping.Mapper
	cfg     config.Groups
	mapping mapping.Mapping
	policy  config.Policy
	// membership is the user attribute listing group DNs.
	membership string
	// locks serializes create-or-update per group DN across users.
	locks *keyedMutex
}

// NewGroupResolver creates a resolver writing to cfg.Groups.Table.
func NewGroupResolver(cfg *config.Config, groups *repository.Groups, mapper *mapping.Mapper) (*GroupResolver, error) {
	groupMapping, err := mapping.Parse(cfg.Groups.Mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to parse group mapping: %w", err)
	}

	userMapping, err := mapping.Parse(cfg.Users.Mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user mapping: %w", err)
	}

	return &GroupResolver{
		groups:     groups,
		mapper:     mapper,
		cfg:        cfg.Groups,
		mapping:    groupMapping,
		policy:     cfg.Policy,
		membership: userMapping.MembershipAttribute(),
		locks:      newKeyedMutex(),
	}, nil
}

// ResolveUserGroups returns the local groups of the directory user. Missing local
// groups are created and soft-deleted ones restored unless group synchronization
// is disabled. It fails with ErrRequiredGroupsMissing when required groups are
// configured and the user resolves into none of them.
func (r *GroupResolver) ResolveUserGroups(ctx context.Context, s directory.Searcher, user *directory.Entry) (*Resolution, error) {
	entries, err := r.directoryGroups(ctx, s, user)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read groups of %s: %w", ErrDirectoryUnavailable, user.DN, err)
	}

	res := &Resolution{DirectoryGroups: entries}

	if len(entries) == 0 {
		if len(r.policy.RequiredGroups) > 0 {
			return nil, ErrRequiredGroupsMissing
		}

		return res, nil
	}

	candidates, err := r.candidates(ctx, entries)
	if err != nil {
		return nil, err
	}

	if len(r.policy.RequiredGroups) > 0 && !slices.ContainsFunc(candidates, r.required) {
		return nil, ErrRequiredGroupsMissing
	}

	if r.policy.FailOnMissingLocalGroup && !slices.ContainsFunc(candidates, persisted) {
		log.Debug().Str("dn", user.DN).Msg("none of the directory groups exists locally")

		return res, nil
	}

	for i, candidate := range candidates {
		if r.policy.DoNotSynchronizeGroups {
			if persisted(candidate) {
				res.Groups = append(res.Groups, candidate)
			}

			continue
		}

		stored, err := r.reconcile(ctx, entries[i], candidate)
		if err != nil {
			return nil, err
		}

		res.Groups = append(res.Groups, stored)
	}

	return res, nil
}

// directoryGroups reads the groups with the configured strategy.
func (r *GroupResolver) directoryGroups(ctx context.Context, s directory.Searcher, user *directory.Entry) ([]*directory.Entry, error) {
	attributes := r.mapping.Attributes()

	if r.policy.EvaluateGroupsFromMembership {
		if r.membership == "" {
			return nil, nil
		}

		membership := user.Values(r.membership)
		if len(membership) == 0 {
			return nil, nil
		}

		return directory.SelectFromMembership(ctx, s, membership, r.cfg.BaseDN, r.cfg.Filter, attributes,
			!r.policy.DoNotSynchronizeGroups)
	}

	if r.cfg.BaseDN == "" {
		return nil, nil
	}

	return directory.SelectFromUser(ctx, s, r.cfg.BaseDN, r.cfg.Filter, user.DN, user.Value("uid"), attributes)
}

// candidates pairs every directory group with its first local match or a fresh record.
func (r *GroupResolver) candidates(ctx context.Context, entries []*directory.Entry) ([]*models.Record, error) {
	pid := r.mapping.ParentID()
	now := r.mapper.Now().Unix()
	candidates := make([]*models.Record, 0, len(entries))

	for _, entry := range entries {
		found, err := r.groups.Fetch(ctx, r.cfg.Table, repository.GroupQuery{ParentID: pid, DN: entry.DN})
		if err != nil {
			return nil, err
		}

		if len(found) > 0 {
			candidates = append(candidates, found[0])

			continue
		}

		group := r.groups.Create(r.cfg.Table)
		group.Set(models.ColumnParentID, pid)
		group.Set(models.ColumnDN, entry.DN)
		group.Set(models.ColumnCrdate, now)
		group.Set(models.ColumnTstamp, now)

		candidates = append(candidates, group)
	}

	return candidates, nil
}

// reconcile creates or restores the local group of entry and stores the merged
// attributes. A candidate that was missing is looked up again under the group
// lock, so concurrent syncs sharing a new group create one row.
func (r *GroupResolver) reconcile(ctx context.Context, entry *directory.Entry, candidate *models.Record) (*models.Record, error) {
	unlock, err := r.locks.Lock(ctx, r.cfg.Table+"|"+strings.ToLower(entry.DN))
	if err != nil {
		return nil, err
	}

	defer unlock()

	if !persisted(candidate) {
		found, errFetch := r.groups.Fetch(ctx, r.cfg.Table, repository.GroupQuery{
			ParentID: cast.ToUint64(candidate.Get(models.ColumnParentID)),
			DN:       entry.DN,
		})
		if errFetch != nil {
			return nil, errFetch
		}

		if len(found) > 0 {
			candidate = found[0]
		}
	}

	if persisted(candidate) {
		candidate.Set(models.ColumnDeleted, 0)
	} else {
		if candidate, err = r.groups.Add(ctx, r.cfg.Table, candidate); err != nil {
			return nil, err
		}

		log.Info().Str("dn", entry.DN).Uint64("id", candidate.ID()).Msg("created local group")
	}

	return r.store(ctx, entry, candidate)
}

// store merges the directory attributes into a persisted group and returns the stored row.
func (r *GroupResolver) store(ctx context.Context, entry *directory.Entry, group *models.Record) (*models.Record, error) {
	merged := r.mapper.Merge(entry, group, r.mapping)

	if err := r.groups.Update(ctx, r.cfg.Table, merged); err != nil {
		return nil, err
	}

	stored, err := r.groups.Fetch(ctx, r.cfg.Table, repository.GroupQuery{ID: merged.ID()})
	if err != nil {
		return nil, err
	}

	if len(stored) == 0 {
		return nil, fmt.Errorf("group %d: %w", merged.ID(), repository.ErrRecordNotFound)
	}

	return stored[0], nil
}

func (r *GroupResolver) required(group *models.Record) bool {
	return slices.Contains(r.policy.RequiredGroups, group.ID())
}

func persisted(r *models.Record) bool {
	return r.ID() > 0
}
