package repository

import (
	"context"
	"fmt"
	"slices"

	"github.com/ldapsso/ldapsso/internal/config"
	"github.com/ldapsso/ldapsso/internal/db/models"
)

// MembershipHook may veto an assignment by returning an error.
type MembershipHook func(ctx context.Context, groups []*models.Record, user *models.Record) error

// MembershipAssigner writes resolved group memberships into a user record.
type MembershipAssigner struct {
	groups      *Groups
	groupTable  string
	assign      []uint64
	keepLocal   bool
	adminGroups []uint64
	hook        MembershipHook
}

// NewMembershipAssigner creates an assigner for users whose groups live in groupTable.
func NewMembershipAssigner(groups *Groups, groupTable string, policy config.Policy, hook MembershipHook) *MembershipAssigner {
	return &MembershipAssigner{
		groups:      groups,
		groupTable:  groupTable,
		assign:      policy.AssignGroups,
		keepLocal:   policy.KeepLocalGroups,
		adminGroups: policy.AdminGroups,
		hook:        hook,
	}
}

// Assign sets the usergroup column of user to the persisted groups plus the always
// assigned ones. Memberships of groups without DN survive when local groups are kept.
// The returned record is a modified copy.
func (a *MembershipAssigner) Assign(ctx context.Context, groups []*models.Record, user *models.Record) (*models.Record, error) {
	ids := make([]uint64, 0, len(groups)+len(a.assign))

	add := func(id uint64) {
		if id > 0 && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	for _, g := range groups {
		add(g.ID())
	}

	for _, id := range a.assign {
		add(id)
	}

	if a.keepLocal {
		current, err := a.groups.FetchIDs(ctx, a.groupTable, ParseIDs(user.String(models.ColumnUserGroup)))
		if err != nil {
			return nil, err
		}

		for _, g := range current {
			if g.String(models.ColumnDN) == "" {
				add(g.ID())
			}
		}
	}

	out := user.Clone()
	out.Set(models.ColumnUserGroup, JoinIDs(ids))

	if len(a.adminGroups) > 0 && out.Has(models.ColumnAdmin) {
		admin := 0
		if slices.ContainsFunc(ids, func(id uint64) bool { return slices.Contains(a.adminGroups, id) }) {
			admin = 1
		}

		out.Set(models.ColumnAdmin, admin)
	}

	if a.hook != nil {
		if err := a.hook(ctx, groups, out); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMembershipRejected, err)
		}
	}

	return out, nil
}
