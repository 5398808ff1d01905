package access

import (
	"fmt"

	"github.com/latchwork/latchd/internal/config"
	"github.com/latchwork/latchd/internal/models"
)

// overrideAuthority is the flat-policy tier allowed to override an
// engaged privacy pin.
const overrideAuthority = 3

// Policy answers whether a user group satisfies a lock's requirement.
//
// The two implementations mirror the two permission models the schema
// carries: a flat numeric authority comparison and a lock-group set
// intersection. A deployment runs exactly one of them, chosen at boot;
// they are never mixed per request.
type Policy interface {
	// Permits reports whether the group may operate the lock at all.
	Permits(group models.UserGroup, lock models.Lock) bool
	// CanOverridePin reports whether the group may re-engage the
	// physical privacy pin.
	CanOverridePin(group models.UserGroup) bool
}

// AuthorityPolicy compares the group's numeric authority against the
// lock's minimum. Missing values on either side fail closed.
type AuthorityPolicy struct{}

// Permits implements Policy.
func (AuthorityPolicy) Permits(group models.UserGroup, lock models.Lock) bool {
	if group.Authority == nil || lock.MinAuthority == nil {
		return false
	}
	return *group.Authority >= *lock.MinAuthority
}

// CanOverridePin implements Policy.
func (AuthorityPolicy) CanOverridePin(group models.UserGroup) bool {
	return group.Authority != nil && *group.Authority >= overrideAuthority
}

// GroupPolicy permits a group when it shares at least one lock group
// with the lock. Pin override is an explicit group privilege.
type GroupPolicy struct{}

// Permits implements Policy.
func (GroupPolicy) Permits(group models.UserGroup, lock models.Lock) bool {
	return group.LockGroupIDs.Intersects(lock.LockGroupIDs)
}

// CanOverridePin implements Policy.
func (GroupPolicy) CanOverridePin(group models.UserGroup) bool {
	return group.OverridePin
}

// PolicyFor returns the policy implementation for the configured mode.
func PolicyFor(mode config.PolicyMode) (Policy, error) {
	switch mode {
	case config.PolicyAuthority:
		return AuthorityPolicy{}, nil
	case config.PolicyGroups:
		return GroupPolicy{}, nil
	default:
		return nil, fmt.Errorf("access: unknown policy mode: %q", mode)
	}
}
