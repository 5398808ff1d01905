package access

import (
	"testing"

	"github.com/latchwork/latchd/internal/config"
	"github.com/latchwork/latchd/internal/models"
)

func intPtr(v int) *int { return &v }

func TestAuthorityPolicy_Permits(t *testing.T) {
	tests := []struct {
		name      string
		authority *int
		minAuth   *int
		want      bool
	}{
		{"meets minimum", intPtr(2), intPtr(2), true},
		{"exceeds minimum", intPtr(3), intPtr(1), true},
		{"below minimum", intPtr(1), intPtr(2), false},
		{"nil authority fails closed", nil, intPtr(1), false},
		{"nil minimum fails closed", intPtr(3), nil, false},
		{"both nil fails closed", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group := models.UserGroup{Authority: tt.authority}
			lock := models.Lock{MinAuthority: tt.minAuth}
			if got := (AuthorityPolicy{}).Permits(group, lock); got != tt.want {
				t.Fatalf("Permits = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthorityPolicy_CanOverridePin(t *testing.T) {
	if (AuthorityPolicy{}).CanOverridePin(models.UserGroup{Authority: intPtr(2)}) {
		t.Fatalf("authority 2 must not override")
	}
	if !(AuthorityPolicy{}).CanOverridePin(models.UserGroup{Authority: intPtr(3)}) {
		t.Fatalf("authority 3 must override")
	}
	if (AuthorityPolicy{}).CanOverridePin(models.UserGroup{}) {
		t.Fatalf("nil authority must not override")
	}
}

func TestGroupPolicy_Permits(t *testing.T) {
	tests := []struct {
		name     string
		groupIDs models.LockGroupIDs
		lockIDs  models.LockGroupIDs
		want     bool
	}{
		{"shared id", models.LockGroupIDs{1, 2}, models.LockGroupIDs{2, 3}, true},
		{"disjoint", models.LockGroupIDs{1}, models.LockGroupIDs{2}, false},
		{"empty group", models.LockGroupIDs{}, models.LockGroupIDs{1}, false},
		{"empty lock", models.LockGroupIDs{1}, models.LockGroupIDs{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group := models.UserGroup{LockGroupIDs: tt.groupIDs}
			lock := models.Lock{LockGroupIDs: tt.lockIDs}
			if got := (GroupPolicy{}).Permits(group, lock); got != tt.want {
				t.Fatalf("Permits = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGroupPolicy_CanOverridePin(t *testing.T) {
	if (GroupPolicy{}).CanOverridePin(models.UserGroup{}) {
		t.Fatalf("override must be an explicit grant")
	}
	if !(GroupPolicy{}).CanOverridePin(models.UserGroup{OverridePin: true}) {
		t.Fatalf("granted group must override")
	}
}

func TestPolicyFor(t *testing.T) {
	if _, err := PolicyFor(config.PolicyAuthority); err != nil {
		t.Fatalf("authority mode: %v", err)
	}
	if _, err := PolicyFor(config.PolicyGroups); err != nil {
		t.Fatalf("groups mode: %v", err)
	}
	if _, err := PolicyFor(config.PolicyMode("bogus")); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
