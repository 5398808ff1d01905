package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	dbutil "github.com/latchwork/latchd/internal/db"
	"github.com/latchwork/latchd/internal/models"
	"gorm.io/gorm"
)

// errOutOfScope marks an operator touching a non-guest record.
var errOutOfScope = errors.New("record outside operator scope")

// operatorRestricted reports whether the caller is scoped to the guest
// group. Admins are never restricted.
func operatorRestricted(c *gin.Context) bool {
	return c.GetString("adminRole") == string(models.RoleOperator)
}

// requireGuestGroup verifies the group is the seeded guest group when
// the caller is an operator. Admins pass unconditionally.
func requireGuestGroup(c *gin.Context, tx *gorm.DB, groupID uint64) error {
	if !operatorRestricted(c) {
		return nil
	}
	var group models.UserGroup
	if errFind := tx.First(&group, groupID).Error; errFind != nil {
		return errFind
	}
	if group.Name != dbutil.GuestGroupName {
		return errOutOfScope
	}
	return nil
}
