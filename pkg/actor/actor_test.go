package actor

import (
	"context"
	"testing"

	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/permissions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActor_Require(t *testing.T) {
	staff := &Actor{ID: "u1", Role: permissions.RoleStaff, PharmacyAccess: []string{"PHARM01"}}

	assert.NoError(t, staff.Require(permissions.UsageCreate))

	err := staff.Require(permissions.UsageDelete)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	var nobody *Actor
	assert.False(t, nobody.Can(permissions.InventoryRead))
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	a := &Actor{ID: "u2", Role: permissions.RoleViewer}
	ctx := WithActor(context.Background(), a)
	assert.Same(t, a, FromContext(ctx))
}

func TestSystemActor(t *testing.T) {
	sys := SystemActor([]string{"PHARM01", "PHARM02"})

	assert.Equal(t, SystemID, sys.ID)
	assert.True(t, sys.Can(permissions.InventoryAdmin))
	assert.Equal(t, []string{"PHARM01", "PHARM02"}, sys.PharmacyAccess)
}
