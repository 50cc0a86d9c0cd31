package expense

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuard_CanCreate(t *testing.T) {
	g := NewGuard()

	tests := []struct {
		name    string
		ac      AccessContext
		wantErr string
	}{
		{
			name: "personal expense needs no group relationship",
			ac:   AccessContext{UserID: 1},
		},
		{
			name: "group member may create",
			ac:   AccessContext{UserID: 1, InGroup: true, IsGroupMember: true},
		},
		{
			name: "group creator may create",
			ac:   AccessContext{UserID: 1, InGroup: true, IsGroupCreator: true},
		},
		{
			name:    "outsider may not create in a group",
			ac:      AccessContext{UserID: 1, InGroup: true},
			wantErr: "Access denied: You are not a member of this group",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.CanCreate(tt.ac)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}

func TestGuard_ViewAndUpdateShareReachability(t *testing.T) {
	g := NewGuard()

	reachable := []AccessContext{
		{IsPayer: true},
		{IsParticipant: true},
		{InGroup: true, IsGroupMember: true},
		{InGroup: true, IsGroupCreator: true},
	}
	for _, ac := range reachable {
		assert.NoError(t, g.CanView(ac))
		assert.NoError(t, g.CanUpdate(ac))
	}

	stranger := AccessContext{UserID: 99}
	assert.EqualError(t, g.CanView(stranger),
		"Access denied: You do not have permission to view this expense")
	assert.EqualError(t, g.CanUpdate(stranger),
		"Access denied: You do not have permission to update this expense")

	// Member of some group, but the expense is personal.
	nonGroup := AccessContext{IsGroupMember: true}
	assert.Error(t, g.CanView(nonGroup))
}

func TestGuard_CanDelete(t *testing.T) {
	g := NewGuard()

	assert.NoError(t, g.CanDelete(AccessContext{IsPayer: true}))
	assert.NoError(t, g.CanDelete(AccessContext{InGroup: true, IsGroupAdmin: true}))
	assert.NoError(t, g.CanDelete(AccessContext{InGroup: true, IsGroupCreator: true}))

	// Plain membership or participation is not enough.
	member := AccessContext{InGroup: true, IsGroupMember: true, IsParticipant: true}
	err := g.CanDelete(member)
	assert.EqualError(t, err,
		"Access denied: Only the payer or group admin can delete this expense")

	var accessErr *AccessError
	assert.ErrorAs(t, err, &accessErr)
}

func TestGuard_SettlementActors(t *testing.T) {
	g := NewGuard()

	const (
		ower  = int64(2)
		payer = int64(1)
		other = int64(3)
	)

	// The ower can settle and immediately unsettle again.
	assert.NoError(t, g.CanSettle(ower, ower, payer))
	assert.NoError(t, g.CanUnsettle(ower, ower, payer))

	// The payer can toggle splits owed to them.
	assert.NoError(t, g.CanSettle(payer, ower, payer))
	assert.NoError(t, g.CanUnsettle(payer, ower, payer))

	assert.EqualError(t, g.CanSettle(other, ower, payer),
		"Access denied: You can only settle your own splits or splits owed to you")
	assert.EqualError(t, g.CanUnsettle(other, ower, payer),
		"Access denied: You can only unsettle your own splits or splits owed to you")
}
