package expense

// AccessContext carries the relationship facts between an acting user and an
// expense. The service gathers these from the repository and injects them,
// keeping the guard predicates pure and unit-testable without a database.
type AccessContext struct {
	UserID int64

	IsPayer       bool
	IsParticipant bool // has a split on the expense

	// Group relationships; only meaningful when InGroup is true.
	InGroup        bool
	IsGroupMember  bool
	IsGroupAdmin   bool
	IsGroupCreator bool
}

// Guard decides which actor may perform which mutation on an expense or one
// of its splits. All predicates are side-effect free.
type Guard struct{}

// NewGuard creates a new access guard.
func NewGuard() *Guard {
	return &Guard{}
}

// reachable reports whether the user has any access-qualifying relationship
// to the expense: payer, split participant, or (for group expenses) group
// creator or member.
func reachable(ac AccessContext) bool {
	if ac.IsPayer || ac.IsParticipant {
		return true
	}
	return ac.InGroup && (ac.IsGroupCreator || ac.IsGroupMember)
}

// CanCreate checks that the creator of a group-scoped expense belongs to the
// group. Personal expenses may be created by anyone.
func (g *Guard) CanCreate(ac AccessContext) error {
	if ac.InGroup && !ac.IsGroupCreator && !ac.IsGroupMember {
		return deniedf("Access denied: You are not a member of this group")
	}
	return nil
}

// CanView checks read access to an expense.
func (g *Guard) CanView(ac AccessContext) error {
	if reachable(ac) {
		return nil
	}
	return deniedf("Access denied: You do not have permission to view this expense")
}

// CanUpdate checks update access; the reachability rule is identical to
// CanView.
func (g *Guard) CanUpdate(ac AccessContext) error {
	if reachable(ac) {
		return nil
	}
	return deniedf("Access denied: You do not have permission to update this expense")
}

// CanDelete is stricter: only the payer or a group admin (admin role or
// group creator) may delete. Plain membership or participation is not
// enough.
func (g *Guard) CanDelete(ac AccessContext) error {
	if ac.IsPayer {
		return nil
	}
	if ac.InGroup && (ac.IsGroupAdmin || ac.IsGroupCreator) {
		return nil
	}
	return deniedf("Access denied: Only the payer or group admin can delete this expense")
}

// CanSettle allows only the split's ower or the expense's payer to settle.
func (g *Guard) CanSettle(actorID, splitUserID, payerID int64) error {
	if actorID == splitUserID || actorID == payerID {
		return nil
	}
	return deniedf("Access denied: You can only settle your own splits or splits owed to you")
}

// CanUnsettle mirrors CanSettle; settlement is reversible so mistaken
// settlements can be corrected by the same actors.
func (g *Guard) CanUnsettle(actorID, splitUserID, payerID int64) error {
	if actorID == splitUserID || actorID == payerID {
		return nil
	}
	return deniedf("Access denied: You can only unsettle your own splits or splits owed to you")
}
