package authz

// AdministratorHandler grants any operation to schedule administrators
// without inspecting the resource.
type AdministratorHandler struct{}

// Evaluate implements Handler.
func (AdministratorHandler) Evaluate(p *Principal, op Operation, res *Resource) Vote {
	if p == nil {
		return VoteAbstain
	}
	if p.HasRole(RoleScheduleAdministrators) {
		return VoteSucceed
	}
	return VoteAbstain
}

// ManagerHandler grants Approve and Reject to schedule managers. Managers may
// approve or reject any schedule regardless of ownership; every other
// operation is abstained from.
type ManagerHandler struct{}

// Evaluate implements Handler.
func (ManagerHandler) Evaluate(p *Principal, op Operation, res *Resource) Vote {
	if p == nil || res == nil {
		return VoteAbstain
	}
	if op != OpApprove && op != OpReject {
		return VoteAbstain
	}
	if p.HasRole(RoleScheduleManagers) {
		return VoteSucceed
	}
	return VoteAbstain
}

// OwnerHandler grants Create, Read, Update and Delete when the resource is
// owned by the acting principal. For drafts the resource snapshot carries the
// prospective owner.
//
// Note that no handler grants AssignOwner or AssignStatus to non-admins: a
// caller can never reassign an owner or set a non-default status without
// administrator authority. That tamper guard is intentional.
type OwnerHandler struct{}

// Evaluate implements Handler.
func (OwnerHandler) Evaluate(p *Principal, op Operation, res *Resource) Vote {
	if p == nil || res == nil {
		return VoteAbstain
	}
	switch op {
	case OpCreate, OpRead, OpUpdate, OpDelete:
	default:
		return VoteAbstain
	}
	if res.OwnerID == p.ID {
		return VoteSucceed
	}
	return VoteAbstain
}

// DefaultHandlers returns the production policy set in registration order.
func DefaultHandlers() []Handler {
	return []Handler{
		AdministratorHandler{},
		ManagerHandler{},
		OwnerHandler{},
	}
}
