package authz

// Role names recognised by the scheduling policy.
const (
	RoleScheduleAdministrators = "ScheduleAdministrators"
	RoleScheduleManagers       = "ScheduleManagers"
)

// Operation is a named action subject to authorization against a schedule.
type Operation string

// The closed catalog of authorizable operations. Any operation outside this
// set is denied by construction: no handler recognises it.
const (
	OpCreate       Operation = "Create"
	OpRead         Operation = "Read"
	OpUpdate       Operation = "Update"
	OpDelete       Operation = "Delete"
	OpApprove      Operation = "Approve"
	OpReject       Operation = "Reject"
	OpAssignOwner  Operation = "AssignOwner"
	OpAssignStatus Operation = "AssignStatus"
)

// Operations returns the full operation catalog in declaration order.
func Operations() []Operation {
	return []Operation{
		OpCreate,
		OpRead,
		OpUpdate,
		OpDelete,
		OpApprove,
		OpReject,
		OpAssignOwner,
		OpAssignStatus,
	}
}

// Valid reports whether op belongs to the operation catalog.
func (op Operation) Valid() bool {
	switch op {
	case OpCreate, OpRead, OpUpdate, OpDelete, OpApprove, OpReject, OpAssignOwner, OpAssignStatus:
		return true
	}
	return false
}

// Principal describes the authenticated actor. It is immutable for the
// duration of a request.
type Principal struct {
	ID    string
	Roles []string
}

// HasRole reports whether the principal carries the named role.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Privileged reports whether the principal holds a role that sees every
// schedule regardless of ownership.
func (p *Principal) Privileged() bool {
	return p.HasRole(RoleScheduleAdministrators) || p.HasRole(RoleScheduleManagers)
}

// Resource is the snapshot of the protected record a handler evaluates
// against. A nil Resource means the operation targets no concrete record.
// For a not-yet-persisted draft the snapshot carries the prospective owner.
type Resource struct {
	ID      int64
	OwnerID string
}

// Vote is the outcome of a single handler evaluation. Handlers never veto:
// absence of any succeed vote is the aggregate denial.
type Vote int

const (
	// VoteAbstain means the handler has no opinion on the request.
	VoteAbstain Vote = iota
	// VoteSucceed means the handler grants the operation.
	VoteSucceed
)

// Handler is a stateless policy unit evaluating one authorization concern.
// Implementations must be pure functions of their inputs, safe to run in any
// order, and must not mutate principal or resource.
type Handler interface {
	Evaluate(p *Principal, op Operation, res *Resource) Vote
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(p *Principal, op Operation, res *Resource) Vote

// Evaluate calls fn.
func (fn HandlerFunc) Evaluate(p *Principal, op Operation, res *Resource) Vote {
	return fn(p, op, res)
}
