package access

import "context"

// Action identifies an authorization-relevant operation.
type Action string

const (
	// ActionEditAttendance covers editing an existing attendance record.
	ActionEditAttendance Action = "attendance.edit"
	// ActionRegisterAttendance covers registering a new attendance record.
	ActionRegisterAttendance Action = "attendance.register"
)

// Subject identifies the target of an action. The classroom is the one tied
// to the subject itself (the record's classroom for an edit, the selected
// classroom for a registration), never the organization at large.
type Subject struct {
	OrganizationID string
	ClassroomID    string
}

// DelegationOracle answers whether a tutor holds a delegated override for a
// specific classroom. The fact is never cached beyond a single evaluation;
// it can change between requests.
type DelegationOracle interface {
	TutorCanRegister(ctx context.Context, userID, organizationID, classroomID string) (bool, error)
}

// DelegationOracleFunc adapts a function to the DelegationOracle interface.
type DelegationOracleFunc func(ctx context.Context, userID, organizationID, classroomID string) (bool, error)

func (f DelegationOracleFunc) TutorCanRegister(ctx context.Context, userID, organizationID, classroomID string) (bool, error) {
	return f(ctx, userID, organizationID, classroomID)
}

// Evaluator answers fine-grained capability questions by combining the
// active role with per-classroom delegated permissions.
type Evaluator struct {
	oracle DelegationOracle
}

// NewEvaluator constructs an Evaluator over the delegation oracle.
func NewEvaluator(oracle DelegationOracle) *Evaluator {
	return &Evaluator{oracle: oracle}
}

// CanPerform decides whether the user, acting under the active role, may
// perform the action on the subject. Any unknown state (missing ids, an
// unreachable oracle) resolves to deny, never to allow-by-default.
//
// The role check runs first; the oracle is consulted only for tutors, so the
// common director/secretario path never pays for a remote call.
func (e *Evaluator) CanPerform(ctx context.Context, action Action, subject Subject, userID string, role Role) bool {
	switch action {
	case ActionEditAttendance, ActionRegisterAttendance:
	default:
		return false
	}

	switch role {
	case RoleDirector, RoleSecretario, RoleFacilitador:
		return true
	case RoleTutor:
		if e == nil || e.oracle == nil || userID == "" {
			return false
		}
		if subject.OrganizationID == "" || subject.ClassroomID == "" {
			return false
		}
		allowed, err := e.oracle.TutorCanRegister(ctx, userID, subject.OrganizationID, subject.ClassroomID)
		if err != nil {
			return false
		}
		return allowed
	}
	return false
}
