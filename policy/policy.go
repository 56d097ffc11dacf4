// Package policy centralizes role checks for mutating operations so that
// authorization is decided in one place instead of per-handler string
// comparisons.
package policy

import (
	"errors"
	"fmt"

	"retribusi/auth"
)

// ErrForbidden signals the actor's role does not permit the action.
var ErrForbidden = errors.New("policy: forbidden")

type Action string

const (
	ActionRecordPayment  Action = "payment.record"
	ActionUpdatePayment  Action = "payment.update"
	ActionResolveDispute Action = "dispute.resolve"
)

type rule struct {
	roles  map[auth.Role]bool
	denial string
}

var rules = map[Action]rule{
	ActionRecordPayment:  {roles: map[auth.Role]bool{auth.RoleAdmin: true}, denial: "not an admin"},
	ActionUpdatePayment:  {roles: map[auth.Role]bool{auth.RoleAdmin: true}, denial: "not an admin"},
	ActionResolveDispute: {roles: map[auth.Role]bool{auth.RoleAdmin: true}, denial: "not authorized to resolve disputes"},
}

// Authorize allows or denies an action for the given role. Denials wrap
// ErrForbidden with an action-specific message.
func Authorize(role auth.Role, action Action) error {
	r, ok := rules[action]
	if !ok {
		return fmt.Errorf("%w: unknown action %q", ErrForbidden, action)
	}
	if !r.roles[role] {
		return fmt.Errorf("%w: %s", ErrForbidden, r.denial)
	}
	return nil
}
