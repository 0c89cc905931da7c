package lifecycle

import (
	"fmt"
	"strings"

	"github.com/manujcode/lose-and-found/internal/model"
)

// Action names a moderation operation.
type Action string

// Lost item actions.
const (
	ActionEnable        Action = "enable"
	ActionDisable       Action = "disable"
	ActionMarkRecovered Action = "mark_recovered"
)

// Found item actions.
const (
	ActionToggleGuardReceived  Action = "toggle_guard_received"
	ActionMarkOwnerReceived    Action = "mark_owner_received"
	ActionReverseOwnerReceived Action = "reverse_owner_received"
	ActionToggleDisabled       Action = "toggle_disabled"
)

// Rejection codes.
const (
	CodeReasonRequired     = "reason_required"
	CodePreconditionFailed = "precondition_failed"
	CodeForbidden          = "forbidden"
	CodeUnknownAction      = "unknown_action"
	CodeWrongKind          = "wrong_kind"
)

// Rejection is returned when an action cannot be planned. No store call
// should follow a rejection.
type Rejection struct {
	Code    string
	Action  Action
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Action, r.Message)
}

func reject(code string, a Action, format string, args ...any) error {
	return &Rejection{Code: code, Action: a, Message: fmt.Sprintf(format, args...)}
}

// Patch is a partial field update. Nil fields are left untouched.
type Patch struct {
	Disabled        *bool   `json:"disabled,omitempty"`
	DisabledReason  *string `json:"disabled_reason,omitempty"`
	Requested       *bool   `json:"requested,omitempty"`
	RequestedReason *string `json:"requested_reason,omitempty"`
	GuardReceived   *bool   `json:"guard_received,omitempty"`
	OwnerReceived   *bool   `json:"owner_received,omitempty"`
	GuardRemarks    *string `json:"guard_remarks,omitempty"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

// Plan is the outcome of a permitted action.
type Plan struct {
	Action  Action `json:"action"`
	Patch   Patch  `json:"patch"`
	Message string `json:"message"`
}

type lostRule struct {
	permitted    func(model.Actor, *model.LostItem) bool
	needsReason  bool
	precondition func(*model.LostItem) error
	patch        func(*model.LostItem, string) (Patch, string)
}

type foundRule struct {
	needsReason  bool
	precondition func(*model.FoundItem) error
	patch        func(*model.FoundItem, string) (Patch, string)
}

func ownerOrAdmin(a model.Actor, it *model.LostItem) bool {
	return a.Roles.Admin || a.Owns(&it.Listing)
}

func authenticated(a model.Actor, _ *model.LostItem) bool {
	return a.Email != ""
}

var lostRules = map[Action]lostRule{
	ActionEnable: {
		permitted: ownerOrAdmin,
		precondition: func(it *model.LostItem) error {
			if !it.Disabled {
				return reject(CodePreconditionFailed, ActionEnable, "item is not disabled")
			}
			return nil
		},
		patch: func(_ *model.LostItem, _ string) (Patch, string) {
			return Patch{Disabled: ptr(false), DisabledReason: ptr("")}, "Item enabled successfully!"
		},
	},
	ActionDisable: {
		permitted:   ownerOrAdmin,
		needsReason: true,
		precondition: func(it *model.LostItem) error {
			if it.Disabled {
				return reject(CodePreconditionFailed, ActionDisable, "item is already disabled")
			}
			return nil
		},
		patch: func(_ *model.LostItem, reason string) (Patch, string) {
			return Patch{Disabled: ptr(true), DisabledReason: ptr(reason)}, "Item disabled successfully!"
		},
	},
	ActionMarkRecovered: {
		permitted:   authenticated,
		needsReason: true,
		patch: func(_ *model.LostItem, reason string) (Patch, string) {
			return Patch{Requested: ptr(true), RequestedReason: ptr(reason)}, "Item marked as delivered successfully!"
		},
	},
}

var foundRules = map[Action]foundRule{
	ActionToggleGuardReceived: {
		patch: func(it *model.FoundItem, _ string) (Patch, string) {
			next := !it.GuardReceived
			if next {
				return Patch{GuardReceived: ptr(true)}, "Item marked as stored by security!"
			}
			return Patch{GuardReceived: ptr(false)}, "Item storage status removed!"
		},
	},
	ActionMarkOwnerReceived: {
		needsReason: true,
		precondition: func(it *model.FoundItem) error {
			if !it.GuardReceived {
				return reject(CodePreconditionFailed, ActionMarkOwnerReceived, "item has not been received by security")
			}
			if it.OwnerReceived {
				return reject(CodePreconditionFailed, ActionMarkOwnerReceived, "item is already marked as received by its owner")
			}
			return nil
		},
		patch: func(_ *model.FoundItem, reason string) (Patch, string) {
			return Patch{OwnerReceived: ptr(true), GuardRemarks: ptr(reason)}, "Item marked as received by owner successfully!"
		},
	},
	ActionReverseOwnerReceived: {
		needsReason: true,
		precondition: func(it *model.FoundItem) error {
			if !it.OwnerReceived {
				return reject(CodePreconditionFailed, ActionReverseOwnerReceived, "item is not marked as received by its owner")
			}
			return nil
		},
		patch: func(_ *model.FoundItem, reason string) (Patch, string) {
			return Patch{OwnerReceived: ptr(false), GuardRemarks: ptr(reason)}, "Owner receipt status reversed successfully!"
		},
	},
	ActionToggleDisabled: {
		precondition: func(it *model.FoundItem) error {
			if FoundDisabled(it) {
				return nil
			}
			if !it.OwnerReceived || !it.GuardReceived {
				return reject(CodePreconditionFailed, ActionToggleDisabled, "only items returned to their owner can be disabled")
			}
			return nil
		},
		patch: func(it *model.FoundItem, _ string) (Patch, string) {
			if FoundDisabled(it) {
				p := Patch{Disabled: ptr(false)}
				// Enabling also clears the legacy inactive flag.
				if it.IsActive != nil && !*it.IsActive {
					p.IsActive = ptr(true)
				}
				return p, "Item enabled successfully!"
			}
			return Patch{Disabled: ptr(true)}, "Item disabled successfully!"
		},
	},
}

// PlanLost validates action against a lost item and the actor, returning the
// patch to apply. Role, reason and precondition checks happen in that order.
func PlanLost(it *model.LostItem, actor model.Actor, action Action, reason string) (*Plan, error) {
	rule, ok := lostRules[action]
	if !ok {
		if _, found := foundRules[action]; found {
			return nil, reject(CodeWrongKind, action, "only applies to found items")
		}
		return nil, reject(CodeUnknownAction, action, "not a lost item action")
	}
	if !rule.permitted(actor, it) {
		return nil, reject(CodeForbidden, action, "not allowed for this item")
	}
	reason = strings.TrimSpace(reason)
	if rule.needsReason && reason == "" {
		return nil, reject(CodeReasonRequired, action, "a reason is required")
	}
	if rule.precondition != nil {
		if err := rule.precondition(it); err != nil {
			return nil, err
		}
	}
	p, msg := rule.patch(it, reason)
	return &Plan{Action: action, Patch: p, Message: msg}, nil
}

// PlanFound validates action against a found item. All found item actions
// require the security guard role.
func PlanFound(it *model.FoundItem, actor model.Actor, action Action, reason string) (*Plan, error) {
	rule, ok := foundRules[action]
	if !ok {
		if _, lost := lostRules[action]; lost {
			return nil, reject(CodeWrongKind, action, "only applies to lost items")
		}
		return nil, reject(CodeUnknownAction, action, "not a found item action")
	}
	if !actor.Roles.Guard {
		return nil, reject(CodeForbidden, action, "security guard role required")
	}
	reason = strings.TrimSpace(reason)
	if rule.needsReason && reason == "" {
		return nil, reject(CodeReasonRequired, action, "a reason is required")
	}
	if rule.precondition != nil {
		if err := rule.precondition(it); err != nil {
			return nil, err
		}
	}
	p, msg := rule.patch(it, reason)
	return &Plan{Action: action, Patch: p, Message: msg}, nil
}

// AllowedLost lists the actions the actor could plan right now. Reasons are
// assumed to be supplied.
func AllowedLost(it *model.LostItem, actor model.Actor) []Action {
	var out []Action
	for _, a := range []Action{ActionEnable, ActionDisable, ActionMarkRecovered} {
		if _, err := PlanLost(it, actor, a, "-"); err == nil {
			out = append(out, a)
		}
	}
	return out
}

// AllowedFound lists the found item actions the actor could plan right now.
func AllowedFound(it *model.FoundItem, actor model.Actor) []Action {
	var out []Action
	for _, a := range []Action{ActionToggleGuardReceived, ActionMarkOwnerReceived, ActionReverseOwnerReceived, ActionToggleDisabled} {
		if _, err := PlanFound(it, actor, a, "-"); err == nil {
			out = append(out, a)
		}
	}
	return out
}

// ApplyLost writes the patch into it and refreshes the derived stage.
func (p Patch) ApplyLost(it *model.LostItem) {
	setBool(&it.Disabled, p.Disabled)
	setString(&it.DisabledReason, p.DisabledReason)
	setBool(&it.Requested, p.Requested)
	setString(&it.RequestedReason, p.RequestedReason)
	it.Stage = LostStage(it)
}

// ApplyFound writes the patch into it and refreshes the derived stage.
func (p Patch) ApplyFound(it *model.FoundItem) {
	setBool(&it.GuardReceived, p.GuardReceived)
	setBool(&it.OwnerReceived, p.OwnerReceived)
	setString(&it.GuardRemarks, p.GuardRemarks)
	setBool(&it.Disabled, p.Disabled)
	if p.IsActive != nil {
		it.IsActive = ptr(*p.IsActive)
	}
	it.Stage = FoundStage(it)
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func ptr[T any](v T) *T { return &v }
