package lifecycle

import (
	"errors"
	"testing"

	"github.com/manujcode/lose-and-found/internal/model"
)

var (
	reporter = model.Actor{Email: "asha@campus.edu", Name: "Asha"}
	stranger = model.Actor{Email: "ravi@campus.edu", Name: "Ravi"}
	admin    = model.Actor{Email: "admin@campus.edu", Roles: model.Roles{Admin: true}}
	guard    = model.Actor{Email: "guard@campus.edu", Roles: model.Roles{Guard: true}}
)

func lostItem(disabled bool) *model.LostItem {
	return &model.LostItem{
		Listing:  model.Listing{ID: "l1", Title: "Blue bottle", Email: "asha@campus.edu"},
		Disabled: disabled,
	}
}

func rejectionCode(t *testing.T, err error) string {
	t.Helper()
	var rej *Rejection
	if !errors.As(err, &rej) {
		t.Fatalf("expected *Rejection, got %v", err)
	}
	return rej.Code
}

func TestEnableIsIdempotent(t *testing.T) {
	it := lostItem(true)
	it.DisabledReason = "duplicate"

	plan, err := PlanLost(it, reporter, ActionEnable, "")
	if err != nil {
		t.Fatalf("PlanLost: %v", err)
	}

	plan.Patch.ApplyLost(it)
	first := *it
	plan.Patch.ApplyLost(it)

	if it.Disabled || it.DisabledReason != "" {
		t.Errorf("expected enabled item with empty reason, got %+v", it)
	}
	if *it != first {
		t.Errorf("applying enable twice changed fields: %+v vs %+v", first, *it)
	}
	if it.Stage != model.StageActive {
		t.Errorf("expected stage active, got %q", it.Stage)
	}

	// Planning again against the enabled item is a precondition failure.
	_, err = PlanLost(it, reporter, ActionEnable, "")
	if code := rejectionCode(t, err); code != CodePreconditionFailed {
		t.Errorf("expected precondition_failed, got %q", code)
	}
}

func TestDisableRequiresReason(t *testing.T) {
	it := lostItem(false)

	_, err := PlanLost(it, reporter, ActionDisable, "   ")
	if code := rejectionCode(t, err); code != CodeReasonRequired {
		t.Errorf("expected reason_required, got %q", code)
	}

	plan, err := PlanLost(it, admin, ActionDisable, "inappropriate")
	if err != nil {
		t.Fatalf("PlanLost: %v", err)
	}
	plan.Patch.ApplyLost(it)
	if !it.Disabled || it.DisabledReason != "inappropriate" {
		t.Errorf("unexpected item after disable: %+v", it)
	}
	if plan.Message != "Item disabled successfully!" {
		t.Errorf("unexpected message %q", plan.Message)
	}
}

func TestLostActionRoles(t *testing.T) {
	it := lostItem(false)

	_, err := PlanLost(it, stranger, ActionDisable, "mine now")
	if code := rejectionCode(t, err); code != CodeForbidden {
		t.Errorf("expected forbidden, got %q", code)
	}

	// Any signed-in user may mark an item recovered.
	if _, err := PlanLost(it, stranger, ActionMarkRecovered, "found it at the library"); err != nil {
		t.Errorf("expected stranger to mark recovered, got %v", err)
	}
	_, err = PlanLost(it, model.Actor{}, ActionMarkRecovered, "x")
	if code := rejectionCode(t, err); code != CodeForbidden {
		t.Errorf("expected forbidden for anonymous actor, got %q", code)
	}
}

func TestMarkOwnerReceivedNeedsGuardReceived(t *testing.T) {
	it := &model.FoundItem{}
	_, err := PlanFound(it, guard, ActionMarkOwnerReceived, "returned")
	if code := rejectionCode(t, err); code != CodePreconditionFailed {
		t.Errorf("expected precondition_failed, got %q", code)
	}
	if it.OwnerReceived {
		t.Error("rejected action must not modify the item")
	}
}

func TestReverseThenMark(t *testing.T) {
	it := &model.FoundItem{GuardReceived: true, OwnerReceived: true, GuardRemarks: "first handover"}

	plan, err := PlanFound(it, guard, ActionReverseOwnerReceived, "wrong person")
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	plan.Patch.ApplyFound(it)
	if it.OwnerReceived || it.Stage != model.StageGuardReceived {
		t.Fatalf("expected guard received after reverse, got %+v", it)
	}

	plan, err = PlanFound(it, guard, ActionMarkOwnerReceived, "returned to Priya")
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	plan.Patch.ApplyFound(it)
	if !it.OwnerReceived || it.GuardRemarks != "returned to Priya" {
		t.Errorf("expected owner received with latest remarks, got %+v", it)
	}
}

func TestFoundActionsRequireGuard(t *testing.T) {
	it := &model.FoundItem{}
	_, err := PlanFound(it, admin, ActionToggleGuardReceived, "")
	if code := rejectionCode(t, err); code != CodeForbidden {
		t.Errorf("expected forbidden, got %q", code)
	}
}

func TestToggleDisabled(t *testing.T) {
	it := &model.FoundItem{GuardReceived: true}
	_, err := PlanFound(it, guard, ActionToggleDisabled, "")
	if code := rejectionCode(t, err); code != CodePreconditionFailed {
		t.Errorf("expected precondition_failed before owner receipt, got %q", code)
	}

	it.OwnerReceived = true
	plan, err := PlanFound(it, guard, ActionToggleDisabled, "")
	if err != nil {
		t.Fatalf("disable: %v", err)
	}
	plan.Patch.ApplyFound(it)
	if !it.Disabled {
		t.Fatal("expected disabled")
	}
	// Owner received still wins the stage.
	if it.Stage != model.StageOwnerReceived {
		t.Errorf("expected owner_received stage, got %q", it.Stage)
	}

	plan, err = PlanFound(it, guard, ActionToggleDisabled, "")
	if err != nil {
		t.Fatalf("enable: %v", err)
	}
	plan.Patch.ApplyFound(it)
	if it.Disabled {
		t.Error("expected enabled after second toggle")
	}
}

func TestToggleDisabledEnablesLegacyInactive(t *testing.T) {
	inactive := false
	it := &model.FoundItem{IsActive: &inactive}
	if allowed := AllowedFound(it, guard); !containsAction(allowed, ActionToggleDisabled) {
		t.Fatalf("expected toggle_disabled to be offered, got %v", allowed)
	}

	plan, err := PlanFound(it, guard, ActionToggleDisabled, "")
	if err != nil {
		t.Fatalf("enable legacy item: %v", err)
	}
	if plan.Message != "Item enabled successfully!" {
		t.Errorf("unexpected message %q", plan.Message)
	}
	plan.Patch.ApplyFound(it)
	if it.Disabled || it.IsActive == nil || !*it.IsActive {
		t.Errorf("expected item enabled, got disabled=%v is_active=%v", it.Disabled, it.IsActive)
	}
	if it.Stage != model.StageActive {
		t.Errorf("expected active stage, got %q", it.Stage)
	}
	if inactive {
		t.Error("patch must not write through the caller's flag")
	}
}

func containsAction(list []Action, a Action) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

func TestWrongKindAndUnknown(t *testing.T) {
	_, err := PlanLost(lostItem(false), admin, ActionToggleGuardReceived, "")
	if code := rejectionCode(t, err); code != CodeWrongKind {
		t.Errorf("expected wrong_kind, got %q", code)
	}
	_, err = PlanFound(&model.FoundItem{}, guard, Action("explode"), "")
	if code := rejectionCode(t, err); code != CodeUnknownAction {
		t.Errorf("expected unknown_action, got %q", code)
	}
}

func TestAllowedActions(t *testing.T) {
	got := AllowedLost(lostItem(false), reporter)
	if len(got) != 2 || got[0] != ActionDisable || got[1] != ActionMarkRecovered {
		t.Errorf("unexpected reporter actions %v", got)
	}
	if got := AllowedFound(&model.FoundItem{}, stranger); len(got) != 0 {
		t.Errorf("expected no found actions for non-guard, got %v", got)
	}
	got = AllowedFound(&model.FoundItem{GuardReceived: true}, guard)
	if len(got) != 2 || got[0] != ActionToggleGuardReceived || got[1] != ActionMarkOwnerReceived {
		t.Errorf("unexpected guard actions %v", got)
	}
}
