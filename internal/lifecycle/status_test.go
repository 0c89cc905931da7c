package lifecycle

import (
	"testing"

	"github.com/manujcode/lose-and-found/internal/model"
)

func TestFoundStagePriority(t *testing.T) {
	tests := []struct {
		owner, guard, disabled bool
		want                   model.Stage
	}{
		{false, false, false, model.StageActive},
		{false, false, true, model.StageDisabled},
		{false, true, false, model.StageGuardReceived},
		{false, true, true, model.StageGuardReceived},
		{true, false, false, model.StageOwnerReceived},
		{true, false, true, model.StageOwnerReceived},
		{true, true, false, model.StageOwnerReceived},
		{true, true, true, model.StageOwnerReceived},
	}
	for _, tt := range tests {
		it := &model.FoundItem{OwnerReceived: tt.owner, GuardReceived: tt.guard, Disabled: tt.disabled}
		if got := FoundStage(it); got != tt.want {
			t.Errorf("owner=%v guard=%v disabled=%v: expected %q, got %q",
				tt.owner, tt.guard, tt.disabled, tt.want, got)
		}
	}
}

func TestFoundStageLegacyInactive(t *testing.T) {
	inactive := false
	it := &model.FoundItem{IsActive: &inactive}
	if got := FoundStage(it); got != model.StageDisabled {
		t.Errorf("expected disabled for is_active=false, got %q", got)
	}

	active := true
	it.IsActive = &active
	if got := FoundStage(it); got != model.StageActive {
		t.Errorf("expected active for is_active=true, got %q", got)
	}
}

func TestDescribe(t *testing.T) {
	lost := &model.LostItem{Disabled: true, DisabledReason: "spam"}
	st := DescribeLost(lost)
	if st.Label != "Disabled" || st.Color != "red" || st.Reason != "spam" {
		t.Errorf("unexpected lost status %+v", st)
	}

	lost.Requested = true
	if !Recovered(lost) {
		t.Error("expected requested lost item to count as recovered")
	}

	found := &model.FoundItem{GuardReceived: true, OwnerReceived: true, GuardRemarks: "returned to Priya"}
	st = DescribeFound(found)
	if st.Label != "Owner Received" || st.Color != "purple" || st.Reason != "returned to Priya" {
		t.Errorf("unexpected found status %+v", st)
	}

	st = DescribeFound(&model.FoundItem{GuardReceived: true})
	if st.Label != "Guard Received" || st.Color != "blue" {
		t.Errorf("unexpected found status %+v", st)
	}
	if got := Color(model.StageActive); got != "green" {
		t.Errorf("expected green, got %q", got)
	}
}
