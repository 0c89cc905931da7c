// Package lifecycle derives display stages from item flags and plans
// moderation actions. Everything here is pure; callers persist the result.
package lifecycle

import "github.com/manujcode/lose-and-found/internal/model"

// Status is the display form of an item's stage.
type Status struct {
	Stage  model.Stage `json:"stage"`
	Label  string      `json:"label"`
	Color  string      `json:"color"`
	Reason string      `json:"reason,omitempty"`
}

var labels = map[model.Stage]string{
	model.StageActive:        "Active",
	model.StageDisabled:      "Disabled",
	model.StageGuardReceived: "Guard Received",
	model.StageOwnerReceived: "Owner Received",
}

var colors = map[model.Stage]string{
	model.StageActive:        "green",
	model.StageDisabled:      "red",
	model.StageGuardReceived: "blue",
	model.StageOwnerReceived: "purple",
}

// Label returns the human-readable name of a stage.
func Label(s model.Stage) string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

// Color returns the badge color of a stage.
func Color(s model.Stage) string {
	if c, ok := colors[s]; ok {
		return c
	}
	return "gray"
}

// ValidStage reports whether s names a known stage.
func ValidStage(s model.Stage) bool {
	_, ok := labels[s]
	return ok
}

// FoundStage resolves a found item's flags in priority order: owner
// received, guard received, disabled, active. The flags are independent, so
// the first match wins.
func FoundStage(it *model.FoundItem) model.Stage {
	switch {
	case it.OwnerReceived:
		return model.StageOwnerReceived
	case it.GuardReceived:
		return model.StageGuardReceived
	case FoundDisabled(it):
		return model.StageDisabled
	default:
		return model.StageActive
	}
}

// FoundDisabled treats the legacy is_active=false flag as disabled.
func FoundDisabled(it *model.FoundItem) bool {
	return it.Disabled || (it.IsActive != nil && !*it.IsActive)
}

// LostStage resolves a lost item's flags. Requested does not affect the stage.
func LostStage(it *model.LostItem) model.Stage {
	if it.Disabled {
		return model.StageDisabled
	}
	return model.StageActive
}

// Recovered reports whether a lost item was confirmed returned through the
// platform, independent of its disabled flag.
func Recovered(it *model.LostItem) bool {
	return it.Requested
}

// DescribeFound returns the display status of a found item.
func DescribeFound(it *model.FoundItem) Status {
	s := FoundStage(it)
	st := Status{Stage: s, Label: Label(s), Color: Color(s)}
	if s == model.StageOwnerReceived {
		st.Reason = it.GuardRemarks
	}
	return st
}

// DescribeLost returns the display status of a lost item, carrying the
// disable reason when disabled.
func DescribeLost(it *model.LostItem) Status {
	s := LostStage(it)
	st := Status{Stage: s, Label: Label(s), Color: Color(s)}
	if s == model.StageDisabled {
		st.Reason = it.DisabledReason
	}
	return st
}
