package ledger

import "github.com/nhle/quiz-ledger/internal/model"

// legacyTabSwitchViolations is the strike threshold that forced a tab-switch
// auto-submission before counts were recorded.
const legacyTabSwitchViolations = 3

// Violations returns the tab-switch violation count of a record. An explicit
// count wins; older records are interpreted from how they were submitted.
func Violations(r model.ActivityRecord) int {
	switch {
	case r.TabSwitchViolations != nil:
		return max(*r.TabSwitchViolations, 0)
	case !r.AutoSubmitted:
		return 0
	case r.SubmitReason == model.SubmitReasonTabSwitch:
		return legacyTabSwitchViolations
	default:
		return 0
	}
}
