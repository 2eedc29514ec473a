package utils

import (
	"fmt"

	"outreachcrm/models"
)

// Health verdicts for a sending domain.
const (
	HealthHealthy  = "healthy"
	HealthWarning  = "warning"
	HealthCritical = "critical"
)

// DeliverabilityVerdict is the result of evaluating domain state against
// its thresholds.
type DeliverabilityVerdict struct {
	Health         string   `json:"health"`
	TriggeredRules []string `json:"triggered_rules"`
}

// ShouldPause reports whether sending must be refused for this domain.
func (v DeliverabilityVerdict) ShouldPause(thresholds *models.DeliverabilityThreshold) bool {
	return v.Health == HealthCritical && thresholds.AutoPauseEnabled
}

// EvaluateDeliverability compares warm-up state against thresholds and
// produces a health verdict. Pure function; callers must re-run it before
// every send because send outcomes mutate the underlying state.
func EvaluateDeliverability(state *models.SendingDomain, thresholds *models.DeliverabilityThreshold) DeliverabilityVerdict {
	verdict := DeliverabilityVerdict{Health: HealthHealthy, TriggeredRules: []string{}}

	if state.BounceRate >= thresholds.BounceCriticalPct {
		verdict.TriggeredRules = append(verdict.TriggeredRules,
			fmt.Sprintf("bounce rate %.2f%% >= critical %.2f%%", state.BounceRate, thresholds.BounceCriticalPct))
	}
	if state.SpamComplaintRate >= thresholds.SpamCriticalPct {
		verdict.TriggeredRules = append(verdict.TriggeredRules,
			fmt.Sprintf("spam complaint rate %.3f%% >= critical %.3f%%", state.SpamComplaintRate, thresholds.SpamCriticalPct))
	}
	if state.ReputationScore < thresholds.MinReputationScore {
		verdict.TriggeredRules = append(verdict.TriggeredRules,
			fmt.Sprintf("reputation score %d below minimum %d", state.ReputationScore, thresholds.MinReputationScore))
	}
	if len(verdict.TriggeredRules) > 0 {
		verdict.Health = HealthCritical
		return verdict
	}

	if state.BounceRate >= thresholds.BounceWarningPct {
		verdict.TriggeredRules = append(verdict.TriggeredRules,
			fmt.Sprintf("bounce rate %.2f%% >= warning %.2f%%", state.BounceRate, thresholds.BounceWarningPct))
	}
	if state.SpamComplaintRate >= thresholds.SpamWarningPct {
		verdict.TriggeredRules = append(verdict.TriggeredRules,
			fmt.Sprintf("spam complaint rate %.3f%% >= warning %.3f%%", state.SpamComplaintRate, thresholds.SpamWarningPct))
	}
	if len(verdict.TriggeredRules) > 0 {
		verdict.Health = HealthWarning
	}
	return verdict
}
