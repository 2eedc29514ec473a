package utils

import (
	"testing"

	"outreachcrm/models"
)

func defaultTestThresholds() *models.DeliverabilityThreshold {
	t := models.DefaultThresholds("mail.example.com")
	return &t
}

func TestEvaluateDeliverabilityHealthy(t *testing.T) {
	state := &models.SendingDomain{
		Domain:          "mail.example.com",
		BounceRate:      0.5,
		ReputationScore: 95,
	}

	verdict := EvaluateDeliverability(state, defaultTestThresholds())
	if verdict.Health != HealthHealthy {
		t.Errorf("Health = %q, want healthy", verdict.Health)
	}
	if len(verdict.TriggeredRules) != 0 {
		t.Errorf("unexpected rules: %v", verdict.TriggeredRules)
	}
}

func TestEvaluateDeliverabilityBounceWarning(t *testing.T) {
	state := &models.SendingDomain{
		BounceRate:      3.0, // between warning 2 and critical 5
		ReputationScore: 95,
	}

	verdict := EvaluateDeliverability(state, defaultTestThresholds())
	if verdict.Health != HealthWarning {
		t.Errorf("Health = %q, want warning", verdict.Health)
	}
	if verdict.ShouldPause(defaultTestThresholds()) {
		t.Error("warning must never pause sending")
	}
}

func TestEvaluateDeliverabilityBounceCritical(t *testing.T) {
	state := &models.SendingDomain{
		BounceRate:      6.0,
		ReputationScore: 95,
	}

	verdict := EvaluateDeliverability(state, defaultTestThresholds())
	if verdict.Health != HealthCritical {
		t.Errorf("Health = %q, want critical", verdict.Health)
	}
	if !verdict.ShouldPause(defaultTestThresholds()) {
		t.Error("critical with auto-pause enabled must pause")
	}
}

func TestEvaluateDeliverabilitySpamCritical(t *testing.T) {
	state := &models.SendingDomain{
		SpamComplaintRate: 0.15,
		ReputationScore:   95,
	}

	verdict := EvaluateDeliverability(state, defaultTestThresholds())
	if verdict.Health != HealthCritical {
		t.Errorf("Health = %q, want critical", verdict.Health)
	}
}

func TestEvaluateDeliverabilityLowReputation(t *testing.T) {
	state := &models.SendingDomain{
		ReputationScore: 40,
	}

	verdict := EvaluateDeliverability(state, defaultTestThresholds())
	if verdict.Health != HealthCritical {
		t.Errorf("Health = %q, want critical", verdict.Health)
	}
}

func TestEvaluateDeliverabilityMultipleRules(t *testing.T) {
	state := &models.SendingDomain{
		BounceRate:        7.0,
		SpamComplaintRate: 0.2,
		ReputationScore:   30,
	}

	verdict := EvaluateDeliverability(state, defaultTestThresholds())
	if len(verdict.TriggeredRules) != 3 {
		t.Errorf("TriggeredRules = %v, want all three critical rules", verdict.TriggeredRules)
	}
}

func TestShouldPauseRespectsAutoPauseFlag(t *testing.T) {
	state := &models.SendingDomain{
		BounceRate:      10.0,
		ReputationScore: 95,
	}
	thresholds := defaultTestThresholds()
	thresholds.AutoPauseEnabled = false

	verdict := EvaluateDeliverability(state, thresholds)
	if verdict.Health != HealthCritical {
		t.Errorf("Health = %q, want critical", verdict.Health)
	}
	if verdict.ShouldPause(thresholds) {
		t.Error("auto-pause disabled must not pause even when critical")
	}
}

func TestEvaluateDeliverabilityAtExactThreshold(t *testing.T) {
	// Thresholds are inclusive: exactly critical is critical
	state := &models.SendingDomain{
		BounceRate:      5.0,
		ReputationScore: 95,
	}

	verdict := EvaluateDeliverability(state, defaultTestThresholds())
	if verdict.Health != HealthCritical {
		t.Errorf("Health = %q, want critical at exact threshold", verdict.Health)
	}
}
