package utils

import (
	"sync"
	"testing"

	"outreachcrm/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestTracker(t *testing.T) (*DomainTracker, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewDomainTracker(db, testLogger()), db
}

func TestGetStateUnknownDomain(t *testing.T) {
	tracker, _ := newTestTracker(t)

	_, err := tracker.GetState("nowhere.example.com")
	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
}

func TestGetThresholdsFallsBackToDefaults(t *testing.T) {
	tracker, db := newTestTracker(t)

	thresholds, err := tracker.GetThresholds("mail.example.com")
	require.NoError(t, err)
	require.Equal(t, 5.0, thresholds.BounceCriticalPct)
	require.True(t, thresholds.AutoPauseEnabled)

	// An explicit row wins over the defaults
	custom := models.DefaultThresholds("mail.example.com")
	custom.BounceCriticalPct = 10
	require.NoError(t, db.Create(&custom).Error)

	thresholds, err = tracker.GetThresholds("mail.example.com")
	require.NoError(t, err)
	require.Equal(t, 10.0, thresholds.BounceCriticalPct)
}

func TestRecordSendAndBounceRecomputeRates(t *testing.T) {
	tracker, db := newTestTracker(t)
	seedDomain(t, db, "mail.example.com")

	for i := 0; i < 50; i++ {
		require.NoError(t, tracker.RecordSend("mail.example.com"))
	}
	require.NoError(t, tracker.RecordBounce("mail.example.com"))
	require.NoError(t, tracker.RecordBounce("mail.example.com"))
	require.NoError(t, tracker.RecordSpamComplaint("mail.example.com"))

	state, err := tracker.GetState("mail.example.com")
	require.NoError(t, err)
	require.Equal(t, 50, state.DailyVolumeSent)
	require.Equal(t, 50, state.TotalSent)
	require.Equal(t, 2, state.TotalBounced)

	// Rates are percentages of lifetime sends
	require.InDelta(t, 4.0, state.BounceRate, 0.001)
	require.InDelta(t, 2.0, state.SpamComplaintRate, 0.001)

	// Reputation drops with the bounce and complaint penalties
	require.Less(t, state.ReputationScore, 100)
}

func TestRecordSendConcurrent(t *testing.T) {
	tracker, db := newTestTracker(t)
	seedDomain(t, db, "mail.example.com")

	// The per-domain lock must not lose increments under contention
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if err := tracker.RecordSend("mail.example.com"); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	state, err := tracker.GetState("mail.example.com")
	require.NoError(t, err)
	require.Equal(t, 100, state.TotalSent)
	require.Equal(t, 100, state.DailyVolumeSent)
}

func TestRollOverDayAdvancesPlan(t *testing.T) {
	tracker, db := newTestTracker(t)
	require.NoError(t, models.CreateDefaultWarmupPlan(db))

	domain := seedDomain(t, db, "mail.example.com")
	require.NoError(t, db.Model(domain).Updates(map[string]interface{}{
		"day_number":        7,
		"daily_volume_sent": 240,
	}).Error)

	require.NoError(t, tracker.RollOverDay("mail.example.com"))

	state, err := tracker.GetState("mail.example.com")
	require.NoError(t, err)
	require.Equal(t, 8, state.DayNumber)
	require.Zero(t, state.DailyVolumeSent)
	require.Equal(t, 500, state.DailyVolumeLimit)
}

func TestRollOverPastPlanEnd(t *testing.T) {
	tracker, db := newTestTracker(t)
	require.NoError(t, models.CreateDefaultWarmupPlan(db))

	domain := seedDomain(t, db, "mail.example.com")
	require.NoError(t, db.Model(domain).Update("day_number", 30).Error)

	// Day 31 is past the 30-day ladder: graduated domains get double the
	// final plan volume
	require.NoError(t, tracker.RollOverDay("mail.example.com"))

	state, err := tracker.GetState("mail.example.com")
	require.NoError(t, err)
	require.Equal(t, 31, state.DayNumber)
	require.Equal(t, 50000, state.DailyVolumeLimit)
}

func TestHasCapacity(t *testing.T) {
	tracker, db := newTestTracker(t)
	domain := seedDomain(t, db, "mail.example.com")

	ok, err := tracker.HasCapacity("mail.example.com")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, db.Model(domain).Update("daily_volume_sent", 250).Error)

	ok, err = tracker.HasCapacity("mail.example.com")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestComputeReputation(t *testing.T) {
	tests := []struct {
		name  string
		state models.SendingDomain
		want  int
	}{
		{"clean domain", models.SendingDomain{}, 100},
		{"bounces penalized", models.SendingDomain{BounceRate: 4}, 80},
		{"complaints penalized hard", models.SendingDomain{SpamComplaintRate: 0.5}, 75},
		{"failed auth stacks", models.SendingDomain{
			SPFStatus: models.AuthFail, DKIMStatus: models.AuthFail, DMARCStatus: models.AuthFail,
		}, 70},
		{"young domain handicap", models.SendingDomain{DomainAgeDays: 30}, 90},
		{"floor at zero", models.SendingDomain{BounceRate: 50}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeReputation(&tt.state); got != tt.want {
				t.Errorf("computeReputation() = %d, want %d", got, tt.want)
			}
		})
	}
}
