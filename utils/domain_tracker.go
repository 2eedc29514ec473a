package utils

import (
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"outreachcrm/models"

	"github.com/likexian/whois"
	"gorm.io/gorm"
)

// DomainTracker owns all mutations of per-domain warm-up state. Counter
// updates are serialized per domain so concurrent send results cannot
// lose increments.
type DomainTracker struct {
	DB     *gorm.DB
	Logger *log.Logger
	locks  *KeyedMutex
}

func NewDomainTracker(db *gorm.DB, logger *log.Logger) *DomainTracker {
	return &DomainTracker{
		DB:     db,
		Logger: logger,
		locks:  NewKeyedMutex(),
	}
}

// GetState loads the warm-up state for a domain.
func (dt *DomainTracker) GetState(domain string) (*models.SendingDomain, error) {
	var state models.SendingDomain
	if err := dt.DB.Where("domain = ?", domain).First(&state).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "sending domain", ID: domain}
		}
		return nil, err
	}
	return &state, nil
}

// GetThresholds loads the deliverability thresholds for a domain,
// falling back to defaults when none are configured.
func (dt *DomainTracker) GetThresholds(domain string) (*models.DeliverabilityThreshold, error) {
	var thresholds models.DeliverabilityThreshold
	err := dt.DB.Where("domain = ?", domain).First(&thresholds).Error
	if err == gorm.ErrRecordNotFound {
		defaults := models.DefaultThresholds(domain)
		return &defaults, nil
	}
	if err != nil {
		return nil, err
	}
	return &thresholds, nil
}

// RecordSend increments the domain's volume counters and refreshes the
// derived rates.
func (dt *DomainTracker) RecordSend(domain string) error {
	return dt.mutate(domain, func(state *models.SendingDomain) {
		state.DailyVolumeSent++
		state.TotalSent++
	})
}

// RecordBounce registers a bounce against the domain.
func (dt *DomainTracker) RecordBounce(domain string) error {
	return dt.mutate(domain, func(state *models.SendingDomain) {
		state.TotalBounced++
	})
}

// RecordSpamComplaint registers a spam complaint against the domain.
func (dt *DomainTracker) RecordSpamComplaint(domain string) error {
	return dt.mutate(domain, func(state *models.SendingDomain) {
		state.TotalComplaints++
	})
}

// RollOverDay resets the daily counter, advances the warm-up day, and
// applies that day's configured volume limit from the warm-up plan.
func (dt *DomainTracker) RollOverDay(domain string) error {
	key := DomainKey(domain)
	dt.locks.Lock(key)
	defer dt.locks.Unlock(key)

	state, err := dt.GetState(domain)
	if err != nil {
		return err
	}

	state.DayNumber++
	state.DailyVolumeSent = 0

	limit, err := models.VolumeLimitForDay(dt.DB, state.DayNumber)
	if err != nil {
		return fmt.Errorf("failed to resolve volume limit for day %d: %w", state.DayNumber, err)
	}
	state.DailyVolumeLimit = limit

	dt.Logger.Printf("Domain %s rolled over to warmup day %d (limit %d)", domain, state.DayNumber, limit)
	return dt.DB.Save(state).Error
}

// HasCapacity reports whether the domain can send another email today.
func (dt *DomainTracker) HasCapacity(domain string) (bool, error) {
	state, err := dt.GetState(domain)
	if err != nil {
		return false, err
	}
	return state.DailyVolumeSent < state.DailyVolumeLimit, nil
}

// RefreshAuthStatus re-checks the domain's SPF/DMARC DNS records and its
// registration age, then recomputes the reputation score. DKIM requires
// the selector, which lives with the mail provider, so only an existing
// pass/fail is kept.
func (dt *DomainTracker) RefreshAuthStatus(domain string) error {
	key := DomainKey(domain)
	dt.locks.Lock(key)
	defer dt.locks.Unlock(key)

	state, err := dt.GetState(domain)
	if err != nil {
		return err
	}

	state.SPFStatus = lookupSPF(domain)
	state.DMARCStatus = lookupDMARC(domain)

	if age, err := lookupDomainAgeDays(domain); err == nil {
		state.DomainAgeDays = age
	} else {
		dt.Logger.Printf("whois lookup failed for %s: %v", domain, err)
	}

	state.ReputationScore = computeReputation(state)
	now := time.Now()
	state.LastCheckedAt = &now
	return dt.DB.Save(state).Error
}

// mutate applies fn to the domain state under the per-domain lock and
// recomputes the derived bounce/complaint rates before saving.
func (dt *DomainTracker) mutate(domain string, fn func(*models.SendingDomain)) error {
	key := DomainKey(domain)
	dt.locks.Lock(key)
	defer dt.locks.Unlock(key)

	state, err := dt.GetState(domain)
	if err != nil {
		return err
	}

	fn(state)

	if state.TotalSent > 0 {
		state.BounceRate = float64(state.TotalBounced) / float64(state.TotalSent) * 100
		state.SpamComplaintRate = float64(state.TotalComplaints) / float64(state.TotalSent) * 100
	}
	state.ReputationScore = computeReputation(state)

	return dt.DB.Save(state).Error
}

// computeReputation derives the 0-100 reputation score from bounce and
// complaint rates, DNS auth status, and domain age.
func computeReputation(state *models.SendingDomain) int {
	score := 100

	// Bounce and complaint penalties scale with the rate
	score -= int(state.BounceRate * 5)
	score -= int(state.SpamComplaintRate * 50)

	if state.SPFStatus == models.AuthFail {
		score -= 10
	}
	if state.DKIMStatus == models.AuthFail {
		score -= 10
	}
	if state.DMARCStatus == models.AuthFail {
		score -= 10
	}

	// Young domains start with a handicap that fades over 90 days
	if state.DomainAgeDays > 0 && state.DomainAgeDays < 90 {
		score -= (90 - state.DomainAgeDays) / 6
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func lookupSPF(domain string) string {
	records, err := net.LookupTXT(domain)
	if err != nil {
		return models.AuthNone
	}
	for _, record := range records {
		if strings.HasPrefix(record, "v=spf1") {
			if strings.Contains(record, "-all") || strings.Contains(record, "~all") {
				return models.AuthPass
			}
			return models.AuthNeutral
		}
	}
	return models.AuthNone
}

func lookupDMARC(domain string) string {
	records, err := net.LookupTXT("_dmarc." + domain)
	if err != nil {
		return models.AuthNone
	}
	for _, record := range records {
		if strings.HasPrefix(record, "v=DMARC1") {
			if strings.Contains(record, "p=reject") || strings.Contains(record, "p=quarantine") {
				return models.AuthPass
			}
			return models.AuthNeutral
		}
	}
	return models.AuthNone
}

// lookupDomainAgeDays estimates domain age from the whois creation date.
func lookupDomainAgeDays(domain string) (int, error) {
	raw, err := whois.Whois(domain)
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(raw, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		if !strings.HasPrefix(lower, "creation date:") && !strings.HasPrefix(lower, "created:") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		value := strings.TrimSpace(parts[1])
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02"} {
			if created, err := time.Parse(layout, value); err == nil {
				return int(time.Since(created).Hours() / 24), nil
			}
		}
	}
	return 0, fmt.Errorf("no creation date in whois response for %s", domain)
}
