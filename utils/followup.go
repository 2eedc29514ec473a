package utils

import (
	"sort"
	"strings"
	"unicode"

	"outreachcrm/models"
)

// Lead priority tiers derived from job title keywords.
const (
	TierExecutive = 3 // C-level, founder, owner, president, chairman
	TierVP        = 2
	TierDirector  = 1
	TierDefault   = 0
)

// Short acronyms are matched against whole word tokens only: substring
// matching would find "cto" inside "director" or "sector".
var executiveTokens = []string{
	"ceo", "cfo", "coo", "cto", "cmo", "cro",
	"chief", "founder", "owner", "president", "chairman",
}

var vpTokens = []string{"vp", "svp", "evp"}

var vpPhrases = []string{"vice president", "v.p."}

var directorTokens = []string{"director"}

var directorPhrases = []string{"head of"}

// TitleTier maps a job title to its priority tier. VP is matched before
// the executive keywords so "Vice President" does not hit "president".
func TitleTier(jobTitle string) int {
	title := strings.ToLower(jobTitle)
	tokens := strings.FieldsFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	switch {
	case hasToken(tokens, vpTokens) || hasPhrase(title, vpPhrases):
		return TierVP
	case hasToken(tokens, executiveTokens):
		return TierExecutive
	case hasToken(tokens, directorTokens) || hasPhrase(title, directorPhrases):
		return TierDirector
	}
	return TierDefault
}

func hasToken(tokens, keywords []string) bool {
	for _, tok := range tokens {
		for _, kw := range keywords {
			if tok == kw {
				return true
			}
		}
	}
	return false
}

func hasPhrase(title string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(title, p) {
			return true
		}
	}
	return false
}

// DedupFollowups selects exactly one current follow-up entry per lead
// from potentially many historical rows. Precedence, first non-tie wins:
// pending status, responded flag, earliest scheduled time. Pure; does not
// mutate its input or any stored state.
func DedupFollowups(entries []models.FollowupQueueEntry) []models.FollowupQueueEntry {
	best := make(map[uint]models.FollowupQueueEntry)
	order := make([]uint, 0)

	for _, entry := range entries {
		current, seen := best[entry.LeadID]
		if !seen {
			best[entry.LeadID] = entry
			order = append(order, entry.LeadID)
			continue
		}
		if preferFollowup(entry, current) {
			best[entry.LeadID] = entry
		}
	}

	// Stable output regardless of input order
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	result := make([]models.FollowupQueueEntry, 0, len(order))
	for _, leadID := range order {
		result = append(result, best[leadID])
	}
	return result
}

// preferFollowup reports whether candidate should replace current as the
// lead's single actionable entry. The final ID tie-break keeps the
// selection independent of input order when all other keys are equal.
func preferFollowup(candidate, current models.FollowupQueueEntry) bool {
	candPending := candidate.Status == models.FollowupPending
	currPending := current.Status == models.FollowupPending
	if candPending != currPending {
		return candPending
	}
	if candidate.Responded != current.Responded {
		return candidate.Responded
	}
	if !candidate.ScheduledFor.Equal(current.ScheduledFor) {
		return candidate.ScheduledFor.Before(current.ScheduledFor)
	}
	return candidate.ID < current.ID
}

// SortFollowupsForDisplay orders deduplicated entries for presentation:
// title tier descending, responded first, pending-status first, then
// earliest scheduled. titles maps lead id to job title. Returns a new
// slice; the input is left untouched.
func SortFollowupsForDisplay(entries []models.FollowupQueueEntry, titles map[uint]string) []models.FollowupQueueEntry {
	sorted := make([]models.FollowupQueueEntry, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]

		tierA, tierB := TitleTier(titles[a.LeadID]), TitleTier(titles[b.LeadID])
		if tierA != tierB {
			return tierA > tierB
		}
		if a.Responded != b.Responded {
			return a.Responded
		}
		aPending := a.Status == models.FollowupPending
		bPending := b.Status == models.FollowupPending
		if aPending != bPending {
			return aPending
		}
		return a.ScheduledFor.Before(b.ScheduledFor)
	})
	return sorted
}
