package utils

import (
	"testing"
	"time"

	"outreachcrm/models"
)

func TestTitleTier(t *testing.T) {
	tests := []struct {
		title string
		want  int
	}{
		{"CEO", TierExecutive},
		{"Chief Revenue Officer", TierExecutive},
		{"Founder & Owner", TierExecutive},
		{"President", TierExecutive},
		{"Vice President of Sales", TierVP},
		{"SVP Operations", TierVP},
		{"VP Marketing", TierVP},
		{"CTO", TierExecutive},
		{"Director of Procurement", TierDirector},
		{"Director, Product Operations", TierDirector},
		{"Head of Growth", TierDirector},
		{"Account Manager", TierDefault},
		{"Public Sector Lead", TierDefault},
		{"", TierDefault},
	}

	for _, tt := range tests {
		if got := TitleTier(tt.title); got != tt.want {
			t.Errorf("TitleTier(%q) = %d, want %d", tt.title, got, tt.want)
		}
	}
}

func entry(leadID uint, status string, responded bool, scheduled time.Time) models.FollowupQueueEntry {
	return models.FollowupQueueEntry{
		LeadID:       leadID,
		Status:       status,
		Responded:    responded,
		ScheduledFor: scheduled,
	}
}

func TestDedupFollowupsOnePerLead(t *testing.T) {
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	entries := []models.FollowupQueueEntry{
		entry(1, models.FollowupSent, false, base),
		entry(1, models.FollowupPending, false, base.AddDate(0, 0, 3)),
		entry(2, models.FollowupSent, true, base),
		entry(2, models.FollowupSent, false, base.AddDate(0, 0, -5)),
		entry(3, models.FollowupPending, false, base.AddDate(0, 0, 7)),
		entry(3, models.FollowupPending, false, base.AddDate(0, 0, 2)),
	}

	got := DedupFollowups(entries)
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}

	// Lead 1: the pending entry wins over the sent one
	if got[0].LeadID != 1 || got[0].Status != models.FollowupPending {
		t.Errorf("lead 1: got %+v, want the pending entry", got[0])
	}
	// Lead 2: no pending entries, so responded wins
	if got[1].LeadID != 2 || !got[1].Responded {
		t.Errorf("lead 2: got %+v, want the responded entry", got[1])
	}
	// Lead 3: both pending, earliest schedule wins
	if got[2].LeadID != 3 || !got[2].ScheduledFor.Equal(base.AddDate(0, 0, 2)) {
		t.Errorf("lead 3: got %+v, want the earlier entry", got[2])
	}
}

func TestDedupFollowupsDeterministicOrder(t *testing.T) {
	base := time.Now()
	forward := []models.FollowupQueueEntry{
		entry(3, models.FollowupPending, false, base),
		entry(1, models.FollowupPending, false, base),
		entry(2, models.FollowupPending, false, base),
	}
	backward := []models.FollowupQueueEntry{forward[2], forward[0], forward[1]}

	a := DedupFollowups(forward)
	b := DedupFollowups(backward)

	for i := range a {
		if a[i].LeadID != b[i].LeadID {
			t.Fatalf("order depends on input order: %v vs %v", a, b)
		}
	}
	if a[0].LeadID != 1 || a[1].LeadID != 2 || a[2].LeadID != 3 {
		t.Errorf("expected lead id order, got %v", a)
	}
}

func TestDedupFollowupsTieBreaksOnID(t *testing.T) {
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	older := entry(1, models.FollowupPending, false, base)
	older.ID = 4
	newer := entry(1, models.FollowupPending, false, base)
	newer.ID = 9

	for _, entries := range [][]models.FollowupQueueEntry{
		{older, newer},
		{newer, older},
	} {
		got := DedupFollowups(entries)
		if len(got) != 1 {
			t.Fatalf("got %d entries, want 1", len(got))
		}
		if got[0].ID != 4 {
			t.Errorf("got entry %d, want the lowest id regardless of input order", got[0].ID)
		}
	}
}

func TestDedupFollowupsDoesNotMutateInput(t *testing.T) {
	base := time.Now()
	entries := []models.FollowupQueueEntry{
		entry(1, models.FollowupSent, false, base),
		entry(1, models.FollowupPending, false, base.AddDate(0, 0, 1)),
	}

	DedupFollowups(entries)

	if entries[0].Status != models.FollowupSent {
		t.Error("input slice was mutated")
	}
}

func TestSortFollowupsForDisplay(t *testing.T) {
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	entries := []models.FollowupQueueEntry{
		entry(1, models.FollowupPending, false, base.AddDate(0, 0, 5)), // manager
		entry(2, models.FollowupPending, false, base.AddDate(0, 0, 1)), // CEO
		entry(3, models.FollowupSent, true, base.AddDate(0, 0, 2)),     // CEO, responded
		entry(4, models.FollowupPending, false, base),                  // director
	}
	titles := map[uint]string{
		1: "Account Manager",
		2: "CEO",
		3: "CEO",
		4: "Director of Ops",
	}

	got := SortFollowupsForDisplay(entries, titles)

	wantOrder := []uint{3, 2, 4, 1} // responded CEO, CEO, director, manager
	for i, want := range wantOrder {
		if got[i].LeadID != want {
			t.Fatalf("position %d: got lead %d, want %d (full order %v)", i, got[i].LeadID, want, leadIDs(got))
		}
	}

	// Input order untouched
	if entries[0].LeadID != 1 {
		t.Error("input slice was reordered")
	}
}

func leadIDs(entries []models.FollowupQueueEntry) []uint {
	ids := make([]uint, len(entries))
	for i, e := range entries {
		ids[i] = e.LeadID
	}
	return ids
}
