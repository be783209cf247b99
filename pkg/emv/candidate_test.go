package emv

import "testing"

func TestCandidateListSortByPriority(t *testing.T) {
	// Discovery order priorities: (1,-,3,4,-,6,7); expected result order:
	// (1,3,4,6,7,no-prio,no-prio) with the two no-priority entries keeping
	// their relative discovery order (§8 scenario 3).
	priorities := []int{1, 0, 3, 4, 0, 6, 7}
	c := NewCandidateList()
	for i, p := range priorities {
		c.Push(&Application{AID: []byte{byte(i)}, Priority: p})
	}
	c.SortByPriority()

	wantAIDOrder := []byte{0, 2, 3, 5, 6, 1, 4}
	if c.Len() != len(wantAIDOrder) {
		t.Fatalf("Len = %d, want %d", c.Len(), len(wantAIDOrder))
	}
	for i, want := range wantAIDOrder {
		got := c.At(i).AID[0]
		if got != want {
			t.Fatalf("position %d: AID[0] = %d, want %d", i, got, want)
		}
	}
}

func TestCandidateListRequiresCardholderSelection(t *testing.T) {
	c := NewCandidateList()
	c.Push(&Application{AID: []byte{0x01}})
	if c.RequiresCardholderSelection() {
		t.Fatalf("single unconfirmed candidate should not require selection")
	}

	c.Push(&Application{AID: []byte{0x02}})
	if !c.RequiresCardholderSelection() {
		t.Fatalf("two candidates should require selection")
	}

	single := NewCandidateList()
	single.Push(&Application{AID: []byte{0x01}, ConfirmationRequired: true})
	if !single.RequiresCardholderSelection() {
		t.Fatalf("confirmation_required candidate should require selection even alone")
	}
}

func TestSupportedAIDMatchesAID(t *testing.T) {
	exact := SupportedAID{AID: []byte{0xA0, 0x00, 0x00, 0x00, 0x03}, Mode: MatchExact}
	if !exact.MatchesAID([]byte{0xA0, 0x00, 0x00, 0x00, 0x03}) {
		t.Fatalf("expected exact match")
	}
	if exact.MatchesAID([]byte{0xA0, 0x00, 0x00, 0x00, 0x03, 0x10}) {
		t.Fatalf("exact mode must not accept a longer AID")
	}

	partial := SupportedAID{AID: []byte{0xA0, 0x00, 0x00, 0x00, 0x03}, Mode: MatchPartial}
	if !partial.MatchesAID([]byte{0xA0, 0x00, 0x00, 0x00, 0x03, 0x10, 0x10}) {
		t.Fatalf("expected partial prefix match")
	}
	if partial.MatchesAID([]byte{0xA0, 0x00, 0x00, 0x00, 0x04}) {
		t.Fatalf("partial mode must reject non-prefix")
	}
}
