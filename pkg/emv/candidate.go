package emv

import "sort"

// MatchMode controls how a terminal-supported AID is compared against an
// AID presented by the card (§4.5).
type MatchMode int

const (
	MatchExact MatchMode = iota
	MatchPartial
)

// SupportedAID is one entry of the terminal's configured AID list (§4.5,
// §6).
type SupportedAID struct {
	AID  []byte
	Mode MatchMode
}

// MatchesAID reports whether a card AID X matches a supported entry
// (Y, mode): exact mode requires X == Y; partial mode requires Y to be a
// prefix of X (§4.5).
func (s SupportedAID) MatchesAID(x []byte) bool {
	switch s.Mode {
	case MatchExact:
		return bytesEqual(s.AID, x)
	case MatchPartial:
		return len(x) >= len(s.AID) && bytesEqual(s.AID, x[:len(s.AID)])
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Application is one candidate application instance discovered during
// selection (§3). It owns its FCI-derived TLV list exclusively until
// added to a CandidateList, at which point the list takes ownership.
type Application struct {
	AID                 []byte
	Priority            int // 1..15; 0 = unspecified
	ConfirmationRequired bool
	DisplayName         string
	FCI                 *List

	discoveryIndex int // stable-sort tiebreaker, set when pushed
}

// CandidateList is the insertion-ordered sequence of candidate
// applications built during selection (§3). The list owns each element
// until it is popped or removed.
type CandidateList struct {
	apps []*Application
}

// NewCandidateList returns an empty candidate list.
func NewCandidateList() *CandidateList {
	return &CandidateList{}
}

// Push appends an application, transferring ownership of its FCI list.
func (c *CandidateList) Push(app *Application) {
	app.discoveryIndex = len(c.apps)
	c.apps = append(c.apps, app)
}

// Len returns the number of candidates remaining.
func (c *CandidateList) Len() int { return len(c.apps) }

// At returns the candidate at index i without removing it.
func (c *CandidateList) At(i int) *Application { return c.apps[i] }

// All returns the candidates in their current order. The returned slice
// must not be mutated by the caller.
func (c *CandidateList) All() []*Application { return c.apps }

// RemoveAt removes and returns the candidate at index i.
func (c *CandidateList) RemoveAt(i int) *Application {
	app := c.apps[i]
	c.apps = append(c.apps[:i], c.apps[i+1:]...)
	return app
}

// HasAID reports whether an application with the given AID is already
// present, used to deduplicate PSE and AID-list discovery results (§4.5).
func (c *CandidateList) HasAID(aid []byte) bool {
	for _, app := range c.apps {
		if bytesEqual(app.AID, aid) {
			return true
		}
	}
	return false
}

// SortByPriority stably sorts the candidate list: applications with a
// priority indicator sort ascending by priority; applications without one
// (Priority == 0) sort after all indicated ones, in original discovery
// order (§4.5, §8).
func (c *CandidateList) SortByPriority() {
	sort.SliceStable(c.apps, func(i, j int) bool {
		a, b := c.apps[i], c.apps[j]
		aHas := a.Priority != 0
		bHas := b.Priority != 0
		if aHas != bHas {
			return aHas // prioritized entries sort before unprioritized ones
		}
		if aHas && bHas && a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.discoveryIndex < b.discoveryIndex
	})
}

// RequiresCardholderSelection reports whether the candidate list needs
// explicit cardholder confirmation before selection (§4.5): true if any
// application requires confirmation, or if there is more than one
// candidate.
func (c *CandidateList) RequiresCardholderSelection() bool {
	if len(c.apps) > 1 {
		return true
	}
	for _, app := range c.apps {
		if app.ConfirmationRequired {
			return true
		}
	}
	return false
}
