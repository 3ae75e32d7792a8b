package poker

import (
	"fmt"
	"sort"
)

// Pot represents one pot of chips: the main pot or a side pot. Eligibility is
// a seat-aligned mask of the players who can win it.
type Pot struct {
	Amount      int64
	Eligibility []bool // len == number of seats
}

// NewPot creates an empty pot for a table of nPlayers seats.
func NewPot(nPlayers int) *Pot {
	return &Pot{Eligibility: make([]bool, nPlayers)}
}

// MakeEligible marks a seat as eligible to win this pot.
func (p *Pot) MakeEligible(seat int) {
	p.Eligibility[seat] = true
}

// IsEligible checks if a seat is eligible to win this pot.
func (p *Pot) IsEligible(seat int) bool {
	return p.Eligibility[seat]
}

// EligibleIDs returns the identifiers of the players eligible for this pot,
// in seat order.
func (p *Pot) EligibleIDs(players []*Player) []string {
	ids := make([]string, 0, len(players))
	for seat, elig := range p.Eligibility {
		if elig && seat < len(players) && players[seat] != nil {
			ids = append(ids, players[seat].ID)
		}
	}
	return ids
}

// PotManager tracks per-seat bets and derives the main pot and side pots.
// Pots are never patched incrementally: Rebuild recomputes the full layering
// from committed totals after every bet-affecting action, so the pot total
// always equals the chips committed this hand.
type PotManager struct {
	pots        []*Pot
	currentBets []int64 // this betting round, by seat
	totalBets   []int64 // whole hand, by seat
}

// NewPotManager creates a pot manager for a table of nPlayers seats.
func NewPotManager(nPlayers int) *PotManager {
	return &PotManager{
		pots:        []*Pot{NewPot(nPlayers)},
		currentBets: make([]int64, nPlayers),
		totalBets:   make([]int64, nPlayers),
	}
}

// AddBet records amount committed by seat. Pots are not touched here; call
// Rebuild afterwards.
func (pm *PotManager) AddBet(seat int, amount int64) {
	pm.currentBets[seat] += amount
	pm.totalBets[seat] += amount
}

// ResetCurrentBets clears the per-round bets for a new betting round. Hand
// totals are kept.
func (pm *PotManager) ResetCurrentBets() {
	for i := range pm.currentBets {
		pm.currentBets[i] = 0
	}
}

// Pots returns the main pot followed by side pots in creation order.
func (pm *PotManager) Pots() []*Pot {
	return pm.pots
}

// MainPot returns the main pot.
func (pm *PotManager) MainPot() *Pot {
	return pm.pots[0]
}

// SidePots returns the side pots in ascending cap order.
func (pm *PotManager) SidePots() []*Pot {
	return pm.pots[1:]
}

// GetTotalPot returns the total amount across all pots.
func (pm *PotManager) GetTotalPot() int64 {
	var total int64
	for _, pot := range pm.pots {
		total += pot.Amount
	}
	return total
}

// GetCurrentBet returns the seat's bet in the current betting round.
func (pm *PotManager) GetCurrentBet(seat int) int64 {
	return pm.currentBets[seat]
}

// GetTotalBet returns the seat's total committed chips this hand.
func (pm *PotManager) GetTotalBet(seat int) int64 {
	return pm.totalBets[seat]
}

// Rebuild recomputes main and side pots from committed totals and fold
// status. Each distinct bet total is a layer cap; a layer's amount is every
// player's contribution between the previous cap and this one, and its
// eligible set is the non-folded players whose total reached the cap. Folded
// players' chips stay in the layers they paid into but they are never
// eligible. Rebuild verifies conservation: the pots must sum exactly to the
// chips committed, otherwise the hand is corrupt and ErrPotMismatch is
// returned.
func (pm *PotManager) Rebuild(players []*Player) error {
	n := len(players)

	seen := make(map[int64]bool)
	for i := 0; i < n; i++ {
		if b := pm.totalBets[i]; b > 0 {
			seen[b] = true
		}
	}
	if len(seen) == 0 {
		pm.pots = []*Pot{NewPot(n)}
		return nil
	}

	levels := make([]int64, 0, len(seen))
	for b := range seen {
		levels = append(levels, b)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	pots := make([]*Pot, 0, len(levels))
	prev := int64(0)
	for _, lvl := range levels {
		p := NewPot(n)
		for i := 0; i < n; i++ {
			if players[i] != nil && !players[i].HasFolded && pm.totalBets[i] >= lvl {
				p.Eligibility[i] = true
			}
			tb := pm.totalBets[i]
			if tb > prev {
				c := tb
				if c > lvl {
					c = lvl
				}
				p.Amount += c - prev
			}
		}
		pots = append(pots, p)
		prev = lvl
	}

	// Collapse layers that did not split the field: a layer whose eligible
	// set matches the previous layer's is the same pot.
	merged := pots[:1]
	for _, p := range pots[1:] {
		last := merged[len(merged)-1]
		if sameEligibility(last.Eligibility, p.Eligibility) {
			last.Amount += p.Amount
		} else {
			merged = append(merged, p)
		}
	}
	pm.pots = merged

	return pm.checkConservation()
}

// checkConservation verifies mainPot + side pots == all chips committed.
func (pm *PotManager) checkConservation() error {
	var committed int64
	for _, tb := range pm.totalBets {
		committed += tb
	}
	if total := pm.GetTotalPot(); total != committed {
		return fmt.Errorf("%w: pots total %d, committed %d", ErrPotMismatch, total, committed)
	}
	return nil
}

func sameEligibility(a, b []bool) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ReturnUncalledBet refunds the uncalled portion of the highest bet to the
// player who made it, returning the amount and the seat refunded (or 0, -1).
// Called before showdown so no pot exists that only its own contributor
// could win.
func (pm *PotManager) ReturnUncalledBet(players []*Player) (int64, int) {
	var hi, second int64
	hiSeat := -1

	for seat, bet := range pm.totalBets {
		if bet > hi {
			second = hi
			hi = bet
			hiSeat = seat
		} else if bet > second {
			second = bet
		}
	}

	if hiSeat < 0 || hi == second {
		return 0, -1
	}

	uncalled := hi - second
	players[hiSeat].Balance += uncalled
	players[hiSeat].TotalBet -= uncalled
	if pm.currentBets[hiSeat] >= uncalled {
		pm.currentBets[hiSeat] -= uncalled
	} else {
		pm.currentBets[hiSeat] = 0
	}
	pm.totalBets[hiSeat] -= uncalled
	return uncalled, hiSeat
}
