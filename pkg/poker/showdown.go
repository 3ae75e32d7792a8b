package poker

import "fmt"

// ShowdownEntry records one contender's holding at showdown.
type ShowdownEntry struct {
	PlayerID  string
	Seat      int
	HoleCards []Card
	HandValue *HandValue
	Payout    int64
}

// PotResult records the resolution of a single pot layer.
type PotResult struct {
	Amount    int64
	Eligible  []string
	Winners   []string
	Share     int64
	Remainder int64
}

// ShowdownResult is the full outcome of one hand.
type ShowdownResult struct {
	HandNum    int
	Board      []Card
	Pots       []PotResult
	Entries    []ShowdownEntry
	TotalAward int64

	// Uncalled is the portion of the highest bet returned to its owner
	// before the pots were resolved.
	Uncalled       int64
	UncalledPlayer string
}

// finishShowdown resolves the hand: refunds any uncalled bet, rebuilds the
// pot layers a final time and pays each pot to its winners. With a single
// survivor the pot is awarded without evaluating any hands. Ties split each
// pot evenly; odd chips go to the first winner in seat order after the
// dealer. Called with the game lock held.
func (g *Game) finishShowdown() error {
	refund, refundSeat := g.potManager.ReturnUncalledBet(g.players)
	if err := g.potManager.Rebuild(g.players); err != nil {
		return err
	}

	result := &ShowdownResult{
		HandNum: g.handNum,
		Board:   append([]Card(nil), g.communityCards...),
	}
	if refund > 0 {
		result.Uncalled = refund
		result.UncalledPlayer = g.players[refundSeat].ID
	}

	contenders := make([]*Player, 0, len(g.players))
	for _, p := range g.players {
		if g.inHand(p) {
			contenders = append(contenders, p)
		}
	}

	if len(contenders) == 0 {
		return fmt.Errorf("%w: no contenders at showdown", ErrPotMismatch)
	}

	if len(contenders) > 1 {
		for _, p := range contenders {
			hv, err := Evaluate(append(append([]Card(nil), p.Hand...), g.communityCards...))
			if err != nil {
				return fmt.Errorf("evaluating %s: %w", p.ID, err)
			}
			p.HandValue = &hv
		}
	}

	payouts := make(map[string]int64)
	for _, pot := range g.potManager.Pots() {
		pr := PotResult{Amount: pot.Amount}

		eligible := make([]*Player, 0, len(contenders))
		for _, p := range contenders {
			if pot.IsEligible(p.Seat) {
				eligible = append(eligible, p)
				pr.Eligible = append(pr.Eligible, p.ID)
			}
		}
		if len(eligible) == 0 || pot.Amount == 0 {
			if pot.Amount > 0 {
				return fmt.Errorf("%w: pot of %d with no eligible player", ErrPotMismatch, pot.Amount)
			}
			continue
		}

		var winners []*Player
		if len(contenders) == 1 {
			winners = eligible
		} else {
			for _, p := range eligible {
				if len(winners) == 0 {
					winners = append(winners, p)
					continue
				}
				switch CompareHands(*p.HandValue, *winners[0].HandValue) {
				case 1:
					winners = winners[:0]
					winners = append(winners, p)
				case 0:
					winners = append(winners, p)
				}
			}
		}

		share := pot.Amount / int64(len(winners))
		remainder := pot.Amount % int64(len(winners))
		payouts[g.firstAfterDealer(winners).ID] += remainder
		for _, w := range winners {
			payouts[w.ID] += share
			pr.Winners = append(pr.Winners, w.ID)
		}
		pr.Share = share
		pr.Remainder = remainder
		result.TotalAward += pot.Amount
		result.Pots = append(result.Pots, pr)
	}

	for _, p := range contenders {
		p.Balance += payouts[p.ID]
		result.Entries = append(result.Entries, ShowdownEntry{
			PlayerID:  p.ID,
			Seat:      p.Seat,
			HoleCards: append([]Card(nil), p.Hand...),
			HandValue: p.HandValue,
			Payout:    payouts[p.ID],
		})
	}

	// The pot has been paid out: clear the per-hand tallies so balances
	// alone account for every chip between hands.
	for _, p := range g.players {
		p.CurrentBet = 0
		p.TotalBet = 0
	}
	g.potManager = NewPotManager(len(g.players))

	g.lastShowdown = result
	g.handActive = false
	_ = g.rounds.Set(RoundShowdown)

	g.log.Infof("hand %d resolved: %d pot(s), %d chips awarded",
		g.handNum, len(result.Pots), result.TotalAward)
	return nil
}

// firstAfterDealer returns the candidate closest after the dealer in seat
// order, wrapping.
func (g *Game) firstAfterDealer(candidates []*Player) *Player {
	n := len(g.players)
	for i := 1; i <= n; i++ {
		seat := (g.dealer + i) % n
		for _, p := range candidates {
			if p.Seat == seat {
				return p
			}
		}
	}
	return candidates[0]
}
