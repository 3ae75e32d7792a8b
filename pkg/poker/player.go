package poker

import (
	"fmt"

	"github.com/vctt94/holdemsrv/pkg/statemachine"
)

// Player lifecycle states within a hand.
const (
	StateInGame = "IN_GAME"
	StateFolded = "FOLDED"
	StateAllIn  = "ALL_IN"
	StateBusted = "BUSTED"
)

// Player is the per-seat state for one hand: hole cards, chips behind,
// chips committed, and the fold/all-in lifecycle.
type Player struct {
	// Identity
	ID   string
	Name string
	Seat int // 0-based seat position, fixed for the hand

	// Chips
	Balance         int64 // stack behind
	StartingBalance int64 // stack at hand start
	CurrentBet      int64 // committed this betting round
	TotalBet        int64 // committed this hand

	// Hand state
	Hand       []Card
	HasFolded  bool
	IsAllIn    bool
	LastAction Action

	// Populated at showdown
	HandValue *HandValue

	sm *statemachine.StateMachine[Player]
}

// NewPlayer creates a player seated at seat with the given starting chips.
func NewPlayer(id, name string, seat int, balance int64) *Player {
	p := &Player{
		ID:              id,
		Name:            name,
		Seat:            seat,
		Balance:         balance,
		StartingBalance: balance,
		Hand:            make([]Card, 0, 2),
	}
	p.sm = statemachine.New(p, StateInGame)
	p.sm.Register(StateInGame, playerStateInGame)
	p.sm.Register(StateFolded, playerStateFolded)
	p.sm.Register(StateAllIn, playerStateAllIn)
	p.sm.Register(StateBusted, playerStateBusted)
	return p
}

// State functions. Each normalizes the player's flags for its state and
// returns the name of the state the player's data says it should be in.

func playerStateInGame(p *Player) string {
	if p.HasFolded {
		return StateFolded
	}
	if p.Balance == 0 && p.TotalBet > 0 {
		return StateAllIn
	}
	p.IsAllIn = false
	return StateInGame
}

func playerStateFolded(p *Player) string {
	if !p.HasFolded {
		return StateInGame
	}
	p.IsAllIn = false
	return StateFolded
}

func playerStateAllIn(p *Player) string {
	if p.HasFolded {
		return StateFolded
	}
	if p.Balance > 0 {
		return StateInGame
	}
	p.IsAllIn = true
	return StateAllIn
}

func playerStateBusted(p *Player) string {
	if p.Balance > 0 {
		return StateInGame
	}
	p.HasFolded = false
	p.IsAllIn = false
	return StateBusted
}

// State returns the player's current lifecycle state name.
func (p *Player) State() string {
	return p.sm.Current()
}

// SetState forces the player into the named state and normalizes flags.
func (p *Player) SetState(name string) error {
	if err := p.sm.Set(name); err != nil {
		return err
	}
	switch name {
	case StateFolded:
		p.HasFolded = true
		p.IsAllIn = false
	case StateAllIn:
		p.HasFolded = false
		p.IsAllIn = true
	default:
		p.HasFolded = false
		p.IsAllIn = false
	}
	return nil
}

// syncState steps the state machine once so the current state matches the
// player's flags and balance.
func (p *Player) syncState() {
	_ = p.sm.Step()
}

// CanAct reports whether the player can still take betting actions this hand.
func (p *Player) CanAct() bool {
	return !p.HasFolded && !p.IsAllIn && p.Balance > 0
}

// commit moves amount from the player's stack into their bet for this round.
// Callers guarantee amount <= Balance; a player never bets more than they own.
func (p *Player) commit(amount int64) {
	if amount > p.Balance {
		panic(fmt.Sprintf("poker: player %s committing %d with balance %d", p.ID, amount, p.Balance))
	}
	p.Balance -= amount
	p.CurrentBet += amount
	p.TotalBet += amount
	if p.Balance == 0 {
		p.IsAllIn = true
		_ = p.sm.Set(StateAllIn)
	}
}

// ResetForNewHand clears per-hand state, keeping identity and seat. The
// player's stack carries over from the previous hand.
func (p *Player) ResetForNewHand() {
	p.Hand = make([]Card, 0, 2)
	p.StartingBalance = p.Balance
	p.CurrentBet = 0
	p.TotalBet = 0
	p.LastAction = nil
	p.HandValue = nil
	if p.Balance > 0 {
		_ = p.SetState(StateInGame)
	} else {
		_ = p.SetState(StateBusted)
	}
}

// GetHandString returns a string representation of the player's hole cards.
func (p *Player) GetHandString() string {
	if len(p.Hand) == 0 {
		return "No cards"
	}
	str := ""
	for i, card := range p.Hand {
		if i > 0 {
			str += " "
		}
		str += card.String()
	}
	return str
}
