package poker

import (
	"fmt"
	"math/rand"
	"time"
)

// PlayerSnapshot is the persistable state of one seat mid-hand.
type PlayerSnapshot struct {
	ID              string `json:"id"`
	Name            string `json:"name,omitempty"`
	Seat            int    `json:"seat"`
	Balance         int64  `json:"balance"`
	StartingBalance int64  `json:"starting_balance"`
	CurrentBet      int64  `json:"current_bet"`
	TotalBet        int64  `json:"total_bet"`
	Hand            []Card `json:"hand,omitempty"`
	State           string `json:"state"`
}

// GameSnapshot captures everything needed to resume a game, including a hand
// in flight: the undealt deck, the board, per-seat chips and the betting
// round.
type GameSnapshot struct {
	HandNum       int              `json:"hand_num"`
	HandActive    bool             `json:"hand_active"`
	Round         string           `json:"round,omitempty"`
	Dealer        int              `json:"dealer"`
	Current       int              `json:"current"`
	CurrentBet    int64            `json:"current_bet"`
	LastRaiseSize int64            `json:"last_raise_size"`
	FrozenSeats   []int            `json:"frozen_seats,omitempty"`
	Community     []Card           `json:"community,omitempty"`
	Deck          *DeckState       `json:"deck,omitempty"`
	Players       []PlayerSnapshot `json:"players"`
}

// Snapshot captures the game's resumable state.
func (g *Game) Snapshot() *GameSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := &GameSnapshot{
		HandNum:       g.handNum,
		HandActive:    g.handActive,
		Dealer:        g.dealer,
		Current:       g.current,
		CurrentBet:    g.currentBet,
		LastRaiseSize: g.lastRaiseSize,
		Community:     append([]Card(nil), g.communityCards...),
	}
	if g.rounds != nil {
		snap.Round = g.rounds.Current()
	}
	if g.deck != nil {
		snap.Deck = g.deck.GetState()
	}
	for seat := range g.frozen {
		snap.FrozenSeats = append(snap.FrozenSeats, seat)
	}
	for _, p := range g.players {
		snap.Players = append(snap.Players, PlayerSnapshot{
			ID:              p.ID,
			Name:            p.Name,
			Seat:            p.Seat,
			Balance:         p.Balance,
			StartingBalance: p.StartingBalance,
			CurrentBet:      p.CurrentBet,
			TotalBet:        p.TotalBet,
			Hand:            append([]Card(nil), p.Hand...),
			State:           p.State(),
		})
	}
	return snap
}

// RestoreGame rebuilds a game from a snapshot. The restored game continues
// from the snapshot's betting round with a fresh rng from cfg.Seed, so the
// remaining deck order comes from the snapshot, not the seed.
func RestoreGame(cfg GameConfig, snap *GameSnapshot) (*Game, error) {
	players := make([]*Player, 0, len(snap.Players))
	for _, ps := range snap.Players {
		p := NewPlayer(ps.ID, ps.Name, ps.Seat, ps.Balance)
		p.StartingBalance = ps.StartingBalance
		p.CurrentBet = ps.CurrentBet
		p.TotalBet = ps.TotalBet
		p.Hand = append(p.Hand, ps.Hand...)
		if err := p.SetState(ps.State); err != nil {
			return nil, fmt.Errorf("restoring player %s: %w", ps.ID, err)
		}
		players = append(players, p)
	}

	g, err := NewGame(cfg, players)
	if err != nil {
		return nil, err
	}
	// NewGame assigns seats by slice order; snapshots store them in order.

	g.handNum = snap.HandNum
	g.handActive = snap.HandActive
	g.dealer = snap.Dealer
	g.current = snap.Current
	g.currentBet = snap.CurrentBet
	g.lastRaiseSize = snap.LastRaiseSize
	g.communityCards = append([]Card(nil), snap.Community...)
	g.frozen = make(map[int]bool)
	for _, seat := range snap.FrozenSeats {
		g.frozen[seat] = true
	}

	if snap.Deck != nil {
		rng := g.rng
		if rng == nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		deck, err := NewDeckFromState(snap.Deck, rng)
		if err != nil {
			return nil, fmt.Errorf("restoring deck: %w", err)
		}
		g.deck = deck
	}

	g.rounds = g.newRoundMachine()
	if snap.Round != "" {
		if err := g.rounds.Set(snap.Round); err != nil {
			return nil, fmt.Errorf("restoring round: %w", err)
		}
	}

	g.potManager = NewPotManager(len(players))
	for seat, p := range players {
		if p.TotalBet > 0 {
			g.potManager.AddBet(seat, p.TotalBet)
			g.potManager.currentBets[seat] = p.CurrentBet
		}
	}
	if err := g.potManager.Rebuild(players); err != nil {
		return nil, err
	}

	return g, nil
}
