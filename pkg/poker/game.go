package poker

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/vctt94/holdemsrv/pkg/statemachine"
)

// Betting round names. A hand walks PREFLOP through SHOWDOWN; SHOWDOWN is
// terminal for the hand and the next hand restarts at PREFLOP with a rotated
// dealer.
const (
	RoundPreflop  = "PREFLOP"
	RoundFlop     = "FLOP"
	RoundTurn     = "TURN"
	RoundRiver    = "RIVER"
	RoundShowdown = "SHOWDOWN"
)

// Structure is the betting limit structure of a game.
type Structure string

const (
	// NoLimit allows raising any amount up to the player's stack.
	NoLimit Structure = "NL"

	// PotLimit caps a raise at the current total pot plus twice the call
	// amount.
	PotLimit Structure = "PL"

	// FixedLimit restricts raises to a fixed increment over the current bet.
	FixedLimit Structure = "FL"
)

// GameConfig holds configuration for a new game session.
type GameConfig struct {
	SmallBlind int64
	BigBlind   int64

	// Structure defaults to NoLimit.
	Structure Structure

	// FixedIncrement is the per-round raise step for FixedLimit games.
	// Defaults to the big blind.
	FixedIncrement int64

	// Seed makes deck shuffles deterministic when non-zero.
	Seed int64

	Log slog.Logger
}

// Game owns all mutable state for one table session: the deck, the players,
// the pots and the betting-round state machine. A Game processes at most one
// action at a time; its mutex serializes concurrent submissions so bet
// totals, pot recomputation and turn advancement never interleave.
// Independent Games share nothing.
type Game struct {
	log slog.Logger
	mu  sync.Mutex

	cfg     GameConfig
	players []*Player // seat-ordered, fixed for the session
	rng     *rand.Rand

	// Per-hand state
	deck           *Deck
	communityCards []Card
	potManager     *PotManager
	dealer         int
	current        int // seat to act
	currentBet     int64
	lastRaiseSize  int64
	frozen         map[int]bool // seats barred from re-raising until a full raise reopens betting
	rounds         *statemachine.StateMachine[Game]
	dealErr        error
	handActive     bool
	handNum        int

	lastShowdown *ShowdownResult
}

// NewGame creates a game session for the given seat-ordered players. Seats
// are assigned from slice order.
func NewGame(cfg GameConfig, players []*Player) (*Game, error) {
	if len(players) < 2 || len(players) > 9 {
		return nil, fmt.Errorf("poker: table seats 2-9 players, got %d", len(players))
	}
	if cfg.SmallBlind <= 0 || cfg.BigBlind < cfg.SmallBlind {
		return nil, fmt.Errorf("poker: invalid blinds %d/%d", cfg.SmallBlind, cfg.BigBlind)
	}
	if cfg.Structure == "" {
		cfg.Structure = NoLimit
	}
	if cfg.FixedIncrement == 0 {
		cfg.FixedIncrement = cfg.BigBlind
	}
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}

	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Seed))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	for seat, p := range players {
		p.Seat = seat
	}

	g := &Game{
		log:        cfg.Log,
		cfg:        cfg,
		players:    players,
		rng:        rng,
		dealer:     -1,
		current:    -1,
		potManager: NewPotManager(len(players)),
		frozen:     make(map[int]bool),
	}
	return g, nil
}

// newRoundMachine builds the betting-round state machine for one hand. Each
// state's function performs the transition out of that round: dealing the
// next street and resetting bets.
func (g *Game) newRoundMachine() *statemachine.StateMachine[Game] {
	sm := statemachine.New(g, RoundPreflop)
	sm.Register(RoundPreflop, func(g *Game) string {
		g.dealCommunity(3)
		g.beginRound()
		return RoundFlop
	})
	sm.Register(RoundFlop, func(g *Game) string {
		g.dealCommunity(1)
		g.beginRound()
		return RoundTurn
	})
	sm.Register(RoundTurn, func(g *Game) string {
		g.dealCommunity(1)
		g.beginRound()
		return RoundRiver
	})
	sm.Register(RoundRiver, func(g *Game) string {
		return RoundShowdown
	})
	sm.Register(RoundShowdown, func(g *Game) string {
		return statemachine.Terminal
	})
	return sm
}

// StartHand begins a new hand: rotates the dealer, resets per-hand player
// state, reshuffles, deals hole cards and posts the blinds. Short stacks
// post what they can and are all-in.
func (g *Game) StartHand() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.handActive {
		return fmt.Errorf("poker: hand %d still in progress", g.handNum)
	}

	funded := 0
	for _, p := range g.players {
		if p.Balance > 0 {
			funded++
		}
	}
	if funded < 2 {
		return fmt.Errorf("poker: need 2 funded players to start a hand, have %d", funded)
	}

	g.handNum++
	for _, p := range g.players {
		p.ResetForNewHand()
	}

	g.dealer = g.nextFunded(g.dealer)
	g.deck = NewDeck(g.rng)
	g.communityCards = nil
	g.potManager = NewPotManager(len(g.players))
	g.currentBet = 0
	g.lastRaiseSize = g.cfg.BigBlind
	g.frozen = make(map[int]bool)
	g.rounds = g.newRoundMachine()
	g.dealErr = nil
	g.lastShowdown = nil

	// Two passes, one card per funded player each, as dealt at a live table.
	for i := 0; i < 2; i++ {
		for _, p := range g.players {
			if p.State() == StateBusted {
				continue
			}
			card, err := g.deck.Draw()
			if err != nil {
				return fmt.Errorf("dealing hole cards: %w", err)
			}
			p.Hand = append(p.Hand, card)
		}
	}

	if err := g.postBlinds(); err != nil {
		return err
	}

	if err := g.potManager.Rebuild(g.players); err != nil {
		return err
	}

	g.current = g.firstToActPreflop()
	g.handActive = true

	g.log.Debugf("hand %d started: dealer=%d first-to-act=%d blinds=%d/%d",
		g.handNum, g.dealer, g.current, g.cfg.SmallBlind, g.cfg.BigBlind)

	// The blinds alone can close the betting, e.g. both blind posters
	// all-in on the post. Run the streets out immediately.
	if g.isRoundComplete() && g.canActCount() <= 1 {
		return g.afterAction()
	}
	return nil
}

// postBlinds posts the small and big blind. Heads-up the dealer posts the
// small blind. A player who cannot cover a blind posts their whole stack and
// is all-in. The table bet is the full big blind amount either way.
func (g *Game) postBlinds() error {
	funded := g.fundedCount()

	sbSeat := g.nextFunded(g.dealer)
	if funded == 2 {
		sbSeat = g.dealer
	}
	bbSeat := g.nextFunded(sbSeat)

	for _, post := range []struct {
		seat   int
		amount int64
	}{
		{sbSeat, g.cfg.SmallBlind},
		{bbSeat, g.cfg.BigBlind},
	} {
		p := g.players[post.seat]
		amount := post.amount
		if amount > p.Balance {
			amount = p.Balance
			g.log.Debugf("player %s posts short blind %d (stack %d)", p.ID, amount, post.amount)
		}
		p.commit(amount)
		g.potManager.AddBet(post.seat, amount)
	}

	g.currentBet = g.cfg.BigBlind
	return nil
}

// firstToActPreflop returns the under-the-gun seat: three seats after the
// dealer, wrapping. Heads-up the dealer (small blind) acts first.
func (g *Game) firstToActPreflop() int {
	if g.fundedAtDeal() == 2 {
		if g.players[g.dealer].CanAct() {
			return g.dealer
		}
		return g.nextActor(g.dealer)
	}
	seat := (g.dealer + 3) % len(g.players)
	if g.players[seat].CanAct() && g.inHand(g.players[seat]) {
		return seat
	}
	return g.nextActor(seat - 1)
}

// ApplyAction validates and applies one player action. Rule violations are
// rejected with no state mutation; after an accepted action the pots are
// rebuilt from scratch and the hand advances (next actor, next street, or
// showdown).
func (g *Game) ApplyAction(playerID string, action Action) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.handActive {
		return ErrHandNotActive
	}

	seat, p := g.findPlayer(playerID)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	if seat != g.current {
		return fmt.Errorf("%w: acting seat is %d (%s), got %s",
			ErrNotPlayersTurn, g.current, g.players[g.current].ID, playerID)
	}
	if p.HasFolded {
		return fmt.Errorf("%w: %s", ErrPlayerFolded, playerID)
	}

	switch a := action.(type) {
	case Fold:
		_ = p.SetState(StateFolded)

	case Check:
		if p.CurrentBet != g.currentBet {
			return fmt.Errorf("%w: table bet %d, player bet %d", ErrIllegalCheck, g.currentBet, p.CurrentBet)
		}

	case Call:
		shortfall := g.currentBet - p.CurrentBet
		if shortfall > p.Balance {
			// A call the player cannot cover degrades to an all-in call.
			shortfall = p.Balance
		}
		if shortfall > 0 {
			p.commit(shortfall)
			g.potManager.AddBet(seat, shortfall)
		}

	case Raise:
		if err := g.applyRaise(seat, p, a.Amount); err != nil {
			return err
		}

	case AllIn:
		if err := g.applyAllIn(seat, p); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unsupported action %T", action)
	}

	p.LastAction = action
	p.syncState()

	if err := g.potManager.Rebuild(g.players); err != nil {
		// Invariant violation: the hand is corrupt. Never swallowed.
		g.log.Errorf("hand %d: %v", g.handNum, err)
		return err
	}

	g.log.Debugf("hand %d: seat %d (%s) %s; pot=%d table bet=%d",
		g.handNum, seat, p.ID, action, g.potManager.GetTotalPot(), g.currentBet)

	return g.afterAction()
}

// applyRaise validates a raise to total amount and commits the delta.
func (g *Game) applyRaise(seat int, p *Player, amount int64) error {
	if amount <= g.currentBet {
		return fmt.Errorf("%w: raise to %d, table bet %d", ErrIllegalRaise, amount, g.currentBet)
	}
	if g.frozen[seat] {
		return fmt.Errorf("%w: betting was not reopened by the short all-in", ErrIllegalRaise)
	}

	callAmount := g.currentBet - p.CurrentBet
	switch g.cfg.Structure {
	case PotLimit:
		if max := g.potManager.GetTotalPot() + 2*callAmount; amount > max {
			return fmt.Errorf("%w: raise to %d, pot limit %d", ErrRaiseExceedsLimit, amount, max)
		}
	case FixedLimit:
		if max := g.currentBet + g.cfg.FixedIncrement; amount > max {
			return fmt.Errorf("%w: raise to %d, fixed limit %d", ErrRaiseExceedsLimit, amount, max)
		}
	}

	if amount > p.Balance+p.CurrentBet {
		return fmt.Errorf("%w: raise to %d, stack covers %d", ErrInsufficientChips, amount, p.Balance+p.CurrentBet)
	}

	delta := amount - p.CurrentBet
	raiseSize := amount - g.currentBet
	p.commit(delta)
	g.potManager.AddBet(seat, delta)
	g.currentBet = amount
	g.lastRaiseSize = raiseSize
	g.frozen = make(map[int]bool) // a full raise reopens betting for everyone
	return nil
}

// applyAllIn commits the player's entire stack. An all-in above the table bet
// becomes the new table bet; if it falls short of a full raise increment it
// does not reopen betting for players who already matched the previous bet
// (conventional cardroom rule; they may call the difference but not re-raise).
func (g *Game) applyAllIn(seat int, p *Player) error {
	delta := p.Balance
	newBet := p.CurrentBet + delta
	prevBet := g.currentBet
	if newBet > prevBet && g.frozen[seat] {
		return fmt.Errorf("%w: betting was not reopened by the short all-in", ErrIllegalRaise)
	}
	if delta > 0 {
		p.commit(delta)
		g.potManager.AddBet(seat, delta)
	}
	_ = p.SetState(StateAllIn)

	if newBet <= prevBet {
		return nil
	}
	raiseSize := newBet - prevBet
	g.currentBet = newBet
	if raiseSize >= g.lastRaiseSize {
		g.lastRaiseSize = raiseSize
		g.frozen = make(map[int]bool)
		return nil
	}
	for i, q := range g.players {
		if i != seat && g.inHand(q) && !q.IsAllIn && q.CurrentBet == prevBet {
			g.frozen[i] = true
		}
	}
	return nil
}

// afterAction advances the hand after an accepted action: award on a single
// survivor, advance the street when betting closed, auto-run remaining
// streets when fewer than two players can still bet, otherwise pass the
// action to the next seat.
func (g *Game) afterAction() error {
	if g.survivors() == 1 {
		return g.finishShowdown()
	}

	if !g.isRoundComplete() {
		g.current = g.nextActor(g.current)
		return nil
	}

	for {
		if g.rounds.Current() == RoundShowdown {
			return g.finishShowdown()
		}
		if err := g.rounds.Step(); err != nil {
			return err
		}
		if g.dealErr != nil {
			return g.dealErr
		}
		if g.rounds.Current() == RoundShowdown {
			return g.finishShowdown()
		}
		if g.canActCount() > 1 {
			return nil
		}
		// Betting is closed for the rest of the hand; streets run out.
	}
}

// isRoundComplete reports whether every non-folded, non-all-in player has
// matched the table bet.
func (g *Game) isRoundComplete() bool {
	for _, p := range g.players {
		if !g.inHand(p) || p.IsAllIn {
			continue
		}
		if p.CurrentBet != g.currentBet {
			return false
		}
	}
	return true
}

// beginRound resets bets for a new betting round and puts the action on the
// first live seat after the dealer.
func (g *Game) beginRound() {
	g.currentBet = 0
	g.lastRaiseSize = g.cfg.BigBlind
	g.frozen = make(map[int]bool)
	g.potManager.ResetCurrentBets()
	for _, p := range g.players {
		p.CurrentBet = 0
	}
	g.current = g.nextActor(g.dealer)
}

// dealCommunity deals n community cards, recording structural failures for
// the caller of Step to surface.
func (g *Game) dealCommunity(n int) {
	cards, err := g.deck.DealMany(n)
	if err != nil {
		g.dealErr = fmt.Errorf("dealing community cards: %w", err)
		return
	}
	g.communityCards = append(g.communityCards, cards...)
}

// Seat/turn helpers.

func (g *Game) findPlayer(playerID string) (int, *Player) {
	for seat, p := range g.players {
		if p.ID == playerID {
			return seat, p
		}
	}
	return -1, nil
}

func (g *Game) inHand(p *Player) bool {
	return len(p.Hand) > 0 && !p.HasFolded
}

func (g *Game) survivors() int {
	n := 0
	for _, p := range g.players {
		if g.inHand(p) {
			n++
		}
	}
	return n
}

func (g *Game) canActCount() int {
	n := 0
	for _, p := range g.players {
		if g.inHand(p) && p.CanAct() {
			n++
		}
	}
	return n
}

func (g *Game) fundedCount() int {
	n := 0
	for _, p := range g.players {
		if p.Balance > 0 || p.TotalBet > 0 {
			n++
		}
	}
	return n
}

// fundedAtDeal counts players dealt into this hand.
func (g *Game) fundedAtDeal() int {
	n := 0
	for _, p := range g.players {
		if len(p.Hand) > 0 {
			n++
		}
	}
	return n
}

// nextFunded returns the next seat after from holding chips or live chips in
// the pot, wrapping.
func (g *Game) nextFunded(from int) int {
	n := len(g.players)
	for i := 1; i <= n; i++ {
		seat := ((from + i) % n + n) % n
		p := g.players[seat]
		if p.Balance > 0 || p.TotalBet > 0 {
			return seat
		}
	}
	return (from + 1) % n
}

// nextActor returns the next seat after from that can still act this round,
// wrapping and skipping folded, all-in and empty-stack seats.
func (g *Game) nextActor(from int) int {
	n := len(g.players)
	for i := 1; i <= n; i++ {
		seat := ((from + i) % n + n) % n
		p := g.players[seat]
		if g.inHand(p) && p.CanAct() {
			return seat
		}
	}
	return g.current
}

// Accessors. These take the game lock; internal code reads fields directly.

// GetPhase returns the current betting round name, or "" between hands
// before the first StartHand.
func (g *Game) GetPhase() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rounds == nil {
		return ""
	}
	return g.rounds.Current()
}

// HandActive reports whether a hand is in progress.
func (g *Game) HandActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.handActive
}

// GetPot returns the total pot amount.
func (g *Game) GetPot() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.potManager.GetTotalPot()
}

// GetCurrentBet returns the table-wide bet every active player must match.
func (g *Game) GetCurrentBet() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentBet
}

// GetCommunityCards returns a copy of the community cards.
func (g *Game) GetCommunityCards() []Card {
	g.mu.Lock()
	defer g.mu.Unlock()
	cards := make([]Card, len(g.communityCards))
	copy(cards, g.communityCards)
	return cards
}

// GetCurrentPlayerID returns the ID of the player whose turn it is, or ""
// when no hand is active.
func (g *Game) GetCurrentPlayerID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.handActive || g.current < 0 || g.current >= len(g.players) {
		return ""
	}
	return g.players[g.current].ID
}

// GetDealer returns the dealer seat index.
func (g *Game) GetDealer() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dealer
}

// Players returns the seat-ordered players. The slice is shared with the
// game; callers must not mutate player state.
func (g *Game) Players() []*Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.players
}

// GetPlayer returns the player with the given ID.
func (g *Game) GetPlayer(playerID string) (*Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, p := g.findPlayer(playerID); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
}

// LastShowdown returns the result of the most recently resolved hand, or nil.
func (g *Game) LastShowdown() *ShowdownResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastShowdown
}
