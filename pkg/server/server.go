package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/decred/slog"

	"github.com/vctt94/holdemsrv/pkg/poker"
)

// ErrUnknownSession is returned for operations on a session ID that does not
// exist.
var ErrUnknownSession = errors.New("unknown session")

// PlayerSpec describes one player joining a session.
type PlayerSpec struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Buyin int64  `json:"buyin"`
}

// SessionConfig configures a new table session.
type SessionConfig struct {
	SmallBlind     int64            `json:"small_blind"`
	BigBlind       int64            `json:"big_blind"`
	Structure      poker.Structure  `json:"structure,omitempty"`
	FixedIncrement int64            `json:"fixed_increment,omitempty"`
	Seed           int64            `json:"seed,omitempty"`
	Players        []PlayerSpec     `json:"players"`
}

// session binds a running game to its persistence bookkeeping.
type session struct {
	id          string
	cfg         SessionConfig
	game        *poker.Game
	settledHand int // last hand number written to the database
}

// Server hosts table sessions and settles their results against the
// database. Sessions are independent games; the server mutex only guards the
// registry, each game serializes its own actions.
type Server struct {
	log slog.Logger
	db  Database

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewServer creates a server backed by the given database.
func NewServer(db Database, lb *LogBackend) *Server {
	log := slog.Disabled
	if lb != nil {
		log = lb.Logger("SRVR")
	}
	return &Server{
		log:      log,
		db:       db,
		sessions: make(map[string]*session),
	}
}

// CreateSession registers the players, debits their buy-ins from their
// bankrolls and seats them at a new table. Unknown players are created with
// a bankroll equal to their buy-in.
func (s *Server) CreateSession(sessionID string, cfg SessionConfig) error {
	if sessionID == "" {
		return fmt.Errorf("empty session id")
	}

	players := make([]*poker.Player, 0, len(cfg.Players))
	for seat, spec := range cfg.Players {
		if spec.Buyin <= 0 {
			return fmt.Errorf("player %s: buy-in must be positive, got %d", spec.ID, spec.Buyin)
		}
		players = append(players, poker.NewPlayer(spec.ID, spec.Name, seat, spec.Buyin))
	}

	game, err := poker.NewGame(poker.GameConfig{
		SmallBlind:     cfg.SmallBlind,
		BigBlind:       cfg.BigBlind,
		Structure:      cfg.Structure,
		FixedIncrement: cfg.FixedIncrement,
		Seed:           cfg.Seed,
		Log:            s.log,
	}, players)
	if err != nil {
		return err
	}

	// Register unknown players and make sure every bankroll covers its
	// buy-in before any chips move.
	for _, spec := range cfg.Players {
		if err := s.db.RegisterPlayer(spec.ID, spec.Name, spec.Buyin); err != nil {
			return err
		}
		balance, err := s.db.GetPlayerBalance(spec.ID)
		if err != nil {
			return err
		}
		if balance < spec.Buyin {
			return fmt.Errorf("player %s: bankroll %d does not cover buy-in %d",
				spec.ID, balance, spec.Buyin)
		}
	}

	s.mu.Lock()
	if _, exists := s.sessions[sessionID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("session %s already exists", sessionID)
	}
	sess := &session{id: sessionID, cfg: cfg, game: game}
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	for _, spec := range cfg.Players {
		err := s.db.UpdatePlayerBalance(spec.ID, -spec.Buyin, "buy-in",
			fmt.Sprintf("buy-in to session %s", sessionID))
		if err != nil {
			return err
		}
	}

	if err := s.saveState(sess); err != nil {
		return err
	}

	s.log.Infof("session %s created: %d players, blinds %d/%d",
		sessionID, len(cfg.Players), cfg.SmallBlind, cfg.BigBlind)
	return nil
}

// saveState persists the session's resumable snapshot.
func (s *Server) saveState(sess *session) error {
	cfg, err := json.Marshal(sess.cfg)
	if err != nil {
		return fmt.Errorf("failed to encode session config: %v", err)
	}
	snap, err := json.Marshal(sess.game.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to encode session state: %v", err)
	}
	return s.db.SaveSessionState(sess.id, cfg, snap)
}

// RestoreSessions rebuilds every session with stored state, resuming hands
// that were in flight when the server stopped.
func (s *Server) RestoreSessions() error {
	ids, err := s.db.GetSessionIDs()
	if err != nil {
		return err
	}

	for _, id := range ids {
		rawCfg, rawState, err := s.db.LoadSessionState(id)
		if err != nil {
			return err
		}
		var cfg SessionConfig
		if err := json.Unmarshal(rawCfg, &cfg); err != nil {
			return fmt.Errorf("session %s: bad stored config: %v", id, err)
		}
		var snap poker.GameSnapshot
		if err := json.Unmarshal(rawState, &snap); err != nil {
			return fmt.Errorf("session %s: bad stored state: %v", id, err)
		}

		game, err := poker.RestoreGame(poker.GameConfig{
			SmallBlind:     cfg.SmallBlind,
			BigBlind:       cfg.BigBlind,
			Structure:      cfg.Structure,
			FixedIncrement: cfg.FixedIncrement,
			Seed:           cfg.Seed,
			Log:            s.log,
		}, &snap)
		if err != nil {
			return fmt.Errorf("session %s: %v", id, err)
		}

		settled := snap.HandNum
		if snap.HandActive {
			settled--
		}
		s.mu.Lock()
		s.sessions[id] = &session{id: id, cfg: cfg, game: game, settledHand: settled}
		s.mu.Unlock()
		s.log.Infof("session %s restored at hand %d", id, snap.HandNum)
	}
	return nil
}

// StartHand begins the next hand of the session. A hand where the blinds
// close the betting resolves immediately and is settled here.
func (s *Server) StartHand(sessionID string) (*GameState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.game.StartHand(); err != nil {
		return nil, err
	}
	if err := s.settle(sess); err != nil {
		return nil, err
	}
	if err := s.saveState(sess); err != nil {
		return nil, err
	}
	return s.snapshot(sess), nil
}

// ApplyAction submits a player action to the session's game. When the action
// ends the hand, the result is persisted before returning.
func (s *Server) ApplyAction(sessionID, playerID, action string, amount int64) (*GameState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	act, err := poker.ParseAction(action, amount)
	if err != nil {
		return nil, err
	}

	if err := sess.game.ApplyAction(playerID, act); err != nil {
		if poker.IsRuleViolation(err) {
			s.log.Debugf("session %s: rejected %s from %s: %v", sessionID, action, playerID, err)
		}
		return nil, err
	}

	if err := s.settle(sess); err != nil {
		return nil, err
	}
	if err := s.saveState(sess); err != nil {
		return nil, err
	}
	return s.snapshot(sess), nil
}

// settle persists the hand result if the game just resolved one.
func (s *Server) settle(sess *session) error {
	result := sess.game.LastShowdown()
	if result == nil || sess.game.HandActive() || result.HandNum <= sess.settledHand {
		return nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode hand result: %v", err)
	}
	board := make([]string, len(result.Board))
	for i, c := range result.Board {
		board[i] = c.String()
	}
	err = s.db.SaveHandResult(sess.id, result.HandNum, strings.Join(board, " "), payload)
	if err != nil {
		return err
	}
	sess.settledHand = result.HandNum

	s.log.Debugf("session %s: hand %d settled, %d chips awarded",
		sess.id, result.HandNum, result.TotalAward)
	return nil
}

// GetState returns a snapshot of the session visible to viewerID. Opponents'
// hole cards are hidden while the hand is live.
func (s *Server) GetState(sessionID, viewerID string) (*GameState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	state := s.snapshot(sess)
	state.redactFor(viewerID, sess.game.HandActive())
	return state, nil
}

// HandHistory returns the session's persisted hand results in play order.
func (s *Server) HandHistory(sessionID string) ([]*HandRecord, error) {
	if _, err := s.session(sessionID); err != nil {
		return nil, err
	}
	return s.db.GetHandResults(sessionID)
}

// EndSession closes the table, cashing every stack out to its owner's
// bankroll.
func (s *Server) EndSession(sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	if sess.game.HandActive() {
		return fmt.Errorf("session %s: hand in progress", sessionID)
	}

	for _, p := range sess.game.Players() {
		if p.Balance == 0 {
			continue
		}
		err := s.db.UpdatePlayerBalance(p.ID, p.Balance, "cash-out",
			fmt.Sprintf("cash-out from session %s", sessionID))
		if err != nil {
			return err
		}
	}

	if err := s.db.DeleteSessionState(sessionID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.log.Infof("session %s ended", sessionID)
	return nil
}

// Sessions returns the IDs of the live sessions.
func (s *Server) Sessions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (s *Server) session(sessionID string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return sess, nil
}

// PlayerState is the wire form of one seat.
type PlayerState struct {
	ID         string       `json:"id"`
	Name       string       `json:"name,omitempty"`
	Seat       int          `json:"seat"`
	Balance    int64        `json:"balance"`
	CurrentBet int64        `json:"current_bet"`
	TotalBet   int64        `json:"total_bet"`
	Folded     bool         `json:"folded"`
	AllIn      bool         `json:"all_in"`
	LastAction string       `json:"last_action,omitempty"`
	Cards      []poker.Card `json:"cards,omitempty"`
}

// GameState is the wire form of a session snapshot.
type GameState struct {
	SessionID     string                `json:"session_id"`
	Phase         string                `json:"phase"`
	HandActive    bool                  `json:"hand_active"`
	Board         []poker.Card          `json:"board"`
	Pot           int64                 `json:"pot"`
	CurrentBet    int64                 `json:"current_bet"`
	CurrentPlayer string                `json:"current_player,omitempty"`
	Dealer        int                   `json:"dealer"`
	Players       []PlayerState         `json:"players"`
	LastResult    *poker.ShowdownResult `json:"last_result,omitempty"`
}

func (s *Server) snapshot(sess *session) *GameState {
	g := sess.game
	state := &GameState{
		SessionID:     sess.id,
		Phase:         g.GetPhase(),
		HandActive:    g.HandActive(),
		Board:         g.GetCommunityCards(),
		Pot:           g.GetPot(),
		CurrentBet:    g.GetCurrentBet(),
		CurrentPlayer: g.GetCurrentPlayerID(),
		Dealer:        g.GetDealer(),
	}
	if !state.HandActive {
		state.LastResult = g.LastShowdown()
	}
	for _, p := range g.Players() {
		ps := PlayerState{
			ID:         p.ID,
			Name:       p.Name,
			Seat:       p.Seat,
			Balance:    p.Balance,
			CurrentBet: p.CurrentBet,
			TotalBet:   p.TotalBet,
			Folded:     p.HasFolded,
			AllIn:      p.IsAllIn,
			Cards:      append([]poker.Card(nil), p.Hand...),
		}
		if p.LastAction != nil {
			ps.LastAction = p.LastAction.String()
		}
		state.Players = append(state.Players, ps)
	}
	return state
}

// redactFor strips hole cards the viewer may not see. After the hand, cards
// that went to showdown stay visible to everyone.
func (state *GameState) redactFor(viewerID string, live bool) {
	for i := range state.Players {
		p := &state.Players[i]
		if p.ID == viewerID {
			continue
		}
		if live || p.Folded {
			p.Cards = nil
		}
	}
}
