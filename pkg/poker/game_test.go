package poker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGame(t *testing.T, cfg GameConfig, balances ...int64) (*Game, []*Player) {
	t.Helper()
	if cfg.SmallBlind == 0 {
		cfg.SmallBlind = 10
	}
	if cfg.BigBlind == 0 {
		cfg.BigBlind = 20
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	players := make([]*Player, len(balances))
	for i, bal := range balances {
		players[i] = NewPlayer(string(rune('a'+i)), "", i, bal)
	}
	g, err := NewGame(cfg, players)
	require.NoError(t, err)
	return g, players
}

func totalChips(players []*Player) int64 {
	var sum int64
	for _, p := range players {
		sum += p.Balance + p.TotalBet
	}
	return sum
}

func TestNewGameValidation(t *testing.T) {
	p := []*Player{NewPlayer("a", "", 0, 100)}
	_, err := NewGame(GameConfig{SmallBlind: 10, BigBlind: 20}, p)
	assert.Error(t, err, "one player is not a table")

	p = append(p, NewPlayer("b", "", 1, 100))
	_, err = NewGame(GameConfig{SmallBlind: 20, BigBlind: 10}, p)
	assert.Error(t, err, "big blind below small blind")
}

func TestStartHandDealsAndPostsBlinds(t *testing.T) {
	g, players := newTestGame(t, GameConfig{}, 1000, 1000, 1000)
	require.NoError(t, g.StartHand())

	for _, p := range players {
		assert.Len(t, p.Hand, 2, "player %s hole cards", p.ID)
	}
	assert.Equal(t, 0, g.GetDealer())
	assert.Equal(t, int64(10), players[1].CurrentBet, "seat after dealer posts small blind")
	assert.Equal(t, int64(20), players[2].CurrentBet, "next seat posts big blind")
	assert.Equal(t, int64(30), g.GetPot())
	assert.Equal(t, int64(20), g.GetCurrentBet())
	assert.Equal(t, RoundPreflop, g.GetPhase())
	// Three-handed, under the gun wraps around to the dealer.
	assert.Equal(t, "a", g.GetCurrentPlayerID())
}

func TestStartHandWhileActiveFails(t *testing.T) {
	g, _ := newTestGame(t, GameConfig{}, 1000, 1000)
	require.NoError(t, g.StartHand())
	assert.Error(t, g.StartHand())
}

func TestHeadsUpDealerPostsSmallBlindAndActsFirst(t *testing.T) {
	g, players := newTestGame(t, GameConfig{}, 1000, 1000)
	require.NoError(t, g.StartHand())

	assert.Equal(t, int64(10), players[0].CurrentBet, "dealer posts the small blind heads-up")
	assert.Equal(t, int64(20), players[1].CurrentBet)
	assert.Equal(t, "a", g.GetCurrentPlayerID())
}

func TestRoundCompletesWhenAllBetsMatch(t *testing.T) {
	g, _ := newTestGame(t, GameConfig{}, 1000, 1000, 1000)
	require.NoError(t, g.StartHand())

	require.NoError(t, g.ApplyAction("a", Call{}))
	assert.Equal(t, RoundPreflop, g.GetPhase(), "small blind still owes")

	require.NoError(t, g.ApplyAction("b", Call{}))
	assert.Equal(t, RoundFlop, g.GetPhase())
	assert.Len(t, g.GetCommunityCards(), 3)
	assert.Zero(t, g.GetCurrentBet(), "bets reset for the new round")
	assert.Equal(t, "b", g.GetCurrentPlayerID(), "first live seat after the dealer opens")
}

func TestRaiseKeepsRoundOpen(t *testing.T) {
	g, _ := newTestGame(t, GameConfig{}, 1000, 1000, 1000)
	require.NoError(t, g.StartHand())

	require.NoError(t, g.ApplyAction("a", Call{}))
	require.NoError(t, g.ApplyAction("b", Raise{Amount: 60}))
	assert.Equal(t, RoundPreflop, g.GetPhase(), "a raise reopens the round")
	assert.Equal(t, int64(60), g.GetCurrentBet())

	require.NoError(t, g.ApplyAction("c", Call{}))
	assert.Equal(t, RoundPreflop, g.GetPhase(), "original caller still owes the raise")

	require.NoError(t, g.ApplyAction("a", Call{}))
	assert.Equal(t, RoundFlop, g.GetPhase())
	assert.Equal(t, int64(180), g.GetPot())
}

func TestTurnOrderEnforced(t *testing.T) {
	g, _ := newTestGame(t, GameConfig{}, 1000, 1000, 1000)
	require.NoError(t, g.StartHand())

	err := g.ApplyAction("b", Call{})
	assert.ErrorIs(t, err, ErrNotPlayersTurn)
	assert.True(t, IsRuleViolation(err))

	err = g.ApplyAction("zz", Fold{})
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestActionsRejectedBetweenHands(t *testing.T) {
	g, _ := newTestGame(t, GameConfig{}, 1000, 1000)
	err := g.ApplyAction("a", Fold{})
	assert.ErrorIs(t, err, ErrHandNotActive)
}

func TestIllegalCheckRejectedWithoutMutation(t *testing.T) {
	g, _ := newTestGame(t, GameConfig{}, 1000, 1000, 1000)
	require.NoError(t, g.StartHand())

	potBefore := g.GetPot()
	err := g.ApplyAction("a", Check{})
	assert.ErrorIs(t, err, ErrIllegalCheck)
	assert.True(t, IsRuleViolation(err))
	assert.Equal(t, potBefore, g.GetPot(), "rejected action must not move chips")
	assert.Equal(t, "a", g.GetCurrentPlayerID(), "turn does not advance on a rejected action")
}

func TestRaiseMustExceedCurrentBet(t *testing.T) {
	g, _ := newTestGame(t, GameConfig{}, 1000, 1000, 1000)
	require.NoError(t, g.StartHand())

	err := g.ApplyAction("a", Raise{Amount: 20})
	assert.ErrorIs(t, err, ErrIllegalRaise)

	err = g.ApplyAction("a", Raise{Amount: 15})
	assert.ErrorIs(t, err, ErrIllegalRaise)
}

func TestRaiseBeyondStackRejected(t *testing.T) {
	g, _ := newTestGame(t, GameConfig{}, 1000, 1000, 1000)
	require.NoError(t, g.StartHand())

	err := g.ApplyAction("a", Raise{Amount: 1500})
	assert.ErrorIs(t, err, ErrInsufficientChips)
}

func TestFoldToSingleSurvivorSkipsEvaluation(t *testing.T) {
	g, players := newTestGame(t, GameConfig{}, 1000, 1000, 1000)
	require.NoError(t, g.StartHand())
	chips := totalChips(players)

	require.NoError(t, g.ApplyAction("a", Fold{}))
	require.NoError(t, g.ApplyAction("b", Fold{}))

	assert.False(t, g.HandActive())
	assert.Equal(t, RoundShowdown, g.GetPhase())

	result := g.LastShowdown()
	require.NotNil(t, result)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "c", result.Entries[0].PlayerID)
	assert.Nil(t, result.Entries[0].HandValue, "no evaluation with a single survivor")

	// Big blind keeps their own blind plus the small blind.
	assert.Equal(t, int64(1010), players[2].Balance)
	assert.Equal(t, int64(990), players[1].Balance)
	assert.Equal(t, chips, totalChips(players), "chips conserved")
}

func TestFoldedPlayerCannotActAgain(t *testing.T) {
	g, _ := newTestGame(t, GameConfig{}, 1000, 1000, 1000)
	require.NoError(t, g.StartHand())

	require.NoError(t, g.ApplyAction("a", Fold{}))
	require.NoError(t, g.ApplyAction("b", Call{}))
	// Back on the big blind; a is out of turn and out of the hand.
	err := g.ApplyAction("a", Call{})
	assert.Error(t, err)
}

func TestShortAllInDoesNotReopenBetting(t *testing.T) {
	g, _ := newTestGame(t, GameConfig{}, 1000, 1000, 150)
	require.NoError(t, g.StartHand())

	require.NoError(t, g.ApplyAction("a", Raise{Amount: 100}))
	require.NoError(t, g.ApplyAction("b", Call{}))
	// c's all-in to 150 is 50 over the bet, less than the last full raise
	// of 80, so a and b may call but not re-raise.
	require.NoError(t, g.ApplyAction("c", AllIn{}))
	assert.Equal(t, int64(150), g.GetCurrentBet())

	err := g.ApplyAction("a", Raise{Amount: 400})
	assert.ErrorIs(t, err, ErrIllegalRaise)

	require.NoError(t, g.ApplyAction("a", Call{}))
	require.NoError(t, g.ApplyAction("b", Call{}))
	assert.Equal(t, RoundFlop, g.GetPhase())
}

func TestShortAllInBlocksShove(t *testing.T) {
	g, _ := newTestGame(t, GameConfig{}, 1000, 1000, 150)
	require.NoError(t, g.StartHand())

	require.NoError(t, g.ApplyAction("a", Raise{Amount: 100}))
	require.NoError(t, g.ApplyAction("b", Call{}))
	require.NoError(t, g.ApplyAction("c", AllIn{}))

	// Shoving is still a raise; a may only call the short all-in.
	err := g.ApplyAction("a", AllIn{})
	assert.ErrorIs(t, err, ErrIllegalRaise)

	require.NoError(t, g.ApplyAction("a", Call{}))
	require.NoError(t, g.ApplyAction("b", Call{}))
	assert.Equal(t, RoundFlop, g.GetPhase())
}

func TestFullRaiseAllInReopensBetting(t *testing.T) {
	g, _ := newTestGame(t, GameConfig{}, 1000, 1000, 200)
	require.NoError(t, g.StartHand())

	require.NoError(t, g.ApplyAction("a", Raise{Amount: 100}))
	require.NoError(t, g.ApplyAction("b", Call{}))
	// c's all-in to 200 is a full raise of 100; betting reopens.
	require.NoError(t, g.ApplyAction("c", AllIn{}))

	require.NoError(t, g.ApplyAction("a", Raise{Amount: 400}))
	assert.Equal(t, int64(400), g.GetCurrentBet())
}

func TestPotLimitCapsRaises(t *testing.T) {
	g, _ := newTestGame(t, GameConfig{Structure: PotLimit}, 1000, 1000)
	require.NoError(t, g.StartHand())

	// Pot is 30 and the call is 10: pot limit allows a raise to 50.
	err := g.ApplyAction("a", Raise{Amount: 60})
	assert.ErrorIs(t, err, ErrRaiseExceedsLimit)

	require.NoError(t, g.ApplyAction("a", Raise{Amount: 50}))
	assert.Equal(t, int64(50), g.GetCurrentBet())
}

func TestFixedLimitCapsRaises(t *testing.T) {
	g, _ := newTestGame(t, GameConfig{Structure: FixedLimit}, 1000, 1000)
	require.NoError(t, g.StartHand())

	err := g.ApplyAction("a", Raise{Amount: 60})
	assert.ErrorIs(t, err, ErrRaiseExceedsLimit)

	require.NoError(t, g.ApplyAction("a", Raise{Amount: 40}))
	assert.Equal(t, int64(40), g.GetCurrentBet())
}

func TestThreeWayAllInPotLayers(t *testing.T) {
	// Stacks 100/50/200 at 5/10 blinds: the short stack's all-in for 50
	// caps the main pot at 150, the two bigger stacks build a 60 side pot.
	g, _ := newTestGame(t, GameConfig{SmallBlind: 5, BigBlind: 10}, 100, 50, 200)
	require.NoError(t, g.StartHand())

	require.NoError(t, g.ApplyAction("a", Raise{Amount: 80}))
	require.NoError(t, g.ApplyAction("b", AllIn{})) // 50 total, short of 80
	require.NoError(t, g.ApplyAction("c", Call{}))

	pots := g.potManager.Pots()
	require.Len(t, pots, 2)
	assert.Equal(t, int64(150), pots[0].Amount)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, pots[0].EligibleIDs(g.players))
	assert.Equal(t, int64(60), pots[1].Amount)
	assert.ElementsMatch(t, []string{"a", "c"}, pots[1].EligibleIDs(g.players))
	assert.Equal(t, RoundFlop, g.GetPhase(), "betting closed once the big stacks matched")
}

func TestAllInRunsOutTheBoard(t *testing.T) {
	g, players := newTestGame(t, GameConfig{}, 1000, 1000)
	require.NoError(t, g.StartHand())
	chips := totalChips(players)

	require.NoError(t, g.ApplyAction("a", AllIn{}))
	require.NoError(t, g.ApplyAction("b", AllIn{}))

	assert.False(t, g.HandActive())
	assert.Len(t, g.GetCommunityCards(), 5, "remaining streets auto-dealt")

	result := g.LastShowdown()
	require.NotNil(t, result)
	require.Len(t, result.Entries, 2)
	for _, entry := range result.Entries {
		assert.NotNil(t, entry.HandValue, "contested showdown evaluates every hand")
	}
	assert.Equal(t, chips, totalChips(players), "chips conserved")
	assert.Equal(t, int64(2000), players[0].Balance+players[1].Balance)
}

func TestBlindsAllInRunsOutTheBoard(t *testing.T) {
	// Both blind posters go all-in on the post: no one can act, so the
	// streets run out and the hand resolves at the deal.
	g, players := newTestGame(t, GameConfig{SmallBlind: 5, BigBlind: 10}, 5, 10)
	require.NoError(t, g.StartHand())

	assert.False(t, g.HandActive())
	assert.Len(t, g.GetCommunityCards(), 5)

	result := g.LastShowdown()
	require.NotNil(t, result)
	assert.Equal(t, int64(5), result.Uncalled, "big blind's unmatched half comes back")
	assert.Equal(t, int64(15), totalChips(players))
}

func TestBlindsAllInStillWaitsForLiveSeat(t *testing.T) {
	// The blinds are all-in but under the gun has chips: the hand stays
	// open for their action and resolves once they call.
	g, _ := newTestGame(t, GameConfig{SmallBlind: 5, BigBlind: 10}, 100, 5, 10)
	require.NoError(t, g.StartHand())

	assert.True(t, g.HandActive())
	assert.Equal(t, "a", g.GetCurrentPlayerID())

	require.NoError(t, g.ApplyAction("a", Call{}))
	assert.False(t, g.HandActive())
	assert.Len(t, g.GetCommunityCards(), 5)
}

func TestResolvedHandClearsCommittedBets(t *testing.T) {
	g, players := newTestGame(t, GameConfig{}, 1000, 1000)
	require.NoError(t, g.StartHand())
	require.NoError(t, g.ApplyAction(g.GetCurrentPlayerID(), Fold{}))

	require.False(t, g.HandActive())
	assert.Zero(t, g.GetPot())
	for _, p := range players {
		assert.Zero(t, p.TotalBet, "player %s", p.ID)
		assert.Zero(t, p.CurrentBet, "player %s", p.ID)
	}
	assert.Equal(t, int64(2000), totalChips(players))
}

func TestShortCallBecomesAllIn(t *testing.T) {
	g, players := newTestGame(t, GameConfig{}, 1000, 50)
	require.NoError(t, g.StartHand())

	require.NoError(t, g.ApplyAction("a", Raise{Amount: 200}))
	require.NoError(t, g.ApplyAction("b", Call{}))

	assert.True(t, players[1].IsAllIn)
	assert.False(t, g.HandActive(), "board runs out once betting is closed")

	result := g.LastShowdown()
	require.NotNil(t, result)
	// a's overbet beyond b's 50 was never callable.
	assert.Equal(t, int64(150), result.Uncalled)
	assert.Equal(t, "a", result.UncalledPlayer)
	assert.Equal(t, int64(100), result.TotalAward)
}

func TestDealerRotatesBetweenHands(t *testing.T) {
	g, _ := newTestGame(t, GameConfig{}, 1000, 1000, 1000)

	require.NoError(t, g.StartHand())
	assert.Equal(t, 0, g.GetDealer())
	require.NoError(t, g.ApplyAction("a", Fold{}))
	require.NoError(t, g.ApplyAction("b", Fold{}))

	require.NoError(t, g.StartHand())
	assert.Equal(t, 1, g.GetDealer())
	assert.Equal(t, "b", g.GetCurrentPlayerID(), "under the gun follows the new dealer")
}

func TestManyHandsConserveChips(t *testing.T) {
	g, players := newTestGame(t, GameConfig{Seed: 3}, 500, 500, 500, 500)
	chips := totalChips(players)

	for hand := 0; hand < 10; hand++ {
		funded := 0
		for _, p := range players {
			if p.Balance > 0 {
				funded++
			}
		}
		if funded < 2 {
			break
		}
		require.NoError(t, g.StartHand())

		// Everyone shoves every hand; resolution is forced each time. A
		// seat barred from raising by a short all-in calls instead.
		for g.HandActive() {
			id := g.GetCurrentPlayerID()
			require.NotEmpty(t, id)
			err := g.ApplyAction(id, AllIn{})
			if errors.Is(err, ErrIllegalRaise) {
				err = g.ApplyAction(id, Call{})
			}
			require.NoError(t, err)
		}
		assert.Equal(t, chips, totalChips(players), "hand %d leaked chips", hand)
	}
}
