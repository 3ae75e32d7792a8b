package poker

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckHas52UniqueCards(t *testing.T) {
	deck := NewDeck(rand.New(rand.NewSource(1)))
	require.Equal(t, 52, deck.Remaining())

	seen := make(map[string]bool, 52)
	for deck.Remaining() > 0 {
		card, err := deck.Draw()
		require.NoError(t, err)
		assert.False(t, seen[card.String()], "duplicate card %s", card)
		seen[card.String()] = true
	}
	assert.Len(t, seen, 52)
}

func TestDrawFromEmptyDeck(t *testing.T) {
	deck := NewDeck(rand.New(rand.NewSource(1)))
	_, err := deck.DealMany(52)
	require.NoError(t, err)

	_, err = deck.Draw()
	assert.ErrorIs(t, err, ErrEmptyDeck)
}

func TestDealManyAtomic(t *testing.T) {
	deck := NewDeck(rand.New(rand.NewSource(1)))
	_, err := deck.DealMany(50)
	require.NoError(t, err)
	require.Equal(t, 2, deck.Remaining())

	// Asking for more than remains must fail without consuming anything.
	_, err = deck.DealMany(3)
	assert.ErrorIs(t, err, ErrInsufficientCards)
	assert.Equal(t, 2, deck.Remaining())

	cards, err := deck.DealMany(2)
	require.NoError(t, err)
	assert.Len(t, cards, 2)
	assert.Equal(t, 0, deck.Remaining())
}

func TestShuffleDeterministicBySeed(t *testing.T) {
	a := NewDeck(rand.New(rand.NewSource(99)))
	b := NewDeck(rand.New(rand.NewSource(99)))

	for i := 0; i < 52; i++ {
		ca, err := a.Draw()
		require.NoError(t, err)
		cb, err := b.Draw()
		require.NoError(t, err)
		assert.Equal(t, ca, cb, "card %d differs between identically seeded decks", i)
	}
}

func TestShuffleChangesOrder(t *testing.T) {
	a := NewDeck(rand.New(rand.NewSource(1)))
	b := NewDeck(rand.New(rand.NewSource(2)))

	same := true
	for i := 0; i < 52; i++ {
		ca, _ := a.Draw()
		cb, _ := b.Draw()
		if ca != cb {
			same = false
			break
		}
	}
	assert.False(t, same, "differently seeded decks dealt identical sequences")
}

func TestDeckStateRoundTrip(t *testing.T) {
	deck := NewDeck(rand.New(rand.NewSource(7)))
	_, err := deck.DealMany(10)
	require.NoError(t, err)

	state := deck.GetState()
	restored, err := NewDeckFromState(state, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Equal(t, deck.Remaining(), restored.Remaining())

	for deck.Remaining() > 0 {
		want, err := deck.Draw()
		require.NoError(t, err)
		got, err := restored.Draw()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
