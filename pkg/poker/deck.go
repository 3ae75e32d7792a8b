package poker

import (
	"fmt"
	"math/rand"
)

// Deck represents a deck of cards
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck creates a new shuffled 52-card deck using the given random number
// generator.
func NewDeck(rng *rand.Rand) *Deck {
	deck := &Deck{
		cards: make([]Card, 0, 52),
		rng:   rng,
	}

	suits := []Suit{Spades, Hearts, Diamonds, Clubs}
	values := []Value{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

	for _, suit := range suits {
		for _, value := range values {
			deck.cards = append(deck.cards, Card{suit: suit, value: value})
		}
	}

	deck.Shuffle()

	return deck
}

// Shuffle randomizes the order of the remaining cards. rand.Shuffle
// implements an unbiased Fisher-Yates permutation.
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the top card from the deck.
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrEmptyDeck
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, nil
}

// DealMany draws n cards atomically. If fewer than n cards remain it fails
// and the deck is left unmodified.
func (d *Deck) DealMany(n int) ([]Card, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: requested %d cards", ErrInsufficientCards, n)
	}
	if n > len(d.cards) {
		return nil, fmt.Errorf("%w: requested %d, remaining %d", ErrInsufficientCards, n, len(d.cards))
	}
	dealt := make([]Card, n)
	copy(dealt, d.cards[:n])
	d.cards = d.cards[n:]
	return dealt, nil
}

// Remaining returns the number of cards left in the deck.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// DeckState represents the serializable state of a deck
type DeckState struct {
	RemainingCards []Card `json:"remaining_cards"`
}

// GetState returns the current state of the deck for persistence
func (d *Deck) GetState() *DeckState {
	cards := make([]Card, len(d.cards))
	copy(cards, d.cards)
	return &DeckState{RemainingCards: cards}
}

// NewDeckFromState creates a new deck from a saved state
func NewDeckFromState(state *DeckState, rng *rand.Rand) (*Deck, error) {
	if state == nil {
		return nil, fmt.Errorf("deck state is nil")
	}

	deck := &Deck{
		cards: make([]Card, len(state.RemainingCards)),
		rng:   rng,
	}
	copy(deck.cards, state.RemainingCards)

	return deck, nil
}
