package poker

import (
	"fmt"
	"sort"
)

// HandCategory classifies a 5-card hand from weakest to strongest.
type HandCategory int

const (
	HighCard HandCategory = iota + 1
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns the readable name of the category.
func (c HandCategory) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// HandValue is the comparable strength key of an evaluated hand: the
// category, the rank driving it (quad rank, top pair rank, straight high),
// and the kicker sequence in descending order. It exists only to be compared
// at showdown.
type HandValue struct {
	Category    HandCategory
	RankValue   int
	Kickers     []int
	BestHand    []Card // the 5 cards that make up the best hand
	Description string
}

// Evaluate computes the best achievable HandValue from 5 to 7 cards. With 6
// or 7 cards every 5-card subset is considered, so a flush or straight hiding
// inside the larger set is always found. The result depends only on the card
// set, never on input order.
func Evaluate(cards []Card) (HandValue, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return HandValue{}, fmt.Errorf("evaluate requires 5 to 7 cards, got %d", len(cards))
	}

	// Canonical order so ties between equal-strength subsets resolve the
	// same way regardless of how the caller ordered the input.
	sorted := make([]Card, len(cards))
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Rank() != sorted[j].Rank() {
			return sorted[i].Rank() > sorted[j].Rank()
		}
		return sorted[i].suit < sorted[j].suit
	})

	if len(sorted) == 5 {
		return evaluateFive(sorted), nil
	}

	var best HandValue
	for _, combo := range generateCombinations(sorted, 5) {
		hv := evaluateFive(combo)
		if best.Category == 0 || CompareHands(hv, best) > 0 {
			best = hv
		}
	}
	return best, nil
}

// CompareHands orders two hand values: -1 if a is weaker, 0 on an exact tie,
// 1 if a is stronger. Category first, then rank value, then kickers
// left to right.
func CompareHands(a, b HandValue) int {
	if a.Category != b.Category {
		if a.Category < b.Category {
			return -1
		}
		return 1
	}
	if a.RankValue != b.RankValue {
		if a.RankValue < b.RankValue {
			return -1
		}
		return 1
	}
	n := len(a.Kickers)
	if len(b.Kickers) < n {
		n = len(b.Kickers)
	}
	for i := 0; i < n; i++ {
		if a.Kickers[i] != b.Kickers[i] {
			if a.Kickers[i] < b.Kickers[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// evaluateFive ranks exactly 5 cards, already sorted by descending rank.
func evaluateFive(cards []Card) HandValue {
	ranks := make([]int, 5)
	flush := true
	for i, c := range cards {
		ranks[i] = c.Rank()
		if c.suit != cards[0].suit {
			flush = false
		}
	}

	straight, straightHigh := straightHighRank(ranks)

	counts := make(map[int]int)
	for _, r := range ranks {
		counts[r]++
	}
	// Group ranks by multiplicity, then by rank, both descending.
	groups := make([]int, 0, len(counts))
	for r := range counts {
		groups = append(groups, r)
	}
	sort.Slice(groups, func(i, j int) bool {
		if counts[groups[i]] != counts[groups[j]] {
			return counts[groups[i]] > counts[groups[j]]
		}
		return groups[i] > groups[j]
	})

	hv := HandValue{BestHand: cards}

	switch {
	case flush && straight && straightHigh == 14:
		hv.Category = RoyalFlush
		hv.RankValue = 14
		hv.Description = "Royal Flush"
	case flush && straight:
		hv.Category = StraightFlush
		hv.RankValue = straightHigh
		hv.Description = fmt.Sprintf("Straight Flush, %s high", intToValue(straightHigh))
	case counts[groups[0]] == 4:
		hv.Category = FourOfAKind
		hv.RankValue = groups[0]
		hv.Kickers = []int{groups[1]}
		hv.Description = fmt.Sprintf("Four of a Kind, %ss", intToValue(groups[0]))
	case counts[groups[0]] == 3 && counts[groups[1]] == 2:
		hv.Category = FullHouse
		hv.RankValue = groups[0]
		hv.Kickers = []int{groups[1]}
		hv.Description = fmt.Sprintf("Full House, %ss over %ss", intToValue(groups[0]), intToValue(groups[1]))
	case flush:
		hv.Category = Flush
		hv.RankValue = ranks[0]
		hv.Kickers = ranks[1:]
		hv.Description = fmt.Sprintf("Flush, %s high", intToValue(ranks[0]))
	case straight:
		hv.Category = Straight
		hv.RankValue = straightHigh
		hv.Description = fmt.Sprintf("Straight, %s high", intToValue(straightHigh))
	case counts[groups[0]] == 3:
		hv.Category = ThreeOfAKind
		hv.RankValue = groups[0]
		hv.Kickers = groups[1:]
		hv.Description = fmt.Sprintf("Three of a Kind, %ss", intToValue(groups[0]))
	case counts[groups[0]] == 2 && counts[groups[1]] == 2:
		hv.Category = TwoPair
		hv.RankValue = groups[0]
		hv.Kickers = []int{groups[1], groups[2]}
		hv.Description = fmt.Sprintf("Two Pair, %ss and %ss", intToValue(groups[0]), intToValue(groups[1]))
	case counts[groups[0]] == 2:
		hv.Category = Pair
		hv.RankValue = groups[0]
		hv.Kickers = groups[1:]
		hv.Description = fmt.Sprintf("Pair of %ss", intToValue(groups[0]))
	default:
		hv.Category = HighCard
		hv.RankValue = ranks[0]
		hv.Kickers = ranks[1:]
		hv.Description = fmt.Sprintf("High Card %s", intToValue(ranks[0]))
	}

	return hv
}

// straightHighRank reports whether the 5 ranks form a straight and the rank
// of its top card. The wheel (A-2-3-4-5) counts as a 5-high straight, not
// ace-high.
func straightHighRank(ranks []int) (bool, int) {
	distinct := make(map[int]bool, 5)
	for _, r := range ranks {
		distinct[r] = true
	}
	if len(distinct) != 5 {
		return false, 0
	}
	if distinct[14] && distinct[2] && distinct[3] && distinct[4] && distinct[5] {
		return true, 5
	}
	// ranks are sorted descending with no duplicates
	if ranks[0]-ranks[4] == 4 {
		return true, ranks[0]
	}
	return false, 0
}

// generateCombinations generates all k-card combinations of cards, preserving
// the input order within each combination.
func generateCombinations(cards []Card, k int) [][]Card {
	var combinations [][]Card

	if k > len(cards) || k <= 0 {
		return combinations
	}
	if k == len(cards) {
		return [][]Card{cards}
	}

	var generate func(start int, current []Card)
	generate = func(start int, current []Card) {
		if len(current) == k {
			combination := make([]Card, k)
			copy(combination, current)
			combinations = append(combinations, combination)
			return
		}
		for i := start; i <= len(cards)-(k-len(current)); i++ {
			generate(i+1, append(current, cards[i]))
		}
	}

	generate(0, []Card{})
	return combinations
}
