package poker

import "errors"

// Structural errors are fatal to the hand: the deck cannot satisfy a deal and
// the hand must be aborted.
var (
	ErrEmptyDeck         = errors.New("deck is empty")
	ErrInsufficientCards = errors.New("not enough cards in deck")
)

// Rule violations reject a single player action with no state mutation. The
// caller corrects and resubmits.
var (
	ErrNotPlayersTurn    = errors.New("not player's turn to act")
	ErrPlayerFolded      = errors.New("player has already folded")
	ErrIllegalCheck      = errors.New("cannot check against an outstanding bet")
	ErrIllegalRaise      = errors.New("raise amount does not exceed current bet")
	ErrRaiseExceedsLimit = errors.New("raise exceeds betting structure limit")
	ErrInsufficientChips = errors.New("insufficient chips for raise")
	ErrHandNotActive     = errors.New("no hand in progress")
)

// Lookup errors surface unknown identifiers to the caller.
var ErrUnknownPlayer = errors.New("unknown player")

// ErrPotMismatch is an invariant violation: the rebuilt pots do not sum to
// the chips committed this hand. It indicates an engine bug and is never
// swallowed, since silent pot drift is a correctness failure for anything
// tracking money.
var ErrPotMismatch = errors.New("pot total does not match committed chips")

// IsRuleViolation reports whether err is a synchronous action rejection, as
// opposed to a structural or invariant failure that aborts the hand. Adapters
// use this to map engine failures to client-facing responses.
func IsRuleViolation(err error) bool {
	for _, target := range []error{
		ErrNotPlayersTurn,
		ErrPlayerFolded,
		ErrIllegalCheck,
		ErrIllegalRaise,
		ErrRaiseExceedsLimit,
		ErrInsufficientChips,
		ErrHandNotActive,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
