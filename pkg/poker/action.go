package poker

import "fmt"

// Action is a single betting decision submitted by a player. It is a sealed
// set of variants; each carries only the data it needs.
type Action interface {
	fmt.Stringer
	isAction()
}

// Fold discards the player's hand and forfeits interest in every pot.
type Fold struct{}

// Check passes the action without betting. Legal only when the player's
// current bet already matches the table bet.
type Check struct{}

// Call matches the outstanding table bet. A call a player cannot cover
// degrades to an all-in call rather than failing.
type Call struct{}

// Raise increases the table bet to Amount (the total bet, not the delta).
type Raise struct {
	Amount int64
}

// AllIn commits the player's entire remaining stack.
type AllIn struct{}

func (Fold) isAction()  {}
func (Check) isAction() {}
func (Call) isAction()  {}
func (Raise) isAction() {}
func (AllIn) isAction() {}

func (Fold) String() string    { return "FOLD" }
func (Check) String() string   { return "CHECK" }
func (Call) String() string    { return "CALL" }
func (r Raise) String() string { return fmt.Sprintf("RAISE(%d)", r.Amount) }
func (AllIn) String() string   { return "ALL_IN" }

// ParseAction builds an Action from its wire name and optional amount, for
// adapters translating client messages.
func ParseAction(name string, amount int64) (Action, error) {
	switch name {
	case "FOLD":
		return Fold{}, nil
	case "CHECK":
		return Check{}, nil
	case "CALL":
		return Call{}, nil
	case "RAISE":
		return Raise{Amount: amount}, nil
	case "ALL_IN":
		return AllIn{}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", name)
	}
}
