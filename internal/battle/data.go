package battle

import (
	"fmt"
	"strings"
)

type BattleType uint8

const (
	Wild BattleType = iota
	Trainer
	GymLeader
)

var battleTypeNames = [...]string{"wild", "trainer", "gym-leader"}

func (t BattleType) String() string {
	if int(t) < len(battleTypeNames) {
		return battleTypeNames[t]
	}
	return fmt.Sprintf("battle-type(%d)", t)
}

func (t BattleType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *BattleType) UnmarshalText(b []byte) error {
	for i, n := range battleTypeNames {
		if strings.EqualFold(n, string(b)) {
			*t = BattleType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown battle type %q", b)
}

const NoWinner = -1

// BattleData is the battle-wide configuration. The winner is written once.
type BattleData struct {
	Type        BattleType `json:"type"`
	ActiveSlots []int      `json:"active_slots"`
	winner      int
	decided     bool
}

func NewBattleData(t BattleType, activeSlots ...int) BattleData {
	return BattleData{Type: t, ActiveSlots: activeSlots, winner: NoWinner}
}

func (d *BattleData) Sides() int { return len(d.ActiveSlots) }

// Winner returns the winning side, or NoWinner for a draw. ok is false while
// the battle is undecided.
func (d *BattleData) Winner() (side int, ok bool) {
	return d.winner, d.decided
}

// decide records the outcome. Later calls are ignored.
func (d *BattleData) decide(side int) bool {
	if d.decided {
		return false
	}
	d.winner, d.decided = side, true
	return true
}

// SlotRef addresses an active slot on one side of the battle.
type SlotRef struct {
	Side int `json:"side"`
	Slot int `json:"slot"`
}

func (r SlotRef) String() string { return fmt.Sprintf("%d/%d", r.Side, r.Slot) }

type SelectionKind uint8

const (
	SelectForfeit SelectionKind = iota
	SelectSwitch
	SelectItem
	SelectMove
)

var selectionNames = [...]string{"forfeit", "switch", "item", "move"}

func (k SelectionKind) String() string {
	if int(k) < len(selectionNames) {
		return selectionNames[k]
	}
	return fmt.Sprintf("selection(%d)", k)
}

func (k SelectionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *SelectionKind) UnmarshalText(b []byte) error {
	for i, n := range selectionNames {
		if n == string(b) {
			*k = SelectionKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown selection %q", b)
}

// Selection is the action queued for one active slot. The kinds are declared
// in resolution order: forfeits first, then switches, items and moves.
type Selection struct {
	Kind   SelectionKind `json:"kind"`
	Move   int           `json:"move,omitempty"`
	Target *SlotRef      `json:"target,omitempty"`
	Index  int           `json:"index,omitempty"`
	Item   string        `json:"item,omitempty"`
}

// UseMove selects a move slot. A nil target picks the first standing
// opponent when the move executes.
func UseMove(slot int, target *SlotRef) Selection {
	return Selection{Kind: SelectMove, Move: slot, Target: target}
}

func SwitchTo(index int) Selection { return Selection{Kind: SelectSwitch, Index: index} }

func UseItem(item string, index int) Selection {
	return Selection{Kind: SelectItem, Item: item, Index: index}
}

func Forfeit() Selection { return Selection{Kind: SelectForfeit} }

func (s Selection) String() string {
	switch s.Kind {
	case SelectMove:
		if s.Target != nil {
			return fmt.Sprintf("move %d -> %s", s.Move, s.Target)
		}
		return fmt.Sprintf("move %d", s.Move)
	case SelectSwitch:
		return fmt.Sprintf("switch %d", s.Index)
	case SelectItem:
		return fmt.Sprintf("item %s on %d", s.Item, s.Index)
	}
	return s.Kind.String()
}
