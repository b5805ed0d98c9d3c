package battle

import (
	"fmt"

	"github.com/ross1116/pokebattle/internal/pokemon"
	"github.com/ross1116/pokebattle/internal/stats"
)

type ActionKind uint8

const (
	ActionMove ActionKind = iota
	ActionSwitch
	ActionItem
	ActionForfeit
	ActionStatus
	ActionHeld
)

var actionNames = [...]string{"move", "switch", "item", "forfeit", "status", "held-item"}

func (k ActionKind) String() string {
	if int(k) < len(actionNames) {
		return actionNames[k]
	}
	return fmt.Sprintf("action(%d)", k)
}

func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ActionKind) UnmarshalText(b []byte) error {
	for i, n := range actionNames {
		if n == string(b) {
			*k = ActionKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown action %q", b)
}

type OutcomeKind uint8

const (
	Hit OutcomeKind = iota
	Missed
	NoTarget
	Immune
	Failed
)

var outcomeNames = [...]string{"hit", "missed", "no-target", "immune", "failed"}

func (k OutcomeKind) String() string {
	if int(k) < len(outcomeNames) {
		return outcomeNames[k]
	}
	return fmt.Sprintf("outcome(%d)", k)
}

func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *OutcomeKind) UnmarshalText(b []byte) error {
	for i, n := range outcomeNames {
		if n == string(b) {
			*k = OutcomeKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", b)
}

type StageChange struct {
	Stat  stats.Stat `json:"stat"`
	Delta int        `json:"delta"`
}

// TargetOutcome is what one action did to one pokemon. HP, Damage, Healed and
// Drained are exact values and are stripped before the outcome is shown to
// anyone but the target's owner. Percent is always visible.
type TargetOutcome struct {
	Side          int                   `json:"side"`
	Slot          int                   `json:"slot"`
	Index         int                   `json:"index"`
	Kind          OutcomeKind           `json:"kind"`
	Damage        int                   `json:"damage,omitempty"`
	Healed        int                   `json:"healed,omitempty"`
	Drained       int                   `json:"drained,omitempty"`
	Critical      bool                  `json:"critical,omitempty"`
	Effectiveness pokemon.Effectiveness `json:"effectiveness"`
	Inflicted     pokemon.StatusKind    `json:"inflicted,omitempty"`
	Cured         bool                  `json:"cured,omitempty"`
	Confused      bool                  `json:"confused,omitempty"`
	Stages        []StageChange         `json:"stages,omitempty"`
	HP            int                   `json:"hp,omitempty"`
	Percent       int                   `json:"percent"`
	Fainted       bool                  `json:"fainted,omitempty"`
}

func (o *TargetOutcome) changed() bool {
	return o.Damage > 0 || o.Healed > 0 || o.Inflicted != pokemon.NoStatus || o.Cured || o.Confused || len(o.Stages) > 0
}

// ActionOutcome is one entry of a turn's results, in execution order. For
// status ticks and held items the actor is also the only target.
type ActionOutcome struct {
	Kind       ActionKind         `json:"kind"`
	Side       int                `json:"side"`
	Slot       int                `json:"slot"`
	Index      int                `json:"index"`
	Move       string             `json:"move,omitempty"`
	Item       string             `json:"item,omitempty"`
	Skipped    string             `json:"skipped,omitempty"`
	Woke       bool               `json:"woke,omitempty"`
	SnappedOut bool               `json:"snapped_out,omitempty"`
	SelfHit    int                `json:"self_hit,omitempty"`
	Targets    []TargetOutcome    `json:"targets,omitempty"`
	HP         int                `json:"hp,omitempty"`
	Percent    int                `json:"percent"`
	Experience int                `json:"experience,omitempty"`
	Levels     []int              `json:"levels,omitempty"`
	Status     pokemon.StatusKind `json:"status,omitempty"`
}

// ForViewer returns a copy of results with exact numbers removed for every
// pokemon that does not belong to viewer.
func ForViewer(results []ActionOutcome, viewer int) []ActionOutcome {
	out := make([]ActionOutcome, len(results))
	for i, r := range results {
		if r.Side != viewer {
			r.HP = 0
			r.Experience = 0
			r.SelfHit = 0
			if r.Kind == ActionHeld {
				r.Item = ""
			}
		}
		targets := make([]TargetOutcome, len(r.Targets))
		for j, t := range r.Targets {
			if t.Side != viewer {
				t.HP, t.Damage, t.Healed = 0, 0, 0
			}
			if r.Side != viewer {
				t.Drained = 0
			}
			targets[j] = t
		}
		if len(targets) > 0 {
			r.Targets = targets
		}
		out[i] = r
	}
	return out
}

// Reveal is a member that became visible to one viewer.
type Reveal struct {
	Viewer  int            `json:"-"`
	Side    int            `json:"side"`
	Index   int            `json:"index"`
	Pokemon UnknownPokemon `json:"pokemon"`
}

// Replacement is an authoritative active slot change.
type Replacement struct {
	Side  int `json:"side"`
	Slot  int `json:"slot"`
	Index int `json:"index"`
}

// TurnReport is everything a participant needs to learn after resolution or
// an out-of-turn replacement.
type TurnReport struct {
	Turn     int
	Results  []ActionOutcome
	Reveals  []Reveal
	Replaces []Replacement
	Ended    bool
	Winner   int
}

// RevealsFor filters reveals addressed to viewer.
func (r *TurnReport) RevealsFor(viewer int) []Reveal {
	var out []Reveal
	for _, rv := range r.Reveals {
		if rv.Viewer == viewer {
			out = append(out, rv)
		}
	}
	return out
}
