package pokemon

import (
	"fmt"
	"strings"

	"github.com/ross1116/pokebattle/internal/stats"
)

const (
	MaxMoves   = 4
	MaxLevel   = 100
	MinLevel   = 1
	Friendship = 70
)

type Gender uint8

const (
	Genderless Gender = iota
	Male
	Female
)

var genderNames = [...]string{"genderless", "male", "female"}

func (g Gender) String() string {
	if int(g) < len(genderNames) {
		return genderNames[g]
	}
	return fmt.Sprintf("gender(%d)", g)
}

func (g Gender) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *Gender) UnmarshalText(b []byte) error {
	for i, n := range genderNames {
		if strings.EqualFold(n, string(b)) {
			*g = Gender(i)
			return nil
		}
	}
	return fmt.Errorf("unknown gender %q", b)
}

type MoveSlot struct {
	Move *Move
	PP   int
}

// Pokemon is one combat creature. Stats[stats.HP] is the max HP; HP is the
// current value and is always within [0, max].
type Pokemon struct {
	Species    *Species
	Nickname   string
	Level      int
	Gender     Gender
	IVs        stats.Set
	EVs        stats.Set
	Stats      stats.Set
	HP         int
	Experience int
	Friendship int
	Moves      []MoveSlot
	Item       *Item
	Status     *Status
	Stages     stats.Set
	Volatile   Volatile
}

// New builds a pokemon at full HP with no moves. Level is clamped to the
// valid range.
func New(species *Species, level int, ivs, evs stats.Set) *Pokemon {
	level = min(max(level, MinLevel), MaxLevel)
	p := &Pokemon{
		Species:    species,
		Level:      level,
		IVs:        ivs,
		EVs:        evs,
		Experience: ExperienceFor(level),
		Friendship: Friendship,
	}
	p.Stats = stats.CalcAll(species.Base.Set(), ivs, evs, level)
	p.HP = p.Stats[stats.HP]
	return p
}

func (p *Pokemon) Name() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	return p.Species.Name()
}

func (p *Pokemon) Types() []Type { return p.Species.Types }

func (p *Pokemon) MaxHP() int { return p.Stats[stats.HP] }

func (p *Pokemon) Fainted() bool { return p.HP == 0 }

// HPPercent rounds down but never reports 0 for a pokemon that still has HP.
func (p *Pokemon) HPPercent() int {
	if p.HP <= 0 || p.MaxHP() <= 0 {
		return 0
	}
	return max(p.HP*100/p.MaxHP(), 1)
}

func (p *Pokemon) SetHP(hp int) {
	p.HP = min(max(hp, 0), p.MaxHP())
}

// Hurt removes up to amount HP and returns how much was removed.
func (p *Pokemon) Hurt(amount int) int {
	if amount <= 0 {
		return 0
	}
	dealt := min(amount, p.HP)
	p.HP -= dealt
	return dealt
}

// Heal restores up to amount HP and returns how much was restored. Fainted
// pokemon cannot be healed.
func (p *Pokemon) Heal(amount int) int {
	if amount <= 0 || p.Fainted() {
		return 0
	}
	healed := min(amount, p.MaxHP()-p.HP)
	p.HP += healed
	return healed
}

func (p *Pokemon) Learn(m *Move) error {
	if len(p.Moves) >= MaxMoves {
		return fmt.Errorf("%s already knows %d moves", p.Name(), MaxMoves)
	}
	for _, s := range p.Moves {
		if s.Move.ID == m.ID {
			return fmt.Errorf("%s already knows %s", p.Name(), m.Name())
		}
	}
	p.Moves = append(p.Moves, MoveSlot{Move: m, PP: m.PP})
	return nil
}

// CanUse reports whether the move in slot exists and has PP left.
func (p *Pokemon) CanUse(slot int) bool {
	return slot >= 0 && slot < len(p.Moves) && p.Moves[slot].PP > 0
}

func (p *Pokemon) SpendPP(slot int) {
	if p.CanUse(slot) {
		p.Moves[slot].PP--
	}
}

// Effective returns a stat with its battle stage applied. Paralysis halves
// speed.
func (p *Pokemon) Effective(s stats.Stat) int {
	v := stats.ApplyStage(p.Stats[s], p.Stages[s])
	if s == stats.Speed && p.Status != nil && p.Status.Kind == Paralyzed {
		v /= 2
	}
	return v
}

// ChangeStage moves a stat stage by delta, clamped to ±6, and returns the
// change that was actually applied.
func (p *Pokemon) ChangeStage(s stats.Stat, delta int) int {
	before := p.Stages[s]
	p.Stages[s] = stats.ClampStage(before + delta)
	return p.Stages[s] - before
}

// Withdraw clears what a pokemon loses when it leaves the field: stat stages,
// volatile conditions and the toxic counter.
func (p *Pokemon) Withdraw() {
	p.Stages = stats.Set{}
	p.Volatile = Volatile{}
	if p.Status != nil && p.Status.Kind == BadlyPoisoned {
		p.Status.Turns = 0
	}
}

// Confuse leaves the pokemon confused for turns moves. It fails if it is
// already confused.
func (p *Pokemon) Confuse(turns int) bool {
	if p.Fainted() || p.Volatile.Confused > 0 || turns <= 0 {
		return false
	}
	p.Volatile.Confused = turns
	return true
}

// Afflict attaches a status if the pokemon has none and is not immune.
func (p *Pokemon) Afflict(s Status) bool {
	if p.Fainted() || p.Status != nil || s.Kind == NoStatus || s.Kind.ImmuneTo(p.Types()) {
		return false
	}
	p.Status = &s
	return true
}

func (p *Pokemon) Cure() {
	p.Status = nil
}

// ExperienceFor is the total experience needed to reach level on the
// medium-fast curve.
func ExperienceFor(level int) int {
	return level * level * level
}

// YieldExperience is the experience awarded for defeating p.
func (p *Pokemon) YieldExperience() int {
	return p.Species.BaseExp * p.Level / 7
}

// GainExperience adds exp and levels up as needed. It returns the new levels
// reached, in order. Damage taken is preserved across stat recalculation.
func (p *Pokemon) GainExperience(exp int) []int {
	if exp <= 0 || p.Level >= MaxLevel {
		return nil
	}
	p.Experience += exp
	var reached []int
	for p.Level < MaxLevel && p.Experience >= ExperienceFor(p.Level+1) {
		p.Level++
		reached = append(reached, p.Level)
	}
	if len(reached) > 0 {
		p.recalculate()
	}
	return reached
}

func (p *Pokemon) recalculate() {
	lost := p.MaxHP() - p.HP
	p.Stats = stats.CalcAll(p.Species.Base.Set(), p.IVs, p.EVs, p.Level)
	if !p.Fainted() {
		p.SetHP(max(p.MaxHP()-lost, 1))
	}
}

// Clone returns a deep copy that shares only the immutable dex entries.
func (p *Pokemon) Clone() *Pokemon {
	cp := *p
	cp.Moves = append([]MoveSlot(nil), p.Moves...)
	if p.Status != nil {
		st := *p.Status
		cp.Status = &st
	}
	return &cp
}
