package pokemon

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ross1116/pokebattle/internal/stats"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Category uint8

const (
	Physical Category = iota
	Special
	StatusMove
)

var categoryNames = [...]string{"physical", "special", "status"}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", c)
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	i := slices.Index(categoryNames[:], strings.ToLower(string(b)))
	if i < 0 {
		return fmt.Errorf("unknown move category %q", b)
	}
	*c = Category(i)
	return nil
}

// Target is who a move is aimed at.
type Target uint8

const (
	TargetOpponent Target = iota
	TargetSelf
	TargetAllOpponents
)

var targetNames = [...]string{"opponent", "self", "all-opponents"}

func (t Target) String() string {
	if int(t) < len(targetNames) {
		return targetNames[t]
	}
	return fmt.Sprintf("target(%d)", t)
}

func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Target) UnmarshalText(b []byte) error {
	i := slices.Index(targetNames[:], strings.ToLower(string(b)))
	if i < 0 {
		return fmt.Errorf("unknown move target %q", b)
	}
	*t = Target(i)
	return nil
}

type UseKind uint8

const (
	UseDamage UseKind = iota
	UseDrain
	UseStatus
	UseStatStage
	UseFixed
	UseHeal
	UseScript
	UseConfuse
	UseFlinch
)

var useKindNames = [...]string{"damage", "drain", "status", "stat-stage", "fixed", "heal", "script", "confuse", "flinch"}

func (k UseKind) String() string {
	if int(k) < len(useKindNames) {
		return useKindNames[k]
	}
	return fmt.Sprintf("use(%d)", k)
}

func (k UseKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *UseKind) UnmarshalText(b []byte) error {
	i := slices.Index(useKindNames[:], strings.ToLower(string(b)))
	if i < 0 {
		return fmt.Errorf("unknown move use %q", b)
	}
	*k = UseKind(i)
	return nil
}

// Use is one effect of a move. Kind selects which of the remaining fields
// are meaningful:
//
//	damage      Category
//	drain       Category, Percent of damage dealt returned to the user
//	status      Effect, Chance out of 10 (0 or 10 always applies)
//	stat-stage  Stat, Stage, Chance
//	fixed       Amount of HP removed
//	heal        Percent of the target's max HP restored
//	script      Script id registered with the battle engine
//	confuse     Chance
//	flinch      Chance; only matters if the target has yet to move this turn
type Use struct {
	Kind     UseKind    `yaml:"kind" json:"kind"`
	Category Category   `yaml:"category,omitempty" json:"category,omitempty"`
	Percent  int        `yaml:"percent,omitempty" json:"percent,omitempty"`
	Chance   int        `yaml:"chance,omitempty" json:"chance,omitempty"`
	Effect   StatusKind `yaml:"effect,omitempty" json:"effect,omitempty"`
	Stat     stats.Stat `yaml:"stat,omitempty" json:"stat,omitempty"`
	Stage    int        `yaml:"stage,omitempty" json:"stage,omitempty"`
	Amount   int        `yaml:"amount,omitempty" json:"amount,omitempty"`
	Script   string     `yaml:"script,omitempty" json:"script,omitempty"`
}

func Damage(c Category) Use { return Use{Kind: UseDamage, Category: c} }

func Drain(c Category, percent int) Use { return Use{Kind: UseDrain, Category: c, Percent: percent} }

func Inflict(chance int, effect StatusKind) Use {
	return Use{Kind: UseStatus, Chance: chance, Effect: effect}
}

func ChangeStage(stat stats.Stat, stage, chance int) Use {
	return Use{Kind: UseStatStage, Stat: stat, Stage: stage, Chance: chance}
}

func FixedDamage(amount int) Use { return Use{Kind: UseFixed, Amount: amount} }

func HealPercent(percent int) Use { return Use{Kind: UseHeal, Percent: percent} }

func Confuse(chance int) Use { return Use{Kind: UseConfuse, Chance: chance} }

func Flinch(chance int) Use { return Use{Kind: UseFlinch, Chance: chance} }

type Move struct {
	ID        string   `yaml:"-"`
	Type      Type     `yaml:"type"`
	Category  Category `yaml:"category"`
	Power     int      `yaml:"power"`
	Accuracy  *int     `yaml:"accuracy"`
	PP        int      `yaml:"pp"`
	Priority  int      `yaml:"priority"`
	CritStage int      `yaml:"crit_stage"`
	Target    Target   `yaml:"target"`
	Uses      []Use    `yaml:"uses"`
}

func (m *Move) Name() string { return displayName(m.ID) }

// Damaging reports whether any use of the move deals damage directly.
func (m *Move) Damaging() bool {
	for _, u := range m.Uses {
		switch u.Kind {
		case UseDamage, UseDrain, UseFixed, UseScript:
			return true
		}
	}
	return false
}

type BaseStats struct {
	HP        int `yaml:"hp"`
	Attack    int `yaml:"attack"`
	Defense   int `yaml:"defense"`
	SpAttack  int `yaml:"special-attack"`
	SpDefense int `yaml:"special-defense"`
	Speed     int `yaml:"speed"`
}

func (b BaseStats) Set() stats.Set {
	return stats.Set{b.HP, b.Attack, b.Defense, b.SpAttack, b.SpDefense, b.Speed}
}

type LearnEntry struct {
	Level int    `yaml:"level"`
	Move  string `yaml:"move"`
}

type Species struct {
	ID           string       `yaml:"-"`
	Number       int          `yaml:"number"`
	Types        []Type       `yaml:"types"`
	Base         BaseStats    `yaml:"base"`
	BaseExp      int          `yaml:"base_exp"`
	FemaleChance int          `yaml:"female_chance"`
	Genderless   bool         `yaml:"genderless"`
	Learnset     []LearnEntry `yaml:"learnset"`
}

func (s *Species) Name() string { return displayName(s.ID) }

// Primary is the type that grants the same-type damage bonus.
func (s *Species) Primary() Type {
	if len(s.Types) == 0 {
		return Normal
	}
	return s.Types[0]
}

// MovesAt returns the move ids a freshly generated pokemon of this species
// knows at level: the most recent four distinct moves learned at or below it.
func (s *Species) MovesAt(level int) []string {
	var known []string
	for _, e := range s.Learnset {
		if e.Level > level {
			continue
		}
		if i := slices.Index(known, e.Move); i >= 0 {
			known = slices.Delete(known, i, i+1)
		}
		known = append(known, e.Move)
	}
	if len(known) > MaxMoves {
		known = known[len(known)-MaxMoves:]
	}
	return known
}

type Item struct {
	ID       string       `yaml:"-"`
	Heal     int          `yaml:"heal"`
	Restore  bool         `yaml:"restore"`
	Cures    []StatusKind `yaml:"cures"`
	CureAll  bool         `yaml:"cure_all"`
	TurnHeal int          `yaml:"turn_heal"`
	Held     bool         `yaml:"held"`
}

func (i *Item) Name() string { return displayName(i.ID) }

func (i *Item) CanCure(k StatusKind) bool {
	if k == NoStatus {
		return false
	}
	return i.CureAll || slices.Contains(i.Cures, k)
}

// Usable reports whether using the item on p would have any effect.
func (i *Item) Usable(p *Pokemon) bool {
	if i.Held || p.Fainted() {
		return false
	}
	healing := (i.Heal > 0 || i.Restore) && p.HP < p.MaxHP()
	curing := p.Status != nil && i.CanCure(p.Status.Kind)
	return healing || curing
}

func displayName(id string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(id, "-", " "))
}
