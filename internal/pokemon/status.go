package pokemon

import (
	"fmt"
	"strings"
)

type StatusKind uint8

const (
	NoStatus StatusKind = iota
	Poisoned
	Burned
	Paralyzed
	Asleep
	Frozen
	BadlyPoisoned
)

var statusNames = [...]string{"none", "poison", "burn", "paralysis", "sleep", "freeze", "toxic"}

func (k StatusKind) String() string {
	if int(k) < len(statusNames) {
		return statusNames[k]
	}
	return fmt.Sprintf("status(%d)", k)
}

func ParseStatus(name string) (StatusKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range statusNames {
		if n == name {
			return StatusKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}

func (k StatusKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *StatusKind) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Duration is the half-open range of turns a status lasts once inflicted.
// Zero values mean the status lasts until cured.
func (k StatusKind) Duration() (min, max int) {
	switch k {
	case Asleep:
		return 1, 4
	case Frozen:
		return 1, 5
	}
	return 0, 0
}

// ImmuneTo reports whether a pokemon of the given types cannot receive k.
func (k StatusKind) ImmuneTo(types []Type) bool {
	for _, t := range types {
		switch {
		case k == Burned && t == Fire,
			k == Frozen && t == Ice,
			k == Paralyzed && t == Electric,
			(k == Poisoned || k == BadlyPoisoned) && (t == Poison || t == Steel):
			return true
		}
	}
	return false
}

// Status is an active status effect on a pokemon. Turns counts down for
// timed effects. For toxic it counts the ticks taken since the pokemon last
// came in.
type Status struct {
	Kind  StatusKind `yaml:"kind" json:"kind"`
	Turns int        `yaml:"turns,omitempty" json:"turns,omitempty"`
}

func (s *Status) Timed() bool {
	lo, hi := s.Kind.Duration()
	return hi > lo
}

// TickDamage is the end-of-turn damage the status deals to a pokemon with
// the given max HP. Toxic grows by 1/16 each tick, capped at 15/16.
func (s *Status) TickDamage(maxHP int) int {
	var d int
	switch s.Kind {
	case Burned:
		d = maxHP / 16
	case Poisoned:
		d = maxHP / 8
	case BadlyPoisoned:
		d = maxHP * min(s.Turns+1, 15) / 16
	default:
		return 0
	}
	return max(d, 1)
}

// Tick returns TickDamage and advances the toxic counter.
func (s *Status) Tick(maxHP int) int {
	d := s.TickDamage(maxHP)
	if s.Kind == BadlyPoisoned {
		s.Turns++
	}
	return d
}

// Volatile holds conditions that end when the pokemon leaves the field.
type Volatile struct {
	Confused int // turns left
	Flinched bool
}
