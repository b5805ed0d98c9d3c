package stats

import (
	"fmt"
	"strings"
)

type Stat uint8

const (
	HP Stat = iota
	Attack
	Defense
	SpAttack
	SpDefense
	Speed
)

const (
	Count    = 6
	MaxIV    = 31
	MaxEV    = 252
	MaxStage = 6
)

var statNames = [Count]string{"hp", "attack", "defense", "special-attack", "special-defense", "speed"}

func (s Stat) String() string {
	if int(s) < Count {
		return statNames[s]
	}
	return fmt.Sprintf("stat(%d)", s)
}

func ParseStat(name string) (Stat, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range statNames {
		if n == name {
			return Stat(i), nil
		}
	}
	switch name {
	case "atk":
		return Attack, nil
	case "def":
		return Defense, nil
	case "spatk", "sp-atk":
		return SpAttack, nil
	case "spdef", "sp-def":
		return SpDefense, nil
	case "spe", "spd":
		return Speed, nil
	}
	return 0, fmt.Errorf("unknown stat %q", name)
}

func (s Stat) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stat) UnmarshalText(b []byte) error {
	v, err := ParseStat(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Set holds one value per stat, indexed by Stat.
type Set [Count]int

func (s Set) Get(stat Stat) int {
	return s[stat]
}

// Calc derives a level-scaled stat from base value, IV and EV.
func Calc(stat Stat, base, iv, ev, level int) int {
	core := (2*base + iv + ev/4) * level / 100
	if stat == HP {
		return core + level + 10
	}
	return core + 5
}

func CalcAll(base, ivs, evs Set, level int) Set {
	var out Set
	for i := range Count {
		out[i] = Calc(Stat(i), base[i], ivs[i], evs[i], level)
	}
	return out
}

// StageMultiplier returns the numerator and denominator applied to a stat at
// the given stage. Stages outside ±MaxStage are clamped.
func StageMultiplier(stage int) (num, den int) {
	stage = ClampStage(stage)
	if stage >= 0 {
		return 2 + stage, 2
	}
	return 2, 2 - stage
}

func ApplyStage(value, stage int) int {
	num, den := StageMultiplier(stage)
	return value * num / den
}

func ClampStage(stage int) int {
	if stage > MaxStage {
		return MaxStage
	}
	if stage < -MaxStage {
		return -MaxStage
	}
	return stage
}
