package pokemon

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type Type uint8

const (
	Normal Type = iota
	Fire
	Water
	Electric
	Grass
	Ice
	Fighting
	Poison
	Ground
	Flying
	Psychic
	Bug
	Rock
	Ghost
	Dragon
	Dark
	Steel
	Fairy
)

const TypeCount = 18

var typeNames = [TypeCount]string{
	"normal", "fire", "water", "electric", "grass", "ice", "fighting", "poison", "ground",
	"flying", "psychic", "bug", "rock", "ghost", "dragon", "dark", "steel", "fairy",
}

func AllTypes() []Type {
	out := make([]Type, TypeCount)
	for i := range out {
		out[i] = Type(i)
	}
	return out
}

func (t Type) String() string {
	if int(t) < TypeCount {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", t)
}

func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("unknown type %q", name)
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Effectiveness is the damage multiplier of an attacking type against a
// defender. Dual-typed defenders multiply both entries, so 0.25 and 4 occur.
type Effectiveness float64

const (
	Ineffective    Effectiveness = 0
	NotEffective   Effectiveness = 0.5
	Effective      Effectiveness = 1
	SuperEffective Effectiveness = 2
)

func (e Effectiveness) String() string {
	switch {
	case e == 0:
		return "ineffective"
	case e < 1:
		return "not-effective"
	case e == 1:
		return "effective"
	default:
		return "super-effective"
	}
}

type TypeChart struct {
	grid [TypeCount][TypeCount]Effectiveness
}

type chartRow struct {
	Super  []Type `yaml:"super"`
	Weak   []Type `yaml:"weak"`
	Immune []Type `yaml:"immune"`
}

// ParseTypeChart reads a chart in the embedded data format: one entry per
// attacking type listing the defenders it is super effective, weak or
// useless against. Pairings that are not listed are neutral.
func ParseTypeChart(data []byte) (*TypeChart, error) {
	var rows map[Type]chartRow
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode type chart: %w", err)
	}
	c := &TypeChart{}
	for a := range TypeCount {
		for d := range TypeCount {
			c.grid[a][d] = Effective
		}
	}
	for attack, row := range rows {
		for _, d := range row.Super {
			c.grid[attack][d] = SuperEffective
		}
		for _, d := range row.Weak {
			c.grid[attack][d] = NotEffective
		}
		for _, d := range row.Immune {
			c.grid[attack][d] = Ineffective
		}
	}
	return c, nil
}

// Against returns the product of the attacking type's multiplier over each
// defending type.
func (c *TypeChart) Against(attack Type, defend ...Type) Effectiveness {
	e := Effective
	for _, d := range defend {
		e *= c.grid[attack][d]
	}
	return e
}
