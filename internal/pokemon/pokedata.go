package pokemon

import (
	"embed"
	"errors"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/dex.yaml data/types.yaml
var dataFS embed.FS

var ErrNotFound = errors.New("not found")

type dexFile struct {
	Species map[string]*Species `yaml:"species"`
	Moves   map[string]*Move    `yaml:"moves"`
	Items   map[string]*Item    `yaml:"items"`
}

// Dex is the immutable catalogue of species, moves and items plus the type
// chart. It is safe for concurrent reads.
type Dex struct {
	species map[string]*Species
	moves   map[string]*Move
	items   map[string]*Item
	chart   *TypeChart
}

var (
	defaultOnce sync.Once
	defaultDex  *Dex
	defaultErr  error
)

// Default returns the dex built from the embedded data files. It panics if
// that data is malformed.
func Default() *Dex {
	defaultOnce.Do(func() {
		defaultDex, defaultErr = Load()
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultDex
}

func Load() (*Dex, error) {
	dexData, err := dataFS.ReadFile("data/dex.yaml")
	if err != nil {
		return nil, err
	}
	chartData, err := dataFS.ReadFile("data/types.yaml")
	if err != nil {
		return nil, err
	}
	return Parse(dexData, chartData)
}

func Parse(dexData, chartData []byte) (*Dex, error) {
	chart, err := ParseTypeChart(chartData)
	if err != nil {
		return nil, err
	}
	var f dexFile
	if err := yaml.Unmarshal(dexData, &f); err != nil {
		return nil, fmt.Errorf("decode dex: %w", err)
	}
	d := &Dex{species: f.Species, moves: f.Moves, items: f.Items, chart: chart}
	if d.items == nil {
		d.items = map[string]*Item{}
	}
	for id, m := range d.moves {
		m.ID = id
		if m.PP <= 0 {
			return nil, fmt.Errorf("move %s: pp must be positive", id)
		}
		for i := range m.Uses {
			u := &m.Uses[i]
			if (u.Kind == UseDamage || u.Kind == UseDrain) && m.Category != StatusMove {
				u.Category = m.Category
			}
			if u.Kind == UseScript && u.Script == "" {
				return nil, fmt.Errorf("move %s: script use without id", id)
			}
		}
	}
	for id, s := range d.species {
		s.ID = id
		if len(s.Types) == 0 || len(s.Types) > 2 {
			return nil, fmt.Errorf("species %s: needs one or two types", id)
		}
		for _, e := range s.Learnset {
			if _, ok := d.moves[e.Move]; !ok {
				return nil, fmt.Errorf("species %s learns unknown move %q", id, e.Move)
			}
		}
	}
	for id, it := range d.items {
		it.ID = id
	}
	return d, nil
}

func (d *Dex) Chart() *TypeChart { return d.chart }

func (d *Dex) Species(id string) (*Species, error) {
	s, ok := d.species[id]
	if !ok {
		return nil, fmt.Errorf("species %q: %w", id, ErrNotFound)
	}
	return s, nil
}

func (d *Dex) Move(id string) (*Move, error) {
	m, ok := d.moves[id]
	if !ok {
		return nil, fmt.Errorf("move %q: %w", id, ErrNotFound)
	}
	return m, nil
}

func (d *Dex) Item(id string) (*Item, error) {
	it, ok := d.items[id]
	if !ok {
		return nil, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	return it, nil
}

// SpeciesIDs lists species ordered by dex number.
func (d *Dex) SpeciesIDs() []string {
	ids := make([]string, 0, len(d.species))
	for id := range d.species {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		return d.species[a].Number - d.species[b].Number
	})
	return ids
}

func (d *Dex) MoveIDs() []string {
	ids := make([]string, 0, len(d.moves))
	for id := range d.moves {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
