package pokemon

import (
	"fmt"
	"os"

	"github.com/ross1116/pokebattle/internal/stats"
	"gopkg.in/yaml.v3"
)

type SavedMove struct {
	Move string `yaml:"move" json:"move"`
	PP   int    `yaml:"pp" json:"pp"`
}

// Saved is the persisted form of a pokemon. Stats are not stored; they are
// recomputed from species, level, IVs and EVs on restore.
type Saved struct {
	Species    string      `yaml:"species" json:"species"`
	Nickname   string      `yaml:"nickname,omitempty" json:"nickname,omitempty"`
	Level      int         `yaml:"level" json:"level"`
	Gender     Gender      `yaml:"gender" json:"gender"`
	IVs        stats.Set   `yaml:"ivs,flow" json:"ivs"`
	EVs        stats.Set   `yaml:"evs,flow" json:"evs"`
	HP         int         `yaml:"hp" json:"hp"`
	Experience int         `yaml:"experience" json:"experience"`
	Friendship int         `yaml:"friendship" json:"friendship"`
	Moves      []SavedMove `yaml:"moves" json:"moves"`
	Item       string      `yaml:"item,omitempty" json:"item,omitempty"`
	Status     *Status     `yaml:"status,omitempty" json:"status,omitempty"`
}

func (p *Pokemon) Save() Saved {
	s := Saved{
		Species:    p.Species.ID,
		Nickname:   p.Nickname,
		Level:      p.Level,
		Gender:     p.Gender,
		IVs:        p.IVs,
		EVs:        p.EVs,
		HP:         p.HP,
		Experience: p.Experience,
		Friendship: p.Friendship,
	}
	for _, m := range p.Moves {
		s.Moves = append(s.Moves, SavedMove{Move: m.Move.ID, PP: m.PP})
	}
	if p.Item != nil {
		s.Item = p.Item.ID
	}
	if p.Status != nil {
		st := *p.Status
		s.Status = &st
	}
	return s
}

// Restore rebuilds a pokemon from its saved form, validating every reference
// against the dex.
func (d *Dex) Restore(s Saved) (*Pokemon, error) {
	sp, err := d.Species(s.Species)
	if err != nil {
		return nil, err
	}
	if s.Level < MinLevel || s.Level > MaxLevel {
		return nil, fmt.Errorf("%s: level %d out of range", s.Species, s.Level)
	}
	for i := range stats.Count {
		if s.IVs[i] < 0 || s.IVs[i] > stats.MaxIV || s.EVs[i] < 0 || s.EVs[i] > stats.MaxEV {
			return nil, fmt.Errorf("%s: %s IV/EV out of range", s.Species, stats.Stat(i))
		}
	}
	p := New(sp, s.Level, s.IVs, s.EVs)
	p.Nickname = s.Nickname
	p.Gender = s.Gender
	p.SetHP(s.HP)
	p.Experience = max(s.Experience, ExperienceFor(s.Level))
	p.Friendship = s.Friendship
	for _, sm := range s.Moves {
		m, err := d.Move(sm.Move)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Species, err)
		}
		if err := p.Learn(m); err != nil {
			return nil, err
		}
		p.Moves[len(p.Moves)-1].PP = min(max(sm.PP, 0), m.PP)
	}
	if s.Item != "" {
		it, err := d.Item(s.Item)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Species, err)
		}
		p.Item = it
	}
	if s.Status != nil && s.Status.Kind != NoStatus && !p.Fainted() {
		st := *s.Status
		p.Status = &st
	}
	return p, nil
}

// SaveFile is the on-disk player save used by the local game.
type SaveFile struct {
	Player string         `yaml:"player"`
	Party  []Saved        `yaml:"party"`
	Bag    map[string]int `yaml:"bag,omitempty"`
}

func ReadSaveFile(path string) (*SaveFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f SaveFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode save %s: %w", path, err)
	}
	return &f, nil
}

func WriteSaveFile(path string, f *SaveFile) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode save: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
