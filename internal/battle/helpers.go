package battle

import (
	"fmt"
	"slices"

	"github.com/ross1116/pokebattle/internal/pokemon"
	"github.com/ross1116/pokebattle/internal/stats"
)

// ScriptView is a read-only snapshot handed to move scripts.
type ScriptView struct {
	Species string
	Types   []pokemon.Type
	Level   int
	HP      int
	MaxHP   int
	Stats   stats.Set
	Status  pokemon.StatusKind
}

func viewOf(p *pokemon.Pokemon) ScriptView {
	v := ScriptView{
		Species: p.Species.ID,
		Types:   slices.Clone(p.Types()),
		Level:   p.Level,
		HP:      p.HP,
		MaxHP:   p.MaxHP(),
		Stats:   p.Stats,
	}
	if p.Status != nil {
		v.Status = p.Status.Kind
	}
	return v
}

// ScriptFunc implements a move whose effect is not expressible as plain
// uses. It may only return uses; nested script uses are ignored.
type ScriptFunc func(user, target ScriptView, move *pokemon.Move) []pokemon.Use

type Scripts map[string]ScriptFunc

// DefaultScripts covers the script moves shipped in the embedded dex.
func DefaultScripts() Scripts {
	return Scripts{
		"super-fang": func(_, target ScriptView, _ *pokemon.Move) []pokemon.Use {
			return []pokemon.Use{pokemon.FixedDamage(max(target.HP/2, 1))}
		},
		"seismic-toss": levelDamage,
		"night-shade":  levelDamage,
	}
}

func levelDamage(user, _ ScriptView, _ *pokemon.Move) []pokemon.Use {
	return []pokemon.Use{pokemon.FixedDamage(user.Level)}
}

// Check fails if a move in dex names a script that is not registered.
func (s Scripts) Check(dex *pokemon.Dex) error {
	for _, id := range dex.MoveIDs() {
		m, _ := dex.Move(id)
		for _, u := range m.Uses {
			if u.Kind == pokemon.UseScript {
				if _, ok := s[u.Script]; !ok {
					return fmt.Errorf("move %s: script %q is not registered", id, u.Script)
				}
			}
		}
	}
	return nil
}
