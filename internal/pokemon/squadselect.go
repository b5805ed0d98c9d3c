package pokemon

import (
	"fmt"

	"github.com/ross1116/pokebattle/internal/random"
	"github.com/ross1116/pokebattle/internal/stats"
)

// Generate creates a wild-style pokemon: random IVs, random gender, no EVs
// and the moves its species knows at level.
func (d *Dex) Generate(rng *random.Engine, speciesID string, level int) (*Pokemon, error) {
	sp, err := d.Species(speciesID)
	if err != nil {
		return nil, err
	}
	var ivs stats.Set
	for i := range ivs {
		ivs[i] = rng.Range(0, stats.MaxIV+1)
	}
	p := New(sp, level, ivs, stats.Set{})
	switch {
	case sp.Genderless:
		p.Gender = Genderless
	case rng.Chance(sp.FemaleChance, 100):
		p.Gender = Female
	default:
		p.Gender = Male
	}
	if err := d.LearnMoves(p); err != nil {
		return nil, err
	}
	return p, nil
}

// RandomSquad draws size distinct species with levels in [minLevel, maxLevel].
func (d *Dex) RandomSquad(rng *random.Engine, size, minLevel, maxLevel int) ([]*Pokemon, error) {
	ids := d.SpeciesIDs()
	if size > len(ids) {
		return nil, fmt.Errorf("squad of %d exceeds %d known species", size, len(ids))
	}
	if maxLevel < minLevel {
		minLevel, maxLevel = maxLevel, minLevel
	}
	squad := make([]*Pokemon, 0, size)
	for range size {
		i := rng.Range(0, len(ids))
		id := ids[i]
		ids = append(ids[:i], ids[i+1:]...)
		p, err := d.Generate(rng, id, rng.Range(minLevel, maxLevel+1))
		if err != nil {
			return nil, err
		}
		squad = append(squad, p)
	}
	return squad, nil
}
