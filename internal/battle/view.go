package battle

import (
	"fmt"
	"slices"

	"github.com/ross1116/pokebattle/internal/pokemon"
)

// PartyView is what a participant holds for one side of a battle. It is
// either a KnownParty (the participant's own party) or an UnknownParty (an
// opponent seen through reveals). The set of implementations is closed.
type PartyView interface {
	ID() string
	Name() string
	Len() int
	ActiveLen() int
	Active(slot int) (PokemonView, bool)
	Pokemon(index int) (PokemonView, bool)
	Replace(slot, index int) error
	AnyInactive() bool
	partyView()
}

// PokemonView is one member as seen through a PartyView. SetHP takes exact
// HP on a known pokemon and a percentage on an unknown one.
type PokemonView interface {
	Name() string
	Level() int
	HPPercent() int
	Fainted() bool
	SetHP(hp int)
	Effect() *pokemon.Status
	pokemonView()
}

// KnownParty exposes a full party to its owner.
type KnownParty struct {
	Party *Party
}

func (k KnownParty) partyView()        {}
func (k KnownParty) ID() string        { return k.Party.ID }
func (k KnownParty) Name() string      { return k.Party.Name }
func (k KnownParty) Len() int          { return len(k.Party.Members) }
func (k KnownParty) ActiveLen() int    { return k.Party.ActiveLen() }
func (k KnownParty) AnyInactive() bool { return k.Party.AnyInactive() }

func (k KnownParty) Active(slot int) (PokemonView, bool) {
	p, ok := k.Party.Active(slot)
	if !ok {
		return nil, false
	}
	return KnownPokemon{p}, true
}

func (k KnownParty) Pokemon(index int) (PokemonView, bool) {
	if index < 0 || index >= len(k.Party.Members) {
		return nil, false
	}
	return KnownPokemon{k.Party.Members[index]}, true
}

// Replace mirrors an authoritative slot change. Empty vacates the slot.
func (k KnownParty) Replace(slot, index int) error {
	return k.Party.Mirror(slot, index)
}

type KnownPokemon struct {
	P *pokemon.Pokemon
}

func (k KnownPokemon) pokemonView()            {}
func (k KnownPokemon) Name() string            { return k.P.Name() }
func (k KnownPokemon) Level() int              { return k.P.Level }
func (k KnownPokemon) HPPercent() int          { return k.P.HPPercent() }
func (k KnownPokemon) Fainted() bool           { return k.P.Fainted() }
func (k KnownPokemon) SetHP(hp int)            { k.P.SetHP(hp) }
func (k KnownPokemon) Effect() *pokemon.Status { return k.P.Status }

// UnknownPokemon is the redacted projection of an opposing pokemon. It never
// carries exact stats, IVs, the held item or moves that have not been used.
// A zero value stands for a member that has not been revealed.
type UnknownPokemon struct {
	Species  string          `json:"species,omitempty"`
	Lvl      int             `json:"level,omitempty"`
	Percent  int             `json:"percent"`
	Status   *pokemon.Status `json:"status,omitempty"`
	Confused bool            `json:"confused,omitempty"`
	Down     bool            `json:"fainted,omitempty"`
	Moves    []string        `json:"moves,omitempty"`
}

func (u *UnknownPokemon) pokemonView() {}

func (u *UnknownPokemon) Revealed() bool { return u.Species != "" }

func (u *UnknownPokemon) Name() string {
	if !u.Revealed() {
		return "Unknown"
	}
	if sp, err := pokemon.Default().Species(u.Species); err == nil {
		return sp.Name()
	}
	return u.Species
}

func (u *UnknownPokemon) Level() int     { return u.Lvl }
func (u *UnknownPokemon) HPPercent() int { return u.Percent }
func (u *UnknownPokemon) Fainted() bool  { return u.Down }

func (u *UnknownPokemon) SetHP(percent int) {
	if !u.Revealed() {
		return
	}
	u.Percent = min(max(percent, 0), 100)
	u.Down = u.Percent == 0
}

func (u *UnknownPokemon) Effect() *pokemon.Status { return u.Status }

// SetEffect records a status that has been seen. Unrevealed members are left
// untouched.
func (u *UnknownPokemon) SetEffect(s *pokemon.Status) {
	if !u.Revealed() {
		return
	}
	if s == nil {
		u.Status = nil
		return
	}
	st := pokemon.Status{Kind: s.Kind}
	u.Status = &st
}

// SawMove adds a move to the list of moves seen in use.
func (u *UnknownPokemon) SawMove(id string) {
	if !u.Revealed() || id == "" || slices.Contains(u.Moves, id) {
		return
	}
	u.Moves = append(u.Moves, id)
}

// UnknownParty is an opponent's party as far as the holder has seen it.
type UnknownParty struct {
	PartyID   string           `json:"id"`
	PartyName string           `json:"name"`
	Members   []UnknownPokemon `json:"members"`
	Slots     []int            `json:"active"`
}

// NewUnknownParty makes a projection with size unrevealed members.
func NewUnknownParty(id, name string, size int, active []int) *UnknownParty {
	return &UnknownParty{
		PartyID:   id,
		PartyName: name,
		Members:   make([]UnknownPokemon, size),
		Slots:     append([]int(nil), active...),
	}
}

func (u *UnknownParty) partyView()     {}
func (u *UnknownParty) ID() string     { return u.PartyID }
func (u *UnknownParty) Name() string   { return u.PartyName }
func (u *UnknownParty) Len() int       { return len(u.Members) }
func (u *UnknownParty) ActiveLen() int { return len(u.Slots) }

func (u *UnknownParty) Active(slot int) (PokemonView, bool) {
	if slot < 0 || slot >= len(u.Slots) || u.Slots[slot] == Empty {
		return nil, false
	}
	return u.Pokemon(u.Slots[slot])
}

func (u *UnknownParty) Pokemon(index int) (PokemonView, bool) {
	m, ok := u.Member(index)
	if !ok {
		return nil, false
	}
	return m, true
}

// Member returns the concrete projection at index.
func (u *UnknownParty) Member(index int) (*UnknownPokemon, bool) {
	if index < 0 || index >= len(u.Members) {
		return nil, false
	}
	return &u.Members[index], true
}

func (u *UnknownParty) Replace(slot, index int) error {
	if slot < 0 || slot >= len(u.Slots) {
		return fmt.Errorf("no active slot %d", slot)
	}
	if index != Empty && (index < 0 || index >= len(u.Members)) {
		return fmt.Errorf("no party member %d", index)
	}
	if out := u.Slots[slot]; out != Empty && out != index {
		u.Members[out].Confused = false
	}
	u.Slots[slot] = index
	return nil
}

// Reveal stores what has become visible about a member.
func (u *UnknownParty) Reveal(index int, p UnknownPokemon) error {
	if index < 0 || index >= len(u.Members) {
		return fmt.Errorf("no party member %d", index)
	}
	u.Members[index] = p
	return nil
}

// AnyInactive assumes unrevealed members are still able to battle.
func (u *UnknownParty) AnyInactive() bool {
	for i := range u.Members {
		if u.Members[i].Down || slices.Contains(u.Slots, i) {
			continue
		}
		return true
	}
	return false
}

// Project builds the redacted view of one member. Seen lists the moves the
// member has been observed using.
func Project(p *pokemon.Pokemon, seen []string) UnknownPokemon {
	u := UnknownPokemon{
		Species:  p.Species.ID,
		Lvl:      p.Level,
		Percent:  p.HPPercent(),
		Confused: p.Volatile.Confused > 0,
		Down:     p.Fainted(),
		Moves:    slices.Clone(seen),
	}
	if p.Status != nil {
		u.Status = &pokemon.Status{Kind: p.Status.Kind}
	}
	return u
}
