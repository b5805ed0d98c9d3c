package battle

import (
	"fmt"
	"maps"

	"github.com/google/uuid"
	"github.com/ross1116/pokebattle/internal/pokemon"
)

const (
	MaxPartySize = 6
	Empty        = -1
)

// Party is the authoritative state of one side: its members, which of them
// occupy the active slots, and the item bag.
type Party struct {
	ID      string
	Name    string
	Members []*pokemon.Pokemon
	Bag     map[string]int
	active  []int
}

// NewParty fills the active slots with the first standing members in order.
func NewParty(name string, members []*pokemon.Pokemon, activeSlots int) (*Party, error) {
	if len(members) == 0 || len(members) > MaxPartySize {
		return nil, fmt.Errorf("party %s: size %d outside 1..%d", name, len(members), MaxPartySize)
	}
	if activeSlots < 1 {
		return nil, fmt.Errorf("party %s: needs at least one active slot", name)
	}
	p := &Party{
		ID:      uuid.NewString(),
		Name:    name,
		Members: members,
		Bag:     map[string]int{},
		active:  make([]int, activeSlots),
	}
	next := 0
	for slot := range p.active {
		p.active[slot] = Empty
		for next < len(members) && members[next].Fainted() {
			next++
		}
		if next < len(members) {
			p.active[slot] = next
			next++
		}
	}
	if p.active[0] == Empty {
		return nil, fmt.Errorf("party %s: no pokemon able to battle", name)
	}
	return p, nil
}

func (p *Party) ActiveLen() int { return len(p.active) }

// ActiveIndex returns the party index in slot, or Empty.
func (p *Party) ActiveIndex(slot int) int {
	if slot < 0 || slot >= len(p.active) {
		return Empty
	}
	return p.active[slot]
}

func (p *Party) Active(slot int) (*pokemon.Pokemon, bool) {
	i := p.ActiveIndex(slot)
	if i == Empty {
		return nil, false
	}
	return p.Members[i], true
}

// ActiveIndices returns a copy of the active slot array.
func (p *Party) ActiveIndices() []int {
	return append([]int(nil), p.active...)
}

func (p *Party) IsActive(index int) bool {
	for _, i := range p.active {
		if i == index {
			return true
		}
	}
	return false
}

// SlotOf returns the active slot holding index, or Empty.
func (p *Party) SlotOf(index int) int {
	for slot, i := range p.active {
		if i == index {
			return slot
		}
	}
	return Empty
}

// AnyInactive reports whether a standing member is available to switch in.
func (p *Party) AnyInactive() bool {
	for i, m := range p.Members {
		if !m.Fainted() && !p.IsActive(i) {
			return true
		}
	}
	return false
}

// Lost is true once no member can battle.
func (p *Party) Lost() bool {
	for _, m := range p.Members {
		if !m.Fainted() {
			return false
		}
	}
	return true
}

// CanReplace checks that index may be sent into slot.
func (p *Party) CanReplace(slot, index int) error {
	if slot < 0 || slot >= len(p.active) {
		return fmt.Errorf("no active slot %d", slot)
	}
	if index < 0 || index >= len(p.Members) {
		return fmt.Errorf("no party member %d", index)
	}
	if p.Members[index].Fainted() {
		return fmt.Errorf("%s has fainted", p.Members[index].Name())
	}
	if p.IsActive(index) {
		return fmt.Errorf("%s is already in battle", p.Members[index].Name())
	}
	return nil
}

// Replace sends index into slot. The outgoing member loses its stat stages.
func (p *Party) Replace(slot, index int) error {
	if err := p.CanReplace(slot, index); err != nil {
		return err
	}
	if out := p.active[slot]; out != Empty {
		p.Members[out].Withdraw()
	}
	p.active[slot] = index
	return nil
}

// Mirror puts index into slot without the legality checks of Replace. It is
// for copies of a party that follow the host, which may send in a member that
// has since fainted. Empty vacates the slot.
func (p *Party) Mirror(slot, index int) error {
	if slot < 0 || slot >= len(p.active) {
		return fmt.Errorf("no active slot %d", slot)
	}
	if index != Empty && (index < 0 || index >= len(p.Members)) {
		return fmt.Errorf("no party member %d", index)
	}
	if out := p.active[slot]; out != Empty && out != index {
		p.Members[out].Withdraw()
	}
	p.active[slot] = index
	return nil
}

// Vacate empties a slot whose occupant can no longer battle.
func (p *Party) Vacate(slot int) {
	if out := p.active[slot]; out != Empty {
		p.Members[out].Withdraw()
	}
	p.active[slot] = Empty
}

// Take removes one item from the bag.
func (p *Party) Take(item string) bool {
	if p.Bag[item] <= 0 {
		return false
	}
	p.Bag[item]--
	if p.Bag[item] == 0 {
		delete(p.Bag, item)
	}
	return true
}

// Save captures the members for persistence. Stat stages are battle-only and
// are not written.
func (p *Party) Save() []pokemon.Saved {
	out := make([]pokemon.Saved, len(p.Members))
	for i, m := range p.Members {
		out[i] = m.Save()
	}
	return out
}

// Clone returns an independent copy with the same id.
func (p *Party) Clone() *Party {
	cp := &Party{
		ID:      p.ID,
		Name:    p.Name,
		Members: make([]*pokemon.Pokemon, len(p.Members)),
		Bag:     maps.Clone(p.Bag),
		active:  append([]int(nil), p.active...),
	}
	if cp.Bag == nil {
		cp.Bag = map[string]int{}
	}
	for i, m := range p.Members {
		cp.Members[i] = m.Clone()
	}
	return cp
}

// RestoreParty rebuilds a party received from the host. The active array is
// taken as-is so the copy mirrors the host's slots.
func RestoreParty(dex *pokemon.Dex, id, name string, saved []pokemon.Saved, active []int, bag map[string]int) (*Party, error) {
	if len(saved) == 0 || len(saved) > MaxPartySize {
		return nil, fmt.Errorf("party %s: size %d outside 1..%d", name, len(saved), MaxPartySize)
	}
	p := &Party{ID: id, Name: name, Bag: maps.Clone(bag), active: append([]int(nil), active...)}
	if p.Bag == nil {
		p.Bag = map[string]int{}
	}
	for _, s := range saved {
		m, err := dex.Restore(s)
		if err != nil {
			return nil, fmt.Errorf("party %s: %w", name, err)
		}
		p.Members = append(p.Members, m)
	}
	for _, i := range p.active {
		if i != Empty && (i < 0 || i >= len(p.Members)) {
			return nil, fmt.Errorf("party %s: active index %d out of range", name, i)
		}
	}
	return p, nil
}
