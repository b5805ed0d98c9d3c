package pokemon

import "fmt"

// LearnMoves teaches p the moves its species knows at its current level,
// replacing any moves it already has.
func (d *Dex) LearnMoves(p *Pokemon) error {
	p.Moves = p.Moves[:0]
	for _, id := range p.Species.MovesAt(p.Level) {
		m, err := d.Move(id)
		if err != nil {
			return fmt.Errorf("learnset of %s: %w", p.Species.ID, err)
		}
		if err := p.Learn(m); err != nil {
			return err
		}
	}
	return nil
}

// FilterDamaging keeps only moves that deal damage, preserving order.
func FilterDamaging(moves []MoveSlot) []MoveSlot {
	var filtered []MoveSlot
	for _, s := range moves {
		if s.Move.Damaging() {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
