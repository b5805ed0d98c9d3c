package battle

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/ross1116/pokebattle/internal/pokemon"
	"github.com/ross1116/pokebattle/internal/stats"
)

type queuedAction struct {
	side     int
	slot     int
	sel      Selection
	priority int
	speed    int
	tie      uint32
}

// Resolve runs the turn: every queued action in order, faint checks after
// each, then end-of-turn effects.
func (b *Battle) Resolve() (TurnReport, error) {
	if b.Ended() {
		return TurnReport{}, ErrBattleEnded
	}
	if !b.Ready() {
		return TurnReport{}, fmt.Errorf("turn %d: %w", b.turn, ErrNotReady)
	}
	rep := TurnReport{Turn: b.turn, Winner: NoWinner}
	for _, a := range b.order() {
		b.execute(a, &rep)
		b.checkFaints(&rep)
		if b.checkEnd() {
			break
		}
	}
	if !b.Ended() {
		b.endOfTurn(&rep)
		b.checkEnd()
	}
	for side := range b.queued {
		clear(b.queued[side])
	}
	b.turn++
	b.finishReport(&rep)
	b.log.Info().Int("turn", rep.Turn).Int("actions", len(rep.Results)).Bool("ended", rep.Ended).Msg("turn resolved")
	return rep, nil
}

// order builds the execution list. Actions sort by kind (forfeit, switch,
// item, move), then move priority and current speed, both descending. Ties
// go to the higher of one draw per action, taken in side/slot order before
// sorting; side and slot settle anything left.
func (b *Battle) order() []queuedAction {
	var actions []queuedAction
	for side, slots := range b.queued {
		for slot, sel := range slots {
			if sel == nil {
				continue
			}
			a := queuedAction{side: side, slot: slot, sel: *sel}
			if user, ok := b.parties[side].Active(slot); ok {
				a.speed = user.Effective(stats.Speed)
				if sel.Kind == SelectMove && user.CanUse(sel.Move) {
					a.priority = user.Moves[sel.Move].Move.Priority
				}
			}
			a.tie = b.rng.NextU32()
			actions = append(actions, a)
		}
	}
	slices.SortStableFunc(actions, func(x, y queuedAction) int {
		return cmp.Or(
			cmp.Compare(x.sel.Kind, y.sel.Kind),
			cmp.Compare(y.priority, x.priority),
			cmp.Compare(y.speed, x.speed),
			cmp.Compare(y.tie, x.tie),
			cmp.Compare(x.side, y.side),
			cmp.Compare(x.slot, y.slot),
		)
	})
	return actions
}

func (b *Battle) execute(a queuedAction, rep *TurnReport) {
	if b.forfeited[a.side] {
		return
	}
	party := b.parties[a.side]
	if a.sel.Kind == SelectForfeit {
		b.forfeit(a.side, a.slot, rep)
		return
	}
	idx := party.ActiveIndex(a.slot)
	if idx == Empty || party.Members[idx].Fainted() {
		return
	}
	switch a.sel.Kind {
	case SelectSwitch:
		b.executeSwitch(a, rep)
	case SelectItem:
		b.executeItem(a, idx, rep)
	case SelectMove:
		b.executeMove(a, idx, rep)
	}
}

func (b *Battle) executeSwitch(a queuedAction, rep *TurnReport) {
	party := b.parties[a.side]
	if err := party.Replace(a.slot, a.sel.Index); err != nil {
		b.log.Warn().Err(err).Int("side", a.side).Int("slot", a.slot).Msg("queued switch no longer legal")
		return
	}
	in := party.Members[a.sel.Index]
	rep.Results = append(rep.Results, ActionOutcome{
		Kind: ActionSwitch, Side: a.side, Slot: a.slot, Index: a.sel.Index,
		HP: in.HP, Percent: in.HPPercent(),
	})
	b.revealTo(a.side, a.sel.Index, rep)
	rep.Replaces = append(rep.Replaces, Replacement{Side: a.side, Slot: a.slot, Index: a.sel.Index})
}

func (b *Battle) executeItem(a queuedAction, idx int, rep *TurnReport) {
	party := b.parties[a.side]
	item, err := b.dex.Item(a.sel.Item)
	if err != nil || !party.Take(a.sel.Item) {
		return
	}
	target := party.Members[a.sel.Index]
	t := TargetOutcome{
		Side: a.side, Slot: party.SlotOf(a.sel.Index), Index: a.sel.Index,
		Kind: Failed, Effectiveness: pokemon.Effective,
	}
	if item.Usable(target) {
		t.Kind = Hit
		switch {
		case item.Restore:
			t.Healed = target.Heal(target.MaxHP())
		case item.Heal > 0:
			t.Healed = target.Heal(item.Heal)
		}
		if target.Status != nil && item.CanCure(target.Status.Kind) {
			target.Cure()
			t.Cured = true
		}
	}
	t.HP, t.Percent = target.HP, target.HPPercent()
	user := party.Members[idx]
	rep.Results = append(rep.Results, ActionOutcome{
		Kind: ActionItem, Side: a.side, Slot: a.slot, Index: idx, Item: item.ID,
		Targets: []TargetOutcome{t}, HP: user.HP, Percent: user.HPPercent(),
	})
}

func (b *Battle) executeMove(a queuedAction, idx int, rep *TurnReport) {
	user := b.parties[a.side].Members[idx]
	if !user.CanUse(a.sel.Move) {
		return
	}
	move := user.Moves[a.sel.Move].Move
	out := ActionOutcome{Kind: ActionMove, Side: a.side, Slot: a.slot, Index: idx, Move: move.ID}

	if !b.canAct(user, &out) {
		out.HP, out.Percent = user.HP, user.HPPercent()
		rep.Results = append(rep.Results, out)
		return
	}

	user.SpendPP(a.sel.Move)
	b.lastMove[a.side][a.slot] = a.sel.Move
	b.sawMove(a.side, idx, move.ID)

	refs, mons := b.targets(a.side, a.slot, move, a.sel.Target)
	out.Targets = b.pipeline.Resolve(b.rng, user, move, mons)
	for i := range out.Targets {
		t := &out.Targets[i]
		t.Side, t.Slot = refs[i].Side, refs[i].Slot
		t.Index = b.parties[t.Side].ActiveIndex(t.Slot)
		if t.Fainted && t.Damage > 0 && t.Side != a.side {
			exp := mons[i].YieldExperience()
			out.Experience += exp
			out.Levels = append(out.Levels, user.GainExperience(exp)...)
		}
	}
	out.HP, out.Percent = user.HP, user.HPPercent()
	rep.Results = append(rep.Results, out)
	b.log.Debug().Int("side", a.side).Int("slot", a.slot).Str("move", move.ID).Int("targets", len(out.Targets)).Msg("move used")
}

// canAct runs the pre-move checks in order: sleep and freeze count down
// without a draw, flinch skips, paralysis draws once, and confusion counts
// down before drawing for a self-hit.
func (b *Battle) canAct(user *pokemon.Pokemon, out *ActionOutcome) bool {
	if st := user.Status; st != nil {
		switch st.Kind {
		case pokemon.Asleep, pokemon.Frozen:
			if st.Turns > 0 {
				st.Turns--
				out.Skipped = st.Kind.String()
				return false
			}
			user.Cure()
			out.Woke = true
		}
	}
	if user.Volatile.Flinched {
		out.Skipped = "flinch"
		return false
	}
	if st := user.Status; st != nil && st.Kind == pokemon.Paralyzed && b.rng.Chance(1, 4) {
		out.Skipped = st.Kind.String()
		return false
	}
	if user.Volatile.Confused > 0 {
		user.Volatile.Confused--
		if user.Volatile.Confused == 0 {
			out.SnappedOut = true
			return true
		}
		if b.rng.Chance(1, 3) {
			out.Skipped = "confusion"
			out.SelfHit = user.Hurt(selfHit(user))
			return false
		}
	}
	return true
}

// targets resolves who a move hits. Empty slots come back as nil so the
// pipeline reports them as having no target.
func (b *Battle) targets(side, slot int, move *pokemon.Move, chosen *SlotRef) ([]SlotRef, []*pokemon.Pokemon) {
	switch move.Target {
	case pokemon.TargetSelf:
		p, _ := b.parties[side].Active(slot)
		return []SlotRef{{Side: side, Slot: slot}}, []*pokemon.Pokemon{p}

	case pokemon.TargetAllOpponents:
		var refs []SlotRef
		var mons []*pokemon.Pokemon
		for s, party := range b.parties {
			if s == side {
				continue
			}
			for sl := range party.active {
				if p, ok := party.Active(sl); ok {
					refs = append(refs, SlotRef{Side: s, Slot: sl})
					mons = append(mons, p)
				}
			}
		}
		return refs, mons
	}

	if chosen != nil {
		p, _ := b.parties[chosen.Side].Active(chosen.Slot)
		return []SlotRef{*chosen}, []*pokemon.Pokemon{p}
	}
	var fallback *SlotRef
	for s, party := range b.parties {
		if s == side {
			continue
		}
		if fallback == nil {
			fallback = &SlotRef{Side: s}
		}
		for sl := range party.active {
			if p, ok := party.Active(sl); ok {
				return []SlotRef{{Side: s, Slot: sl}}, []*pokemon.Pokemon{p}
			}
		}
	}
	return []SlotRef{*fallback}, []*pokemon.Pokemon{nil}
}

func (b *Battle) sawMove(side, index int, id string) {
	if !slices.Contains(b.seen[side][index], id) {
		b.seen[side][index] = append(b.seen[side][index], id)
	}
}

// checkFaints vacates slots whose occupant fainted. A slot is owed a
// replacement while the side has more standing reserves than open
// obligations.
func (b *Battle) checkFaints(rep *TurnReport) {
	for side, party := range b.parties {
		for slot, idx := range party.active {
			if idx == Empty || !party.Members[idx].Fainted() {
				continue
			}
			party.Vacate(slot)
			rep.Replaces = append(rep.Replaces, Replacement{Side: side, Slot: slot, Index: Empty})
			if !b.forfeited[side] && b.reserves(side) > len(b.Owed(side)) {
				b.owed[side][slot] = true
			}
			b.log.Debug().Int("side", side).Int("slot", slot).Int("index", idx).Bool("owed", b.owed[side][slot]).Msg("pokemon fainted")
		}
	}
}

func (b *Battle) reserves(side int) int {
	party := b.parties[side]
	n := 0
	for i, m := range party.Members {
		if !m.Fainted() && !party.IsActive(i) {
			n++
		}
	}
	return n
}

func (b *Battle) alive() []int {
	var alive []int
	for side := range b.parties {
		if !b.Lost(side) {
			alive = append(alive, side)
		}
	}
	return alive
}

// checkEnd records the winner once at most one side can still battle. If
// every side is out at the same moment the battle is a draw.
func (b *Battle) checkEnd() bool {
	if b.Ended() {
		return true
	}
	for side := range b.parties {
		if b.Lost(side) {
			clear(b.owed[side])
		}
	}
	alive := b.alive()
	if len(alive) > 1 {
		return false
	}
	w := NoWinner
	if len(alive) == 1 {
		w = alive[0]
	}
	b.Data.decide(w)
	b.log.Info().Int("winner", w).Int("turn", b.turn).Msg("battle ended")
	return true
}

// endOfTurn clears flinches, then applies status damage and held item
// healing in side/slot order.
func (b *Battle) endOfTurn(rep *TurnReport) {
	for side, party := range b.parties {
		for slot, idx := range party.active {
			if idx == Empty {
				continue
			}
			m := party.Members[idx]
			m.Volatile.Flinched = false
			if m.Status != nil {
				if d := m.Status.Tick(m.MaxHP()); d > 0 {
					dealt := m.Hurt(d)
					rep.Results = append(rep.Results, ActionOutcome{
						Kind: ActionStatus, Side: side, Slot: slot, Index: idx, Status: m.Status.Kind,
						HP: m.HP, Percent: m.HPPercent(),
						Targets: []TargetOutcome{{
							Side: side, Slot: slot, Index: idx, Kind: Hit, Damage: dealt,
							Effectiveness: pokemon.Effective, HP: m.HP, Percent: m.HPPercent(), Fainted: m.Fainted(),
						}},
					})
				}
			}
			if it := m.Item; it != nil && it.TurnHeal > 0 && !m.Fainted() && m.HP < m.MaxHP() {
				healed := m.Heal(max(m.MaxHP()/it.TurnHeal, 1))
				rep.Results = append(rep.Results, ActionOutcome{
					Kind: ActionHeld, Side: side, Slot: slot, Index: idx, Item: it.ID,
					HP: m.HP, Percent: m.HPPercent(),
					Targets: []TargetOutcome{{
						Side: side, Slot: slot, Index: idx, Kind: Hit, Healed: healed,
						Effectiveness: pokemon.Effective, HP: m.HP, Percent: m.HPPercent(),
					}},
				})
			}
		}
		b.checkFaints(rep)
	}
}
