package battle

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ross1116/pokebattle/internal/pokemon"
	"github.com/ross1116/pokebattle/internal/random"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Setup struct {
	Data    BattleData
	Parties []*Party
	Dex     *pokemon.Dex
	RNG     *random.Engine
	Scripts Scripts
}

// Battle is the authoritative simulation of one battle. It is not safe for
// concurrent use; a single host goroutine owns it.
type Battle struct {
	ID   string
	Data BattleData

	parties   []*Party
	dex       *pokemon.Dex
	rng       *random.Engine
	pipeline  *Pipeline
	turn      int
	queued    [][]*Selection
	owed      [][]bool
	lastMove  [][]int
	forfeited []bool
	revealed  [][][]bool
	seen      [][][]string
	log       zerolog.Logger
}

func New(s Setup) (*Battle, error) {
	if s.RNG == nil {
		return nil, errors.New("battle needs a random engine")
	}
	if s.Dex == nil {
		s.Dex = pokemon.Default()
	}
	if s.Scripts == nil {
		s.Scripts = DefaultScripts()
	}
	if err := s.Scripts.Check(s.Dex); err != nil {
		return nil, err
	}
	sides := s.Data.Sides()
	if sides < 2 {
		return nil, fmt.Errorf("battle needs at least two sides, got %d", sides)
	}
	if len(s.Parties) != sides {
		return nil, fmt.Errorf("%d parties for %d sides", len(s.Parties), sides)
	}
	if !s.Data.decided {
		s.Data.winner = NoWinner
	}
	b := &Battle{
		ID:        uuid.NewString(),
		Data:      s.Data,
		parties:   s.Parties,
		dex:       s.Dex,
		rng:       s.RNG,
		pipeline:  NewPipeline(s.Dex.Chart(), s.Scripts),
		turn:      1,
		queued:    make([][]*Selection, sides),
		owed:      make([][]bool, sides),
		lastMove:  make([][]int, sides),
		forfeited: make([]bool, sides),
		revealed:  make([][][]bool, sides),
		seen:      make([][][]string, sides),
	}
	for side, p := range s.Parties {
		if p.ActiveLen() != s.Data.ActiveSlots[side] {
			return nil, fmt.Errorf("party %s has %d active slots, battle expects %d", p.Name, p.ActiveLen(), s.Data.ActiveSlots[side])
		}
		if p.Lost() {
			return nil, fmt.Errorf("party %s has no pokemon able to battle", p.Name)
		}
		b.queued[side] = make([]*Selection, p.ActiveLen())
		b.owed[side] = make([]bool, p.ActiveLen())
		b.lastMove[side] = make([]int, p.ActiveLen())
		for slot := range b.lastMove[side] {
			b.lastMove[side][slot] = -1
		}
		b.seen[side] = make([][]string, len(p.Members))
	}
	for viewer := range sides {
		b.revealed[viewer] = make([][]bool, sides)
		for side, p := range s.Parties {
			b.revealed[viewer][side] = make([]bool, len(p.Members))
		}
	}
	b.log = log.With().Str("battle", b.ID).Logger()
	b.log.Info().Stringer("type", s.Data.Type).Int("sides", sides).Msg("battle created")
	return b, nil
}

func (b *Battle) Sides() int            { return len(b.parties) }
func (b *Battle) Party(side int) *Party { return b.parties[side] }
func (b *Battle) Turn() int             { return b.turn }
func (b *Battle) Pipeline() *Pipeline   { return b.pipeline }
func (b *Battle) Dex() *pokemon.Dex     { return b.dex }

func (b *Battle) Ended() bool {
	_, ok := b.Data.Winner()
	return ok
}

func (b *Battle) Winner() (int, bool) { return b.Data.Winner() }

// Lost reports whether side is out of the battle.
func (b *Battle) Lost(side int) bool {
	return b.forfeited[side] || b.parties[side].Lost()
}

// Start reveals every initially active pokemon to the other sides.
func (b *Battle) Start() TurnReport {
	rep := TurnReport{Turn: 0, Winner: NoWinner}
	for side, p := range b.parties {
		for _, idx := range p.active {
			if idx != Empty {
				b.revealTo(side, idx, &rep)
			}
		}
	}
	return rep
}

// Owed lists slots of side waiting for a forced replacement.
func (b *Battle) Owed(side int) []int {
	var out []int
	for slot, o := range b.owed[side] {
		if o {
			out = append(out, slot)
		}
	}
	return out
}

func (b *Battle) owes(side int) bool { return len(b.Owed(side)) > 0 }

// Pending lists slots of side that still need a selection this turn. A side
// that owes a replacement has nothing pending until it is made.
func (b *Battle) Pending(side int) []int {
	if b.Ended() || b.Lost(side) || b.owes(side) {
		return nil
	}
	var out []int
	for slot, idx := range b.parties[side].active {
		if idx != Empty && b.queued[side][slot] == nil {
			out = append(out, slot)
		}
	}
	return out
}

// Ready is true when the turn can be resolved.
func (b *Battle) Ready() bool {
	if b.Ended() {
		return false
	}
	for side := range b.parties {
		if b.Lost(side) {
			continue
		}
		if b.owes(side) || len(b.Pending(side)) > 0 {
			return false
		}
	}
	return true
}

// Submit validates a selection and queues it for the turn. A switch into a
// slot that owes a replacement is applied at once and its report returned.
func (b *Battle) Submit(side, slot int, sel Selection) (*TurnReport, error) {
	if b.Ended() {
		return nil, reject(side, slot, ErrBattleEnded, "battle is over")
	}
	if side < 0 || side >= len(b.parties) {
		return nil, reject(side, slot, ErrProtocolViolation, "unknown side")
	}
	if b.Lost(side) {
		return nil, reject(side, slot, ErrProtocolViolation, "side is out of the battle")
	}
	party := b.parties[side]
	if slot < 0 || slot >= party.ActiveLen() {
		return nil, reject(side, slot, ErrDesync, "no active slot %d", slot)
	}
	if b.owed[side][slot] {
		return b.replaceOwed(side, slot, sel)
	}
	if party.ActiveIndex(slot) == Empty {
		return nil, reject(side, slot, ErrInvalidSelection, "slot is empty")
	}
	if b.queued[side][slot] != nil {
		return nil, reject(side, slot, ErrInvalidSelection, "already selected %s", b.queued[side][slot])
	}
	if b.owes(side) && (sel.Kind == SelectMove || sel.Kind == SelectItem) {
		return nil, reject(side, slot, ErrInvalidSelection, "a fainted pokemon must be replaced first")
	}
	if err := b.validate(side, slot, sel); err != nil {
		return nil, err
	}
	queued := sel
	b.queued[side][slot] = &queued
	b.log.Debug().Int("side", side).Int("slot", slot).Stringer("selection", sel).Msg("selection queued")
	return nil, nil
}

// Validate checks a selection without queuing it.
func (b *Battle) Validate(side, slot int, sel Selection) error {
	if side < 0 || side >= len(b.parties) {
		return reject(side, slot, ErrProtocolViolation, "unknown side")
	}
	if slot < 0 || slot >= b.parties[side].ActiveLen() {
		return reject(side, slot, ErrDesync, "no active slot %d", slot)
	}
	if b.owed[side][slot] {
		if sel.Kind != SelectSwitch {
			return reject(side, slot, ErrInvalidSelection, "fainted pokemon must be replaced")
		}
		return b.validateSwitch(side, slot, sel.Index)
	}
	return b.validate(side, slot, sel)
}

func (b *Battle) validate(side, slot int, sel Selection) error {
	party := b.parties[side]
	user, ok := party.Active(slot)
	if !ok {
		return reject(side, slot, ErrInvalidSelection, "slot is empty")
	}
	switch sel.Kind {
	case SelectForfeit:
		return nil

	case SelectMove:
		if sel.Move < 0 || sel.Move >= len(user.Moves) {
			return reject(side, slot, ErrDesync, "%s has no move slot %d", user.Name(), sel.Move)
		}
		move := user.Moves[sel.Move].Move
		if !user.CanUse(sel.Move) {
			return reject(side, slot, ErrInvalidSelection, "%s has no PP left", move.Name())
		}
		if sel.Target == nil || move.Target != pokemon.TargetOpponent {
			return nil
		}
		t := *sel.Target
		if t.Side < 0 || t.Side >= len(b.parties) || t.Slot < 0 || t.Slot >= b.parties[t.Side].ActiveLen() {
			return reject(side, slot, ErrDesync, "no target slot %s", t)
		}
		if t.Side == side {
			return reject(side, slot, ErrInvalidSelection, "%s cannot target its own side", move.Name())
		}
		if b.parties[t.Side].ActiveIndex(t.Slot) == Empty && !b.owed[t.Side][t.Slot] {
			return reject(side, slot, ErrInvalidSelection, "no pokemon in target slot %s", t)
		}
		return nil

	case SelectSwitch:
		return b.validateSwitch(side, slot, sel.Index)

	case SelectItem:
		item, err := b.dex.Item(sel.Item)
		if err != nil {
			return reject(side, slot, ErrInvalidSelection, "unknown item %q", sel.Item)
		}
		if party.Bag[sel.Item]-b.queuedItems(side, sel.Item) <= 0 {
			return reject(side, slot, ErrInvalidSelection, "no %s left", item.Name())
		}
		if sel.Index < 0 || sel.Index >= len(party.Members) {
			return reject(side, slot, ErrDesync, "no party member %d", sel.Index)
		}
		if !item.Usable(party.Members[sel.Index]) {
			return reject(side, slot, ErrInvalidSelection, "%s would have no effect", item.Name())
		}
		return nil
	}
	return reject(side, slot, ErrProtocolViolation, "unknown selection kind %d", sel.Kind)
}

func (b *Battle) validateSwitch(side, slot, index int) error {
	party := b.parties[side]
	if index < 0 || index >= len(party.Members) {
		return reject(side, slot, ErrDesync, "no party member %d", index)
	}
	if err := party.CanReplace(slot, index); err != nil {
		return reject(side, slot, ErrInvalidSelection, "%v", err)
	}
	for s, q := range b.queued[side] {
		if s != slot && q != nil && q.Kind == SelectSwitch && q.Index == index {
			return reject(side, slot, ErrInvalidSelection, "%s is already switching in", party.Members[index].Name())
		}
	}
	return nil
}

func (b *Battle) queuedItems(side int, item string) int {
	n := 0
	for _, q := range b.queued[side] {
		if q != nil && q.Kind == SelectItem && q.Item == item {
			n++
		}
	}
	return n
}

func (b *Battle) replaceOwed(side, slot int, sel Selection) (*TurnReport, error) {
	if sel.Kind == SelectForfeit {
		rep := b.Forfeit(side)
		return &rep, nil
	}
	if sel.Kind != SelectSwitch {
		return nil, reject(side, slot, ErrInvalidSelection, "fainted pokemon must be replaced")
	}
	if err := b.validateSwitch(side, slot, sel.Index); err != nil {
		return nil, err
	}
	party := b.parties[side]
	if err := party.Replace(slot, sel.Index); err != nil {
		return nil, reject(side, slot, ErrInvalidSelection, "%v", err)
	}
	b.owed[side][slot] = false
	rep := TurnReport{Turn: b.turn, Winner: NoWinner}
	in := party.Members[sel.Index]
	rep.Results = append(rep.Results, ActionOutcome{
		Kind: ActionSwitch, Side: side, Slot: slot, Index: sel.Index,
		HP: in.HP, Percent: in.HPPercent(),
	})
	b.revealTo(side, sel.Index, &rep)
	rep.Replaces = append(rep.Replaces, Replacement{Side: side, Slot: slot, Index: sel.Index})
	b.log.Debug().Int("side", side).Int("slot", slot).Int("index", sel.Index).Msg("forced replacement")
	return &rep, nil
}

// Forfeit takes side out of the battle immediately.
func (b *Battle) Forfeit(side int) TurnReport {
	rep := TurnReport{Turn: b.turn, Winner: NoWinner}
	if b.Ended() || side < 0 || side >= len(b.parties) || b.forfeited[side] {
		b.finishReport(&rep)
		return rep
	}
	b.forfeit(side, 0, &rep)
	b.checkEnd()
	b.finishReport(&rep)
	return rep
}

func (b *Battle) forfeit(side, slot int, rep *TurnReport) {
	b.forfeited[side] = true
	clear(b.owed[side])
	clear(b.queued[side])
	rep.Results = append(rep.Results, ActionOutcome{
		Kind: ActionForfeit, Side: side, Slot: slot, Index: b.parties[side].ActiveIndex(slot),
	})
	b.log.Info().Int("side", side).Msg("side forfeited")
}

// Abort ends the battle from outside. The winner is recorded when exactly
// one side can still battle.
func (b *Battle) Abort() TurnReport {
	rep := TurnReport{Turn: b.turn, Winner: NoWinner}
	if !b.Ended() {
		alive := b.alive()
		w := NoWinner
		if len(alive) == 1 {
			w = alive[0]
		}
		b.Data.decide(w)
		b.log.Info().Int("winner", w).Msg("battle aborted")
	}
	b.finishReport(&rep)
	return rep
}

// Fallback picks a selection for a slot whose participant did not answer in
// time. With repeat it reuses the last move if still legal, then the first
// usable move, then the first legal switch; otherwise it forfeits.
func (b *Battle) Fallback(side, slot int, repeat bool) Selection {
	party := b.parties[side]
	if b.owed[side][slot] {
		if i := b.firstSwitch(side, slot); i != Empty {
			return SwitchTo(i)
		}
		return Forfeit()
	}
	if !repeat {
		return Forfeit()
	}
	user, ok := party.Active(slot)
	if !ok {
		return Forfeit()
	}
	if last := b.lastMove[side][slot]; user.CanUse(last) {
		return UseMove(last, nil)
	}
	for i := range user.Moves {
		if user.CanUse(i) {
			return UseMove(i, nil)
		}
	}
	if i := b.firstSwitch(side, slot); i != Empty {
		return SwitchTo(i)
	}
	return Forfeit()
}

func (b *Battle) firstSwitch(side, slot int) int {
	for i := range b.parties[side].Members {
		if b.validateSwitch(side, slot, i) == nil {
			return i
		}
	}
	return Empty
}

// Projection is side's party as viewer is allowed to see it.
func (b *Battle) Projection(viewer, side int) *UnknownParty {
	p := b.parties[side]
	u := NewUnknownParty(p.ID, p.Name, len(p.Members), p.active)
	for i, m := range p.Members {
		if b.revealed[viewer][side][i] {
			_ = u.Reveal(i, Project(m, b.seen[side][i]))
		}
	}
	return u
}

func (b *Battle) revealTo(side, index int, rep *TurnReport) {
	m := b.parties[side].Members[index]
	for viewer := range b.parties {
		if viewer == side || b.revealed[viewer][side][index] {
			continue
		}
		b.revealed[viewer][side][index] = true
		rep.Reveals = append(rep.Reveals, Reveal{
			Viewer: viewer, Side: side, Index: index, Pokemon: Project(m, b.seen[side][index]),
		})
	}
}

// finishReport stamps the outcome. Reveals are re-projected so they describe
// the member after every result in the report, which participants apply
// first.
func (b *Battle) finishReport(rep *TurnReport) {
	for i, rv := range rep.Reveals {
		rep.Reveals[i].Pokemon = Project(b.parties[rv.Side].Members[rv.Index], b.seen[rv.Side][rv.Index])
	}
	w, ok := b.Data.Winner()
	rep.Ended = ok
	if ok {
		rep.Winner = w
	}
}
